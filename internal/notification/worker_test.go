package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

type mockSubscriptions struct {
	ForRoleFunc func(ctx context.Context, role string) ([]model.PushSubscription, error)
	DeleteFunc  func(ctx context.Context, endpoint string) error
}

func (m *mockSubscriptions) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	return nil
}

func (m *mockSubscriptions) Get(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	return nil, errors.New("not implemented")
}

func (m *mockSubscriptions) Delete(ctx context.Context, endpoint string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, endpoint)
}

func (m *mockSubscriptions) ForRole(ctx context.Context, role string) ([]model.PushSubscription, error) {
	return m.ForRoleFunc(ctx, role)
}

type mockEvents struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (m *mockEvents) PublishJSON(ctx context.Context, key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return m.err
}

func response(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, nil, nil, nil)

	require.True(t, wp.Dispatch(Job{Event: EventChanged}))

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, EventChanged, job.Event)
		assert.False(t, job.At.IsZero())
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchDropsWhenFull(t *testing.T) {
	wp := NewWorkerPool(1, nil, nil, nil)
	capacity := cap(wp.Jobs())
	for i := 0; i < capacity; i++ {
		require.True(t, wp.Dispatch(Job{Event: EventChanged}))
	}
	assert.False(t, wp.Dispatch(Job{Event: EventChanged}))
}

func TestWorkerPool_Process(t *testing.T) {
	opts := &webpush.Options{VAPIDPrivateKey: "private", VAPIDPublicKey: "public"}
	subscription := model.PushSubscription{
		Endpoint: "https://example.com/push",
		P256DH:   "test_p256dh",
		Auth:     "test_auth",
		Role:     model.RoleDiscipline,
	}

	testCases := []struct {
		name        string
		job         Job
		status      int
		wantSends   int
		wantDeleted []string
		wantRole    string
	}{
		{
			name:      "change events are not pushed",
			job:       Job{Event: EventChanged},
			status:    http.StatusCreated,
			wantSends: 0,
		},
		{
			name:      "titled job is pushed to role subscribers",
			job:       Job{Event: EventSuspended, Role: model.RoleDiscipline, Title: "Subject suspended", Body: "STU001"},
			status:    http.StatusCreated,
			wantSends: 1,
			wantRole:  model.RoleDiscipline,
		},
		{
			name:        "expired subscription is deleted",
			job:         Job{Event: EventSuspended, Role: model.RoleDiscipline, Title: "Subject suspended"},
			status:      http.StatusGone,
			wantSends:   1,
			wantDeleted: []string{subscription.Endpoint},
			wantRole:    model.RoleDiscipline,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var gotRole string
			var deleted []string
			sends := 0
			subs := &mockSubscriptions{
				ForRoleFunc: func(ctx context.Context, role string) ([]model.PushSubscription, error) {
					gotRole = role
					return []model.PushSubscription{subscription}, nil
				},
				DeleteFunc: func(ctx context.Context, endpoint string) error {
					deleted = append(deleted, endpoint)
					return nil
				},
			}
			events := &mockEvents{}
			wp := NewWorkerPool(1, subs, opts, events)
			wp.sender = &mockSender{
				SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
					sends++
					assert.Equal(t, subscription.Endpoint, sub.Endpoint)
					assert.Equal(t, subscription.P256DH, sub.Keys.P256dh)
					var body map[string]string
					require.NoError(t, json.Unmarshal(payload, &body))
					assert.Equal(t, tc.job.Title, body["title"])
					return response(tc.status), nil
				},
			}

			wp.process(context.Background(), tc.job)

			assert.Equal(t, tc.wantSends, sends)
			assert.Equal(t, tc.wantDeleted, deleted)
			assert.Equal(t, tc.wantRole, gotRole)
			assert.Equal(t, []string{tc.job.Event}, events.keys)
		})
	}
}

func TestWorkerPool_ProcessWithoutVAPIDSkipsPush(t *testing.T) {
	subs := &mockSubscriptions{
		ForRoleFunc: func(ctx context.Context, role string) ([]model.PushSubscription, error) {
			t.Fatal("subscriptions should not be queried")
			return nil, nil
		},
	}
	events := &mockEvents{err: errors.New("broker down")}
	wp := NewWorkerPool(1, subs, &webpush.Options{}, events)

	wp.process(context.Background(), Job{Event: EventSuspended, Title: "x"})

	assert.Equal(t, []string{EventSuspended}, events.keys)
}

func TestWorkerPool_StartDeliversJobs(t *testing.T) {
	events := &mockEvents{}
	wp := NewWorkerPool(2, nil, nil, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch(Job{Event: EventChanged})

	assert.Eventually(t, func() bool {
		events.mu.Lock()
		defer events.mu.Unlock()
		return len(events.keys) == 1
	}, time.Second, 10*time.Millisecond)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []Job
}

func (r *recordingDispatcher) Dispatch(job Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return true
}

func TestForwardChangesAndSuspensionAlert(t *testing.T) {
	bus := notify.NewBus()
	d := &recordingDispatcher{}

	unsubscribe := ForwardChanges(bus, d)
	bus.Publish()
	unsubscribe()
	bus.Publish()

	require.Len(t, d.jobs, 1)
	assert.Equal(t, EventChanged, d.jobs[0].Event)

	alert := SuspensionAlert(d)
	alert(context.Background(), model.Subject{ID: "STU001", Name: "Ada", SuspensionReason: "3 violations: after_hours_entry"})

	require.Len(t, d.jobs, 2)
	job := d.jobs[1]
	assert.Equal(t, EventSuspended, job.Event)
	assert.Equal(t, model.RoleDiscipline, job.Role)
	assert.Equal(t, "STU001", job.Data["subject_id"])
	assert.Contains(t, job.Body, "Ada (STU001)")
}
