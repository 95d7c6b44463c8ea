package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/store"
)

// Event names dispatched by the engine wiring.
const (
	EventChanged   = "campus.changed"
	EventSuspended = "subject.suspended"
)

// Job is one outbound notification. Jobs with a Title are also pushed to the
// browsers of staff subscribed for Role.
type Job struct {
	Event string            `json:"event"`
	Role  string            `json:"role,omitempty"`
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body,omitempty"`
	At    time.Time         `json:"at"`
	Data  map[string]string `json:"data,omitempty"`
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// EventPublisher forwards jobs to a message broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	subs    store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	events  EventPublisher
}

// NewWorkerPool creates a new worker pool. webpushOptions and events may be nil
// to disable the corresponding sink.
func NewWorkerPool(size int, subs store.SubscriptionStore, webpushOptions *webpush.Options, events EventPublisher) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*16),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		events:  events,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.process(ctx, job)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job without blocking. It reports false when the queue is
// full and the job was dropped.
func (wp *WorkerPool) Dispatch(job Job) bool {
	if job.At.IsZero() {
		job.At = time.Now().UTC()
	}
	select {
	case wp.jobs <- job:
		return true
	default:
		log.Printf("Notification queue full; dropping %s", job.Event)
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

func (wp *WorkerPool) process(ctx context.Context, job Job) {
	if wp.events != nil {
		if err := wp.events.PublishJSON(ctx, job.Event, job); err != nil {
			log.Printf("Error publishing %s: %v", job.Event, err)
		}
	}
	if job.Title == "" || wp.subs == nil || wp.webpush == nil || wp.webpush.VAPIDPrivateKey == "" {
		return
	}

	subscriptions, err := wp.subs.ForRole(ctx, job.Role)
	if err != nil {
		log.Printf("Error fetching subscriptions for %s: %v", job.Event, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]string{"title": job.Title, "body": job.Body, "event": job.Event})
	if err != nil {
		log.Printf("Error encoding push payload: %v", err)
		return
	}

	log.Printf("Sending %d notifications for %s", len(subscriptions), job.Event)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.subs.Delete(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
