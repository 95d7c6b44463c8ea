package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var calls []string

	bus.Subscribe(func() { calls = append(calls, "a") })
	bus.Subscribe(func() { calls = append(calls, "b") })
	bus.Subscribe(func() { calls = append(calls, "c") })

	bus.Publish()
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0

	unsubscribe := bus.Subscribe(func() { count++ })
	bus.Publish()
	unsubscribe()
	unsubscribe()
	bus.Publish()

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.NumListeners())
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var calls []string

	var unsubA func()
	unsubA = bus.Subscribe(func() {
		calls = append(calls, "a")
		unsubA()
	})
	var unsubB func()
	unsubB = bus.Subscribe(func() {
		calls = append(calls, "b")
		unsubB()
	})
	bus.Subscribe(func() { calls = append(calls, "c") })

	assert.NotPanics(t, bus.Publish)
	assert.Equal(t, []string{"a", "b", "c"}, calls)

	calls = nil
	bus.Publish()
	assert.Equal(t, []string{"c"}, calls)
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	count := 0

	bus.Subscribe(func() {
		bus.Subscribe(func() { count++ })
	})

	bus.Publish()
	assert.Equal(t, 0, count)
	bus.Publish()
	assert.Equal(t, 1, count)
}
