package worker

import (
	"context"
	"errors"
	"marketplace/internal/pkg/events"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flakySink struct {
	mu        sync.Mutex
	failTimes int
	attempts  map[string]int
	delivered []string
}

func (s *flakySink) Deliver(_ context.Context, evt events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts == nil {
		s.attempts = make(map[string]int)
	}
	s.attempts[evt.ID]++
	if s.attempts[evt.ID] <= s.failTimes {
		return errors.New("broker unavailable")
	}
	s.delivered = append(s.delivered, evt.ID)
	return nil
}

func (s *flakySink) deliveredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func TestWorkerPoolDelivers(t *testing.T) {
	sink := &flakySink{}
	pool := NewWorkerPool(sink, 2, 10, nil)
	pool.Start()

	for i := 0; i < 5; i++ {
		pool.Dispatch(events.New(events.TypeOrderCreated, "order", "", nil))
	}
	pool.Stop()

	assert.Equal(t, 5, sink.deliveredCount())
}

func TestWorkerPoolRetriesFailedDelivery(t *testing.T) {
	sink := &flakySink{failTimes: 2}
	pool := NewWorkerPool(sink, 1, 10, nil)
	pool.RetryDelay = time.Millisecond
	pool.Start()

	pool.Dispatch(events.New(events.TypePaymentConfirmed, "pay-1", "", nil))

	assert.Eventually(t, func() bool { return sink.deliveredCount() == 1 }, time.Second, 5*time.Millisecond)
	pool.Stop()
}

func TestAddTaskAfterStopIsDropped(t *testing.T) {
	sink := &flakySink{}
	pool := NewWorkerPool(sink, 1, 4, nil)
	pool.Start()
	pool.Stop()

	assert.NotPanics(t, func() {
		pool.Dispatch(events.New(events.TypePayoutPaid, "payout-1", "", nil))
	})
	assert.Equal(t, 0, sink.deliveredCount())
}
