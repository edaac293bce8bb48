package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telinsights/internal/logger"
	pkgerrors "telinsights/pkg/errors"
)

type scriptedChecker struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (c *scriptedChecker) CheckFrequencyAlerts(context.Context) ([]TriggeredAlert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.calls < len(c.results) {
		err = c.results[c.calls]
	}
	c.calls++
	if err != nil {
		return nil, err
	}
	return []TriggeredAlert{{AlertID: "a"}}, nil
}

type countingDeliverer struct {
	mu        sync.Mutex
	delivered int
}

func (d *countingDeliverer) Deliver(_ context.Context, alerts []TriggeredAlert) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered += len(alerts)
	return nil
}

func TestScheduler_TickDelays(t *testing.T) {
	checker := &scriptedChecker{results: []error{
		nil,
		errors.New("store down"),
		pkgerrors.ErrCheckInProgress,
	}}
	deliverer := &countingDeliverer{}
	s := NewScheduler(checker, deliverer, 5*time.Minute, time.Minute, logger.NopLogger())
	ctx := context.Background()

	assert.Equal(t, 5*time.Minute, s.tick(ctx))
	assert.Equal(t, 1, deliverer.delivered)

	assert.Equal(t, time.Minute, s.tick(ctx), "backoff after failure")
	assert.Equal(t, 5*time.Minute, s.tick(ctx), "overlapping run waits a full interval")
	assert.Equal(t, 1, deliverer.delivered)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	checker := &scriptedChecker{}
	s := NewScheduler(checker, &countingDeliverer{}, time.Hour, time.Minute, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		checker.mu.Lock()
		defer checker.mu.Unlock()
		return checker.calls == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type panickingChecker struct{}

func (panickingChecker) CheckFrequencyAlerts(context.Context) ([]TriggeredAlert, error) {
	panic("nil store")
}

func TestScheduler_PanicBacksOff(t *testing.T) {
	deliverer := &countingDeliverer{}
	s := NewScheduler(panickingChecker{}, deliverer, 5*time.Minute, time.Minute, logger.NopLogger())

	assert.NotPanics(t, func() {
		assert.Equal(t, time.Minute, s.tick(context.Background()))
	})
	assert.Zero(t, deliverer.delivered)
}
