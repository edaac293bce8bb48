package alerting

import (
	"context"
	"errors"
	"time"

	"telinsights/internal/logger"
	pkgerrors "telinsights/pkg/errors"
)

type Checker interface {
	CheckFrequencyAlerts(ctx context.Context) ([]TriggeredAlert, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, alerts []TriggeredAlert) error
}

// Scheduler runs alert checks on a fixed interval and waits a shorter
// backoff after a failed check.
type Scheduler struct {
	checker   Checker
	deliverer Deliverer
	interval  time.Duration
	backoff   time.Duration
	logger    logger.Logger
}

func NewScheduler(checker Checker, deliverer Deliverer, interval, backoff time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		checker:   checker,
		deliverer: deliverer,
		interval:  interval,
		backoff:   backoff,
		logger:    log,
	}
}

// Run blocks until ctx is done. The first check runs immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infow("Alert scheduler started",
		"interval", s.interval.String(),
		"error_backoff", s.backoff.String(),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("Alert scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			timer.Reset(s.tick(ctx))
		}
	}
}

// tick runs one check and returns the delay before the next one.
func (s *Scheduler) tick(ctx context.Context) time.Duration {
	var alerts []TriggeredAlert
	err := pkgerrors.Guard(func() (err error) {
		alerts, err = s.checker.CheckFrequencyAlerts(ctx)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, pkgerrors.ErrCheckInProgress):
		s.logger.WarnwCtx(ctx, "Previous alert check still running, skipping tick")
		return s.interval
	case ctx.Err() != nil:
		return s.interval
	default:
		s.logger.ErrorwCtx(ctx, "Alert check failed", "error", err, "retry_in", s.backoff.String())
		return s.backoff
	}

	if len(alerts) > 0 && s.deliverer != nil {
		if err := s.deliverer.Deliver(ctx, alerts); err != nil {
			s.logger.ErrorwCtx(ctx, "Alert delivery incomplete", "error", err)
		}
	}
	return s.interval
}
