package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"telinsights/internal/alertconfig"
	"telinsights/internal/constants"
	"telinsights/internal/logger"
	"telinsights/internal/messages"
	pkgerrors "telinsights/pkg/errors"
	"telinsights/pkg/logging"
	"telinsights/pkg/metrics"
	"telinsights/pkg/tracing"
)

// ConfigSource lists the configurations the analyzer evaluates.
type ConfigSource interface {
	ListActive(ctx context.Context, criteriaType string) ([]alertconfig.AlertConfiguration, error)
}

// MessageSource is the read side of the message store.
type MessageSource interface {
	CountMessages(ctx context.Context, filter messages.Filter) (int, error)
	FindMessages(ctx context.Context, filter messages.Filter, limit int) ([]messages.EnrichedMessage, error)
}

const (
	triggerScheduled = "scheduled"
	triggerForced    = "forced"
)

// Analyzer evaluates frequency alert configurations. Runs are single-flight:
// a run started while another is in progress fails with ErrCheckInProgress.
type Analyzer struct {
	configs  ConfigSource
	store    MessageSource
	cooldown CooldownTracker
	logger   logger.Logger

	defaultThreshold     int
	defaultWindowMinutes int
	now                  func() time.Time

	runMu sync.Mutex
}

type AnalyzerOption func(*Analyzer)

// WithClock replaces the wall clock used to place evaluation windows.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithDefaults sets the threshold and window used when criteria leave them unset.
func WithDefaults(threshold, windowMinutes int) AnalyzerOption {
	return func(a *Analyzer) {
		if threshold > 0 {
			a.defaultThreshold = threshold
		}
		if windowMinutes > 0 {
			a.defaultWindowMinutes = windowMinutes
		}
	}
}

func NewAnalyzer(configs ConfigSource, store MessageSource, cooldown CooldownTracker, log logger.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		configs:              configs,
		store:                store,
		cooldown:             cooldown,
		logger:               log,
		defaultThreshold:     constants.DefaultThreshold,
		defaultWindowMinutes: constants.DefaultWindowMinutes,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CheckFrequencyAlerts evaluates every active frequency configuration.
// A configuration that fails on its own is logged and skipped; an
// unreachable store fails the whole run.
func (a *Analyzer) CheckFrequencyAlerts(ctx context.Context) ([]TriggeredAlert, error) {
	return a.run(ctx, triggerScheduled)
}

// ForceCheck clears all cooldown state and then runs CheckFrequencyAlerts.
func (a *Analyzer) ForceCheck(ctx context.Context) ([]TriggeredAlert, error) {
	return a.run(ctx, triggerForced)
}

// CheckSingleFrequencyAlert evaluates one configuration and returns zero or
// one alert. It waits for a running check to finish.
func (a *Analyzer) CheckSingleFrequencyAlert(ctx context.Context, cfg alertconfig.AlertConfiguration) ([]TriggeredAlert, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	alert, err := a.evaluate(ctx, cfg)
	if err != nil || alert == nil {
		return nil, err
	}
	return a.commitCooldown(ctx, []TriggeredAlert{*alert}), nil
}

func (a *Analyzer) run(ctx context.Context, trigger string) (alerts []TriggeredAlert, err error) {
	if !a.runMu.TryLock() {
		return nil, pkgerrors.ErrCheckInProgress
	}
	defer a.runMu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "alerting.check_frequency_alerts", attribute.String("trigger", trigger))
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			tracing.RecordError(span, err)
		}
		span.SetAttributes(attribute.Int("alerts.triggered", len(alerts)))
		span.End()
		metrics.ObserveAlertCheck(trigger, status, time.Since(start))
	}()

	if trigger == triggerForced {
		if err := a.cooldown.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear cooldown state: %w", err)
		}
		a.logger.InfowCtx(ctx, "Cooldown state cleared for forced alert check")
	}

	configs, err := a.configs.ListActive(ctx, constants.AlertTypeFrequency)
	if err != nil {
		return nil, fmt.Errorf("failed to load active alert configurations: %w", err)
	}
	metrics.SetAlertConfigsActive(len(configs))

	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfgCtx := logging.WithConfigID(ctx, cfg.ID)
		alert, err := a.evaluate(cfgCtx, cfg)
		if err != nil {
			if isHardFailure(err) {
				return nil, err
			}
			metrics.IncAlertConfigEvaluation("error")
			a.logger.ErrorwCtx(cfgCtx, "Alert configuration evaluation failed, skipping",
				"config_id", cfg.ID,
				"user_id", cfg.UserID,
				"error", err,
			)
			continue
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	alerts = a.commitCooldown(ctx, alerts)
	metrics.AddAlertsTriggered(len(alerts))
	a.logger.InfowCtx(ctx, "Frequency alert check completed",
		"trigger", trigger,
		"configs", len(configs),
		"alerts_triggered", len(alerts),
	)
	return alerts, nil
}

// evaluate runs the frequency check for one configuration. The caller holds runMu.
func (a *Analyzer) evaluate(ctx context.Context, cfg alertconfig.AlertConfiguration) (*TriggeredAlert, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	threshold, windowMinutes := a.resolve(cfg.Criteria)
	now := a.now().UTC()

	skip, err := a.cooldown.ShouldSkip(ctx, cfg.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to read cooldown for %s: %w", cfg.ID, err)
	}
	if skip {
		metrics.IncAlertConfigEvaluation("cooldown")
		a.logger.DebugwCtx(ctx, "Alert configuration in cooldown", "config_id", cfg.ID)
		return nil, nil
	}

	filter := criteriaFilter(cfg.Criteria, now, time.Duration(windowMinutes)*time.Minute)

	count, err := a.store.CountMessages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages for %s: %w", cfg.ID, err)
	}
	if count < threshold {
		metrics.IncAlertConfigEvaluation("below_threshold")
		return nil, nil
	}

	samples, err := a.store.FindMessages(ctx, filter, constants.MaxSampleMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sample messages for %s: %w", cfg.ID, err)
	}

	metrics.IncAlertConfigEvaluation("triggered")
	a.logger.InfowCtx(ctx, "Frequency alert triggered",
		"config_id", cfg.ID,
		"user_id", cfg.UserID,
		"message_count", count,
		"threshold", threshold,
		"window_minutes", windowMinutes,
	)

	return &TriggeredAlert{
		AlertID:            newAlertID(cfg.ID, now),
		ConfigID:           cfg.ID,
		UserID:             cfg.UserID,
		ConfigName:         cfg.Name,
		AlertType:          constants.AlertTypeFrequency,
		Criteria:           cfg.Criteria,
		TriggeredAt:        now,
		ActualMessageCount: count,
		Threshold:          threshold,
		WindowMinutes:      windowMinutes,
		SampleMessages:     toSamples(samples),
	}, nil
}

// commitCooldown records a trigger for every alert of a completed run. It
// runs only after evaluation finished, so an aborted run leaves no cooldown
// behind for alerts that were never returned. An alert whose trigger cannot
// be recorded is dropped and retried on the next run.
func (a *Analyzer) commitCooldown(ctx context.Context, alerts []TriggeredAlert) []TriggeredAlert {
	committed := alerts[:0]
	for _, alert := range alerts {
		if err := a.cooldown.RecordTrigger(ctx, alert.ConfigID, alert.TriggeredAt); err != nil {
			metrics.IncAlertConfigEvaluation("error")
			a.logger.ErrorwCtx(logging.WithConfigID(ctx, alert.ConfigID), "Failed to record cooldown, alert withheld",
				"config_id", alert.ConfigID,
				"user_id", alert.UserID,
				"error", err,
			)
			continue
		}
		committed = append(committed, alert)
	}
	return committed
}

func (a *Analyzer) resolve(c alertconfig.Criteria) (threshold, windowMinutes int) {
	threshold, windowMinutes = c.Threshold, c.WindowMinutes
	if threshold <= 0 {
		threshold = a.defaultThreshold
	}
	if windowMinutes <= 0 {
		windowMinutes = a.defaultWindowMinutes
	}
	return threshold, windowMinutes
}

func criteriaFilter(c alertconfig.Criteria, now time.Time, window time.Duration) messages.Filter {
	f := messages.Window(now, window)
	f.Keywords = c.Keywords
	f.Topics = c.Topics
	f.Sentiment = c.Sentiment
	return f
}

func toSamples(msgs []messages.EnrichedMessage) []SampleMessage {
	samples := make([]SampleMessage, 0, len(msgs))
	for _, m := range msgs {
		s := SampleMessage{
			ID:          m.ID,
			TextExcerpt: Excerpt(m.Text, constants.MaxExcerptLength),
			Timestamp:   m.Timestamp,
			Topics:      []string{},
			Sentiment:   m.SentimentOrNeutral(),
		}
		if m.Metadata != nil {
			s.Summary = m.Metadata.Summary
			s.Topics = append(s.Topics, m.Metadata.Topics...)
		}
		samples = append(samples, s)
	}
	return samples
}

// newAlertID is time-based for readability; the random suffix keeps two
// triggers of one configuration within the same second distinct.
func newAlertID(configID string, now time.Time) string {
	return fmt.Sprintf("%s%s_%d_%s", constants.AlertIDPrefix, configID, now.Unix(), uuid.NewString()[:8])
}

// Excerpt cuts text to max characters and appends an ellipsis when it did.
func Excerpt(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + constants.ExcerptEllipsis
}

// isHardFailure separates store outages and cancellation, which abort a run,
// from problems confined to one configuration.
func isHardFailure(err error) bool {
	return pkgerrors.IsStoreUnavailable(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
