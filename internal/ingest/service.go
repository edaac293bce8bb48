package ingest

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"telinsights/internal/logger"
	"telinsights/internal/messages"
	"telinsights/pkg/cel"
	"telinsights/pkg/errors"
	"telinsights/pkg/metrics"
	"telinsights/pkg/models"
	"telinsights/pkg/tracing"
)

type Store interface {
	SaveMessage(ctx context.Context, msg *messages.EnrichedMessage) error
}

// Service turns enriched message events into stored messages. Events matching
// any drop filter are discarded, redeliveries are skipped via the deduplicator.
type Service struct {
	store   Store
	dedup   Deduplicator
	filters []*cel.Filter
	logger  logger.Logger
}

func NewService(store Store, dedup Deduplicator, filterExpressions []string, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	filters := make([]*cel.Filter, 0, len(filterExpressions))
	for i, expr := range filterExpressions {
		filter, err := evaluator.CompileFilter(expr)
		if err != nil {
			return nil, fmt.Errorf("ingest filter %d: %w", i, err)
		}
		filters = append(filters, filter)
	}

	return &Service{
		store:   store,
		dedup:   dedup,
		filters: filters,
		logger:  log,
	}, nil
}

// Handle is the broker handler. Invalid events fail permanently so the
// consumer sends them to the DLQ without retrying.
func (s *Service) Handle(ctx context.Context, env models.MessageEnvelope) error {
	start := time.Now()
	result, err := s.Process(ctx, env)
	if err != nil {
		metrics.ObserveIngest("error", time.Since(start))
		return err
	}
	metrics.ObserveIngest(string(result), time.Since(start))
	return nil
}

func (s *Service) Process(ctx context.Context, env models.MessageEnvelope) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.process", attribute.String("envelope_id", env.ID))
	defer span.End()

	msg, err := s.decode(&env)
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}

	span.SetAttributes(
		attribute.String("channel_id", msg.ChannelID),
		attribute.Int64("telegram_message_id", msg.TelegramMessageID),
	)

	if expr, drop := s.shouldDrop(ctx, msg); drop {
		s.logger.DebugwCtx(ctx, "Message dropped by ingest filter",
			"channel_id", msg.ChannelID,
			"telegram_message_id", msg.TelegramMessageID,
			"filter", expr,
		)
		return ResultDropped, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := dedupKey(msg)
	first, err := s.dedup.Claim(ctx, key)
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}
	if !first {
		s.logger.DebugwCtx(ctx, "Duplicate message skipped", "key", key)
		return ResultDuplicate, nil
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		if relErr := s.dedup.Release(ctx, key); relErr != nil {
			s.logger.WarnwCtx(ctx, "Failed to release dedup claim", "key", key, "error", relErr)
		}
		tracing.RecordError(span, err)
		return "", fmt.Errorf("failed to store message %s: %w", key, err)
	}

	s.logger.InfowCtx(ctx, "Message stored",
		"id", msg.ID,
		"channel_id", msg.ChannelID,
		"telegram_message_id", msg.TelegramMessageID,
		"analysed", msg.Metadata != nil,
	)
	return ResultStored, nil
}

// dedupKey identifies one delivery state of a message. The raw and the
// analysed event of the same message get different keys, and so does each
// re-analysis carrying a new analysis timestamp, so the upsert can overwrite
// the stored metadata. Redeliveries of the same state share a key.
func dedupKey(msg *messages.EnrichedMessage) string {
	base := fmt.Sprintf("%s:%d", msg.ChannelID, msg.TelegramMessageID)
	switch {
	case msg.Metadata == nil:
		return base + ":raw"
	case msg.Metadata.AnalysisTimestamp != nil:
		return fmt.Sprintf("%s:analysed:%d", base, msg.Metadata.AnalysisTimestamp.UnixNano())
	default:
		return base + ":analysed"
	}
}

func (s *Service) decode(env *models.MessageEnvelope) (*messages.EnrichedMessage, error) {
	if env.Type != models.EventTypeMessageEnriched {
		return nil, errors.ErrValidation.
			WithMessage(fmt.Sprintf("unexpected event type: %s", env.Type)).
			WithDetail("field", "type")
	}

	var event MessageEvent
	if err := env.DecodePayload(&event); err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	msg := &messages.EnrichedMessage{
		TelegramMessageID: event.TelegramMessageID,
		ChannelID:         event.ChannelID,
		Text:              event.Text,
		MediaID:           event.MediaID,
		Timestamp:         event.Timestamp.UTC(),
	}

	if event.AnalysisResponse != "" {
		metadata, err := messages.ParseAnalysis(event.AnalysisResponse)
		if err != nil {
			return nil, err
		}
		msg.Metadata = metadata
	} else {
		msg.Metadata = messages.NormalizeMetadata(event.Metadata)
	}
	return msg, nil
}

// shouldDrop returns the first matching filter expression. A filter that
// fails to evaluate is skipped.
func (s *Service) shouldDrop(ctx context.Context, msg *messages.EnrichedMessage) (string, bool) {
	if len(s.filters) == 0 {
		return "", false
	}

	vars := messageVars(msg)
	for _, f := range s.filters {
		matched, err := f.Matches(ctx, vars)
		if err != nil {
			metrics.FallbackUsageTotal.WithLabelValues("ingest", "skip_on_error", "evaluation_error").Inc()
			s.logger.WarnwCtx(ctx, "Ingest filter evaluation failed, skipping filter",
				"filter", f.Expression,
				"error", err,
			)
			continue
		}
		if matched {
			return f.Expression, true
		}
	}
	return "", false
}

func messageVars(msg *messages.EnrichedMessage) cel.Vars {
	vars := cel.Vars{
		ChannelID: msg.ChannelID,
		MessageID: msg.TelegramMessageID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}
	if m := msg.Metadata; m != nil {
		vars.Analysed = true
		vars.Summary = m.Summary
		vars.Topics = msg.NormalizedTopics()
		vars.Sentiment = string(msg.SentimentOrNeutral())
		vars.Keywords = m.Keywords
		vars.Confidence = m.ConfidenceScore
		vars.Language = m.Language
	}
	return vars
}
