package messages

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	pkgerrors "telinsights/pkg/errors"
	"telinsights/pkg/metrics"
)

// Repository is the message store as seen by the analysis engine and ingest.
// FindMessages returns matches newest first; limit <= 0 means no limit.
type Repository interface {
	CountMessages(ctx context.Context, filter Filter) (int, error)
	FindMessages(ctx context.Context, filter Filter, limit int) ([]EnrichedMessage, error)
	SaveMessage(ctx context.Context, msg *EnrichedMessage) error
}

type PostgresRepository struct {
	db          *sql.DB
	serviceName string
}

func NewRepository(db *sql.DB, serviceName string) *PostgresRepository {
	return &PostgresRepository{db: db, serviceName: serviceName}
}

const selectMessageColumns = `
	SELECT id, telegram_message_id, channel_id, message_text, media_id, message_timestamp, ai_metadata
	FROM messages`

func (r *PostgresRepository) CountMessages(ctx context.Context, filter Filter) (int, error) {
	where, args := buildWhere(filter)
	query := "SELECT COUNT(*) FROM messages WHERE " + where

	start := time.Now()
	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	r.observe("count_messages", start, err)
	if err != nil {
		return 0, storeError("failed to count messages", err)
	}

	return count, nil
}

func (r *PostgresRepository) FindMessages(ctx context.Context, filter Filter, limit int) ([]EnrichedMessage, error) {
	where, args := buildWhere(filter)
	query := selectMessageColumns + " WHERE " + where + " ORDER BY message_timestamp DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.observe("find_messages", start, err)
		return nil, storeError("failed to query messages", err)
	}
	defer rows.Close()

	var result []EnrichedMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			r.observe("find_messages", start, err)
			return nil, storeError("failed to scan message", err)
		}
		result = append(result, msg)
	}

	err = rows.Err()
	r.observe("find_messages", start, err)
	if err != nil {
		return nil, storeError("rows iteration error", err)
	}

	return result, nil
}

// SaveMessage inserts a message or, for a known (channel, telegram id) pair,
// replaces its text and metadata. msg.ID is set from the stored row.
func (r *PostgresRepository) SaveMessage(ctx context.Context, msg *EnrichedMessage) error {
	var metadata interface{}
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = string(raw)
	}

	query := `
		INSERT INTO messages (telegram_message_id, channel_id, message_text, media_id, message_timestamp, ai_metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (channel_id, telegram_message_id) DO UPDATE
		SET message_text = EXCLUDED.message_text,
			media_id = EXCLUDED.media_id,
			ai_metadata = EXCLUDED.ai_metadata
		RETURNING id
	`

	start := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		msg.TelegramMessageID,
		msg.ChannelID,
		nullString(msg.Text),
		nullString(msg.MediaID),
		msg.Timestamp.UTC(),
		metadata,
	).Scan(&msg.ID)
	r.observe("save_message", start, err)
	if err != nil {
		return storeError("failed to save message", err)
	}

	return nil
}

func (r *PostgresRepository) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(r.serviceName, "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration(r.serviceName, "postgres", operation, time.Since(start))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (EnrichedMessage, error) {
	var (
		msg      EnrichedMessage
		text     sql.NullString
		mediaID  sql.NullString
		metadata []byte
	)
	if err := row.Scan(
		&msg.ID,
		&msg.TelegramMessageID,
		&msg.ChannelID,
		&text,
		&mediaID,
		&msg.Timestamp,
		&metadata,
	); err != nil {
		return EnrichedMessage{}, err
	}

	msg.Text = text.String
	msg.MediaID = mediaID.String
	msg.Timestamp = msg.Timestamp.UTC()
	msg.Metadata = NormalizeMetadata(metadata)
	return msg, nil
}

// jsonArray yields a JSONB array field, or an empty array when the stored
// value has another shape.
func jsonArray(field string) string {
	return fmt.Sprintf(
		`CASE WHEN jsonb_typeof(ai_metadata->'%[1]s') = 'array' THEN ai_metadata->'%[1]s' ELSE '[]'::jsonb END`,
		field,
	)
}

const normalizedSentimentSQL = `CASE WHEN lower(btrim(ai_metadata->>'sentiment')) IN ('positive', 'negative')
	THEN lower(btrim(ai_metadata->>'sentiment')) ELSE 'neutral' END`

// buildWhere renders a Filter as a WHERE clause with positional arguments.
// The SQL mirrors Filter.Matches.
func buildWhere(filter Filter) (string, []interface{}) {
	f := filter.Normalized()

	conds := []string{"ai_metadata IS NOT NULL"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.Since.IsZero() {
		conds = append(conds, "message_timestamp >= "+arg(f.Since.UTC()))
	}
	if !f.Until.IsZero() {
		conds = append(conds, "message_timestamp <= "+arg(f.Until.UTC()))
	}

	if len(f.Keywords) > 0 {
		p := arg(pq.Array(f.Keywords))
		conds = append(conds, fmt.Sprintf(`(
			EXISTS (SELECT 1 FROM unnest(%[1]s::text[]) AS kw
				WHERE strpos(lower(COALESCE(message_text, '')), kw) > 0)
			OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(%[2]s) AS mk
				WHERE lower(mk) = ANY(%[1]s::text[]))
		)`, p, jsonArray("keywords")))
	}

	if len(f.Topics) > 0 {
		p := arg(pq.Array(f.Topics))
		conds = append(conds, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM jsonb_array_elements_text(%s) AS t WHERE lower(btrim(t)) = ANY(%s::text[]))`,
			jsonArray("topics"), p,
		))
	}

	if f.Sentiment != "" {
		conds = append(conds, normalizedSentimentSQL+" = "+arg(string(f.Sentiment)))
	}

	return strings.Join(conds, " AND "), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// storeError classifies a database failure. Caller cancellation is passed
// through; anything else means the store could not serve the request.
func storeError(msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapped
	}
	return pkgerrors.ErrStoreUnavailable.WithCause(wrapped)
}
