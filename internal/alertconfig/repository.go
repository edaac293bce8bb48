package alertconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "telinsights/pkg/errors"
	"telinsights/pkg/metrics"
)

type Repository interface {
	// ListActive returns active configurations of the given criteria type,
	// or of every type when criteriaType is empty.
	ListActive(ctx context.Context, criteriaType string) ([]AlertConfiguration, error)
	Create(ctx context.Context, cfg *AlertConfiguration) error
	Get(ctx context.Context, id string) (*AlertConfiguration, error)
	ListByUser(ctx context.Context, userID string, includeInactive bool) ([]AlertConfiguration, error)
	Update(ctx context.Context, cfg *AlertConfiguration) error
	SetActive(ctx context.Context, id string, active bool) error
}

type PostgresRepository struct {
	db          *sql.DB
	serviceName string
}

func NewRepository(db *sql.DB, serviceName string) *PostgresRepository {
	return &PostgresRepository{db: db, serviceName: serviceName}
}

const selectConfigColumns = `
	SELECT id, user_id, config_name, criteria, is_active, created_at, updated_at
	FROM alert_configurations`

func (r *PostgresRepository) ListActive(ctx context.Context, criteriaType string) ([]AlertConfiguration, error) {
	query := selectConfigColumns + " WHERE is_active = TRUE"
	var args []interface{}
	if criteriaType != "" {
		query += " AND criteria->>'type' = $1"
		args = append(args, criteriaType)
	}
	query += " ORDER BY created_at"

	start := time.Now()
	configs, err := r.query(ctx, query, args...)
	r.observe("list_active_alerts", start, err)
	if err != nil {
		return nil, pkgerrors.ErrStoreUnavailable.WithCause(fmt.Errorf("failed to list active alert configurations: %w", err))
	}
	return configs, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, includeInactive bool) ([]AlertConfiguration, error) {
	query := selectConfigColumns + " WHERE user_id = $1"
	if !includeInactive {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY created_at DESC"

	start := time.Now()
	configs, err := r.query(ctx, query, userID)
	r.observe("list_user_alerts", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert configurations: %w", err)
	}
	return configs, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*AlertConfiguration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	start := time.Now()
	row := r.db.QueryRowContext(ctx, selectConfigColumns+" WHERE id = $1", id)
	cfg, err := scanConfig(row)
	r.observe("get_alert", start, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert configuration: %w", err)
	}
	return &cfg, nil
}

func (r *PostgresRepository) Create(ctx context.Context, cfg *AlertConfiguration) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	criteria, err := json.Marshal(cfg.Criteria)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}

	query := `
		INSERT INTO alert_configurations (id, user_id, config_name, criteria, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	start := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		cfg.ID, cfg.UserID, cfg.Name, string(criteria), cfg.IsActive, cfg.CreatedAt, cfg.UpdatedAt,
	)
	r.observe("create_alert", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithCause(err).
				WithMessage(fmt.Sprintf("alert '%s' already exists for user %s", cfg.Name, cfg.UserID))
		}
		return fmt.Errorf("failed to create alert configuration: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, cfg *AlertConfiguration) error {
	cfg.UpdatedAt = time.Now().UTC()

	criteria, err := json.Marshal(cfg.Criteria)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}

	query := `
		UPDATE alert_configurations
		SET config_name = $2, criteria = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`

	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, cfg.ID, cfg.Name, string(criteria), cfg.IsActive, cfg.UpdatedAt)
	r.observe("update_alert", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithCause(err).
				WithMessage(fmt.Sprintf("alert '%s' already exists for user %s", cfg.Name, cfg.UserID))
		}
		return fmt.Errorf("failed to update alert configuration: %w", err)
	}
	return requireAffected(result, cfg.ID)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	query := `UPDATE alert_configurations SET is_active = $2, updated_at = $3 WHERE id = $1`

	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	r.observe("set_alert_active", start, err)
	if err != nil {
		return fmt.Errorf("failed to update alert configuration: %w", err)
	}
	return requireAffected(result, id)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...interface{}) ([]AlertConfiguration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []AlertConfiguration
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (r *PostgresRepository) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
	}
	metrics.IncDatabaseQuery(r.serviceName, "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration(r.serviceName, "postgres", operation, time.Since(start))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanConfig keeps rows with undecodable criteria; Validate reports them so
// that one bad row does not hide the others.
func scanConfig(row rowScanner) (AlertConfiguration, error) {
	var (
		cfg      AlertConfiguration
		criteria []byte
	)
	if err := row.Scan(&cfg.ID, &cfg.UserID, &cfg.Name, &criteria, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return AlertConfiguration{}, err
	}

	if err := json.Unmarshal(criteria, &cfg.Criteria); err != nil {
		cfg.criteriaErr = pkgerrors.ErrInvalidCriteria.
			WithCause(err).
			WithMessage(fmt.Sprintf("stored criteria of %s cannot be decoded", cfg.ID))
	}
	return cfg, nil
}

func requireAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
