package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"telinsights/internal/alertconfig"
	"telinsights/internal/logger"
	pkgerrors "telinsights/pkg/errors"
	"telinsights/pkg/logging"
	"telinsights/pkg/metrics"
)

type service struct {
	repo     alertconfig.Repository
	audit    AuditLogger
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
}

type ServiceOption func(*service)

// WithAudit records every configuration change in audit.
func WithAudit(audit AuditLogger) ServiceOption {
	return func(s *service) {
		s.audit = audit
	}
}

// WithNotifier announces every configuration change through n.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) {
		s.notifier = n
	}
}

func NewService(repo alertconfig.Repository, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) CreateAlert(ctx context.Context, req alertconfig.CreateAlertRequest) (cfg *alertconfig.AlertConfiguration, err error) {
	defer func() { observe("create", err) }()

	if strings.TrimSpace(req.UserID) == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("user_id is required").WithDetail("field", "user_id")
	}
	if err := alertconfig.ValidateName(req.Name); err != nil {
		return nil, err
	}
	criteria, err := alertconfig.ParseCriteria(req.Criteria)
	if err != nil {
		return nil, err
	}

	cfg = &alertconfig.AlertConfiguration{
		UserID:   strings.TrimSpace(req.UserID),
		Name:     strings.TrimSpace(req.Name),
		Criteria: criteria,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, wrapStoreError(err)
	}

	s.record(ctx, cfg, ActionCreate, nil)
	s.logger.InfowCtx(ctx, "Alert configuration created", "config_id", cfg.ID, "user_id", cfg.UserID)
	return cfg, nil
}

func (s *service) GetAlert(ctx context.Context, id string) (*alertconfig.AlertConfiguration, error) {
	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return cfg, nil
}

func (s *service) ListUserAlerts(ctx context.Context, userID string, includeInactive bool) ([]alertconfig.AlertConfiguration, error) {
	configs, err := s.repo.ListByUser(ctx, userID, includeInactive)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if configs == nil {
		configs = []alertconfig.AlertConfiguration{}
	}
	return configs, nil
}

func (s *service) UpdateAlert(ctx context.Context, id string, req alertconfig.UpdateAlertRequest) (cfg *alertconfig.AlertConfiguration, err error) {
	defer func() { observe("update", err) }()

	old, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	updated := *old
	if req.Name != nil {
		if err := alertconfig.ValidateName(*req.Name); err != nil {
			return nil, err
		}
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if len(req.Criteria) > 0 {
		criteria, err := alertconfig.ParseCriteria(req.Criteria)
		if err != nil {
			return nil, err
		}
		updated.Criteria = criteria
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, wrapStoreError(err)
	}

	s.record(ctx, &updated, ActionUpdate, old)
	return &updated, nil
}

// DeactivateAlert is a soft delete: the configuration stays readable but is
// no longer evaluated.
func (s *service) DeactivateAlert(ctx context.Context, id string) (err error) {
	defer func() { observe("deactivate", err) }()

	old, err := s.repo.Get(ctx, id)
	if err != nil {
		return wrapStoreError(err)
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return wrapStoreError(err)
	}

	updated := *old
	updated.IsActive = false
	s.record(ctx, &updated, ActionDeactivate, old)
	return nil
}

func (s *service) ActivateAlert(ctx context.Context, id string) (cfg *alertconfig.AlertConfiguration, err error) {
	defer func() { observe("activate", err) }()

	old, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if err := old.Validate(); err != nil {
		return nil, pkgerrors.ErrInvalidCriteria.WithCause(err).
			WithMessage("stored criteria are invalid, update them before activating")
	}
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return nil, wrapStoreError(err)
	}

	updated := *old
	updated.IsActive = true
	s.record(ctx, &updated, ActionActivate, old)
	return &updated, nil
}

func (s *service) GetAuditLog(ctx context.Context, id string, limit int) ([]AuditEntry, error) {
	if s.audit == nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("audit log is disabled")
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, wrapStoreError(err)
	}

	entries, err := s.audit.List(ctx, id, limit)
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithCause(err)
	}
	return entries, nil
}

// record writes an audit entry and announces the change. Failures of either
// are logged and never fail the change itself.
func (s *service) record(ctx context.Context, cfg *alertconfig.AlertConfiguration, action string, old *alertconfig.AlertConfiguration) {
	if s.audit == nil && s.notifier == nil {
		return
	}

	entry := &AuditEntry{
		ID:        uuid.New().String(),
		ConfigID:  cfg.ID,
		UserID:    cfg.UserID,
		Action:    action,
		OldValue:  snapshot(old),
		NewValue:  snapshot(cfg),
		ChangedBy: logging.GetActor(ctx),
		Timestamp: s.now().UTC(),
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to write audit entry", "config_id", cfg.ID, "action", action, "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, entry); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to publish configuration change", "config_id", cfg.ID, "action", action, "error", err)
		}
	}
}

// wrapStoreError keeps classified errors and marks the rest as store failures.
func wrapStoreError(err error) error {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return pkgerrors.ErrStoreUnavailable.WithCause(err)
}

func observe(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncManagementOperation(operation, status)
}
