package management

import (
	"context"

	"telinsights/internal/alertconfig"
)

type Service interface {
	CreateAlert(ctx context.Context, req alertconfig.CreateAlertRequest) (*alertconfig.AlertConfiguration, error)
	GetAlert(ctx context.Context, id string) (*alertconfig.AlertConfiguration, error)
	ListUserAlerts(ctx context.Context, userID string, includeInactive bool) ([]alertconfig.AlertConfiguration, error)
	UpdateAlert(ctx context.Context, id string, req alertconfig.UpdateAlertRequest) (*alertconfig.AlertConfiguration, error)
	DeactivateAlert(ctx context.Context, id string) error
	ActivateAlert(ctx context.Context, id string) (*alertconfig.AlertConfiguration, error)
	GetAuditLog(ctx context.Context, id string, limit int) ([]AuditEntry, error)
}

type Notifier interface {
	Notify(ctx context.Context, entry *AuditEntry) error
}
