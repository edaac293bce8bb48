package management

import (
	"time"

	"telinsights/internal/alertconfig"
)

// Audit actions.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDeactivate = "deactivate"
	ActionActivate   = "activate"
)

// ConfigSnapshot is the audited state of an alert configuration.
type ConfigSnapshot struct {
	Name     string               `json:"name" bson:"name"`
	IsActive bool                 `json:"is_active" bson:"is_active"`
	Criteria alertconfig.Criteria `json:"criteria" bson:"criteria"`
}

type AuditEntry struct {
	ID        string          `json:"id" bson:"_id"`
	ConfigID  string          `json:"config_id" bson:"config_id"`
	UserID    string          `json:"user_id" bson:"user_id"`
	Action    string          `json:"action" bson:"action"`
	OldValue  *ConfigSnapshot `json:"old_value,omitempty" bson:"old_value,omitempty"`
	NewValue  *ConfigSnapshot `json:"new_value,omitempty" bson:"new_value,omitempty"`
	ChangedBy string          `json:"changed_by" bson:"changed_by"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
}

func snapshot(cfg *alertconfig.AlertConfiguration) *ConfigSnapshot {
	if cfg == nil {
		return nil
	}
	return &ConfigSnapshot{Name: cfg.Name, IsActive: cfg.IsActive, Criteria: cfg.Criteria}
}
