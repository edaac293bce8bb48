package alertconfig

import (
	"encoding/json"
	"time"

	"telinsights/internal/messages"
)

// Criteria is the flat, pre-validated rule of an alert configuration.
// Zero Threshold or WindowMinutes means the system default applies.
type Criteria struct {
	Type          string             `json:"type"`
	Keywords      []string           `json:"keywords,omitempty"`
	Topics        []string           `json:"topics,omitempty"`
	Sentiment     messages.Sentiment `json:"sentiment,omitempty"`
	Threshold     int                `json:"threshold,omitempty"`
	WindowMinutes int                `json:"window_minutes,omitempty"`
}

type AlertConfiguration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Criteria  Criteria  `json:"criteria"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	criteriaErr error
}

// Validate reports whether the stored configuration can be evaluated.
func (c *AlertConfiguration) Validate() error {
	if c.criteriaErr != nil {
		return c.criteriaErr
	}
	return c.Criteria.Validate()
}

// CreateAlertRequest carries criteria raw so that ParseCriteria can reject unknown keys.
type CreateAlertRequest struct {
	UserID   string          `json:"user_id" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Criteria json.RawMessage `json:"criteria" binding:"required" swaggertype:"object"`
}

type UpdateAlertRequest struct {
	Name     *string         `json:"name"`
	Criteria json.RawMessage `json:"criteria" swaggertype:"object"`
}
