package alertconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"telinsights/internal/constants"
	"telinsights/internal/messages"
	"telinsights/pkg/errors"
)

// criteriaInput distinguishes an explicit zero from an absent number.
type criteriaInput struct {
	Type          string   `json:"type"`
	Keywords      []string `json:"keywords"`
	Topics        []string `json:"topics"`
	Sentiment     *string  `json:"sentiment"`
	Threshold     *int     `json:"threshold"`
	WindowMinutes *int     `json:"window_minutes"`
}

// ParseCriteria decodes criteria submitted by a user. Unknown keys are
// rejected and an absent type defaults to frequency.
func ParseCriteria(raw []byte) (Criteria, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Criteria{}, errors.ErrInvalidCriteria.WithMessage("criteria is required")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var in criteriaInput
	if err := dec.Decode(&in); err != nil {
		return Criteria{}, errors.ErrInvalidCriteria.
			WithMessage(fmt.Sprintf("invalid criteria: %v", err)).
			WithCause(err)
	}

	c := Criteria{
		Type:     strings.ToLower(strings.TrimSpace(in.Type)),
		Keywords: cleanTerms(in.Keywords),
		Topics:   cleanTerms(in.Topics),
	}
	if c.Type == "" {
		c.Type = constants.AlertTypeFrequency
	}

	if in.Sentiment != nil && strings.TrimSpace(*in.Sentiment) != "" {
		s, ok := messages.ParseSentiment(*in.Sentiment)
		if !ok {
			return Criteria{}, errors.ErrInvalidCriteria.
				WithMessage(fmt.Sprintf("invalid sentiment: %s. Allowed: positive, negative, neutral", *in.Sentiment)).
				WithDetail("field", "sentiment")
		}
		c.Sentiment = s
	}

	if in.Threshold != nil {
		if *in.Threshold < 1 {
			return Criteria{}, errors.ErrInvalidCriteria.
				WithMessage("threshold must be at least 1").
				WithDetail("field", "threshold")
		}
		c.Threshold = *in.Threshold
	}
	if in.WindowMinutes != nil {
		if *in.WindowMinutes < 1 {
			return Criteria{}, errors.ErrInvalidCriteria.
				WithMessage("window_minutes must be at least 1").
				WithDetail("field", "window_minutes")
		}
		c.WindowMinutes = *in.WindowMinutes
	}

	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func (c Criteria) Validate() error {
	if c.Type != constants.AlertTypeFrequency {
		return errors.ErrInvalidCriteria.
			WithMessage(fmt.Sprintf("unsupported criteria type: %s", c.Type)).
			WithDetail("field", "type")
	}
	if c.Threshold < 0 {
		return errors.ErrInvalidCriteria.WithMessage("threshold must be positive").WithDetail("field", "threshold")
	}
	if c.WindowMinutes < 0 {
		return errors.ErrInvalidCriteria.WithMessage("window_minutes must be positive").WithDetail("field", "window_minutes")
	}
	if c.Sentiment != "" {
		if _, ok := messages.ParseSentiment(string(c.Sentiment)); !ok {
			return errors.ErrInvalidCriteria.
				WithMessage(fmt.Sprintf("invalid sentiment: %s", c.Sentiment)).
				WithDetail("field", "sentiment")
		}
	}
	return nil
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.ErrValidation.WithMessage("name is required").WithDetail("field", "name")
	}
	return nil
}

func cleanTerms(values []string) []string {
	var out []string
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
