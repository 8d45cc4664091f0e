package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NewPolicy is the payload accepted by the backend's create endpoint.
type NewPolicy struct {
	Name          string             `json:"name" validate:"required,max=200"`
	Description   string             `json:"description" validate:"required"`
	Category      string             `json:"category" validate:"required,max=100"`
	StartDate     Timestamp          `json:"start_date"`
	EndDate       *Timestamp         `json:"end_date,omitempty"`
	Budget        float64            `json:"budget" validate:"gte=0"`
	TargetMetrics map[string]float64 `json:"target_metrics,omitempty"`
}

// Validate checks the payload before it is sent upstream.
func (p NewPolicy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	if p.StartDate.IsZero() {
		return errors.New("invalid policy: start_date is required")
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate.Time) {
		return errors.New("invalid policy: end_date precedes start_date")
	}
	return nil
}
