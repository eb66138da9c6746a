package models

import (
	"context"
	"time"
)

// Lead is a persisted form submission.
type Lead struct {
	ID            string                 `json:"id" db:"id"`
	Form          string                 `json:"form" db:"form"`
	Name          string                 `json:"name,omitempty" db:"name"`
	Email         string                 `json:"email,omitempty" db:"email"`
	Phone         string                 `json:"phone,omitempty" db:"phone"`
	Company       string                 `json:"company,omitempty" db:"company"`
	Payload       map[string]interface{} `json:"payload" db:"payload"`
	Delivered     bool                   `json:"delivered" db:"delivered"`
	WebhookStatus int                    `json:"webhookStatus,omitempty" db:"webhook_status"`
	CreatedAt     time.Time              `json:"createdAt" db:"created_at"`
}

// LeadRepository persists leads.
type LeadRepository interface {
	Create(ctx context.Context, lead *Lead) error
	MarkDelivery(ctx context.Context, id string, delivered bool, status int) error
}
