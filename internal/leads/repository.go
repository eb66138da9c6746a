package leads

import (
	"context"
	"encoding/json"
	"fmt"

	"leadcapture/internal/common/database"
	"leadcapture/internal/common/errors"
	"leadcapture/internal/models"
)

const (
	insertLeadQuery = `INSERT INTO lead_submissions
		(id, form, name, email, phone, company, payload, delivered, webhook_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	markDeliveryQuery = `UPDATE lead_submissions
		SET delivered = $2, webhook_status = $3
		WHERE id = $1`
)

// PostgresRepository stores leads in the lead_submissions table.
type PostgresRepository struct {
	db *database.PostgresClient
}

func NewPostgresRepository(db *database.PostgresClient) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, lead *models.Lead) error {
	payload, err := json.Marshal(lead.Payload)
	if err != nil {
		return errors.NewInternalError(fmt.Errorf("marshal lead payload: %w", err))
	}

	_, err = r.db.Exec(ctx, insertLeadQuery,
		lead.ID,
		lead.Form,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Company,
		payload,
		lead.Delivered,
		lead.WebhookStatus,
		lead.CreatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (r *PostgresRepository) MarkDelivery(ctx context.Context, id string, delivered bool, status int) error {
	res, err := r.db.Exec(ctx, markDeliveryQuery, id, delivered, status)
	if err != nil {
		return errors.NewDatabaseQueryFailedError("mark delivery", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewDatabaseQueryFailedError("mark delivery", fmt.Errorf("lead %s not found", id))
	}
	return nil
}
