package postgres

import (
	"context"
	"database/sql"

	"bookbuddy/internal/model"
	"bookbuddy/internal/repository"
)

// DeliveryPostgres stores webhook attempts in the deliveries table.
type DeliveryPostgres struct {
	db *sql.DB
}

func NewDeliveryPostgres(db *sql.DB) *DeliveryPostgres {
	return &DeliveryPostgres{db: db}
}

var _ repository.DeliveryRepository = (*DeliveryPostgres)(nil)

const deliveryColumns = `id, session_id, source, destination, success, status_code, response_excerpt, error, payload_size, created_at`

func scanDelivery(s scanner) (*model.Delivery, error) {
	var (
		d      model.Delivery
		status sql.NullInt32
	)
	if err := s.Scan(
		&d.ID,
		&d.SessionID,
		&d.Source,
		&d.Destination,
		&d.Success,
		&status,
		&d.ResponseExcerpt,
		&d.Error,
		&d.PayloadSize,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	if status.Valid {
		code := int(status.Int32)
		d.StatusCode = &code
	}
	return &d, nil
}

func (p *DeliveryPostgres) Create(ctx context.Context, d *model.Delivery) (*model.Delivery, error) {
	const q = `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + deliveryColumns
	var status sql.NullInt32
	if d.StatusCode != nil {
		status = sql.NullInt32{Int32: int32(*d.StatusCode), Valid: true}
	}
	row := p.db.QueryRowContext(ctx, q,
		d.ID,
		d.SessionID,
		d.Source,
		d.Destination,
		d.Success,
		status,
		d.ResponseExcerpt,
		d.Error,
		d.PayloadSize,
		d.CreatedAt,
	)
	return scanDelivery(row)
}

func (p *DeliveryPostgres) ListRecent(ctx context.Context, sessionID string, limit int) ([]model.Delivery, error) {
	const q = `SELECT ` + deliveryColumns + ` FROM deliveries
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := p.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Delivery, 0, limit)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}
