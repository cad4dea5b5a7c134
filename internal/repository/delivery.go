package repository

import (
	"context"

	"bookbuddy/internal/model"
)

// DeliveryRepository is the durable log of webhook attempts.
type DeliveryRepository interface {
	Create(ctx context.Context, d *model.Delivery) (*model.Delivery, error)

	// ListRecent returns at most limit attempts for a session, newest first.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]model.Delivery, error)
}
