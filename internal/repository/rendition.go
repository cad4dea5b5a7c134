package repository

import (
	"context"

	"bookbuddy/internal/model"
)

// RenditionRepository defines data access for archived renditions using SQL queries only.
type RenditionRepository interface {
	// Create inserts a new rendition record and returns the stored row.
	Create(ctx context.Context, r *model.Rendition) (*model.Rendition, error)

	// FindByID returns a rendition by its ID. A missing row yields sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Rendition, error)

	// List returns a page of renditions, newest first, with the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Rendition], error)

	// Delete removes a rendition by ID. It returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error
}
