package postgres

import (
	"context"
	"database/sql"

	"bookbuddy/internal/model"
	"bookbuddy/internal/repository"
)

// RenditionPostgres is a PostgreSQL implementation of repository.RenditionRepository.
type RenditionPostgres struct {
	db *sql.DB
}

func NewRenditionPostgres(db *sql.DB) *RenditionPostgres {
	return &RenditionPostgres{db: db}
}

var _ repository.RenditionRepository = (*RenditionPostgres)(nil)

const renditionColumns = `id, filename, title, author, format, style, storage_path, size, content_type, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRendition(s scanner) (*model.Rendition, error) {
	var r model.Rendition
	if err := s.Scan(
		&r.ID,
		&r.Filename,
		&r.Title,
		&r.Author,
		&r.Format,
		&r.Style,
		&r.StoragePath,
		&r.Size,
		&r.ContentType,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new rendition row and returns the stored record.
func (p *RenditionPostgres) Create(ctx context.Context, r *model.Rendition) (*model.Rendition, error) {
	const q = `
		INSERT INTO renditions (` + renditionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + renditionColumns
	row := p.db.QueryRowContext(ctx, q,
		r.ID,
		r.Filename,
		r.Title,
		r.Author,
		r.Format,
		r.Style,
		r.StoragePath,
		r.Size,
		r.ContentType,
		r.CreatedAt,
	)
	return scanRendition(row)
}

func (p *RenditionPostgres) FindByID(ctx context.Context, id string) (*model.Rendition, error) {
	const q = `SELECT ` + renditionColumns + ` FROM renditions WHERE id = $1`
	return scanRendition(p.db.QueryRowContext(ctx, q, id))
}

// List returns renditions using LIMIT/OFFSET pagination and a total count.
func (p *RenditionPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Rendition], error) {
	const qCount = `SELECT COUNT(*) FROM renditions`
	var total int
	if err := p.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `SELECT ` + renditionColumns + ` FROM renditions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := p.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Rendition, 0)
	for rows.Next() {
		r, err := scanRendition(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Rendition]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a rendition by ID. It does not return an error if the row does not exist.
func (p *RenditionPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM renditions WHERE id = $1`
	_, err := p.db.ExecContext(ctx, q, id)
	return err
}
