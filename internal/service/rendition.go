package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookbuddy/internal/model"
	"bookbuddy/internal/render"
	"bookbuddy/internal/repository"
	"bookbuddy/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("rendition not found")
)

// RenderRequest is one document to render and archive.
type RenderRequest struct {
	Content  string
	Metadata model.BookMetadata
	Style    render.Style
	Format   render.Format
	FontSize int
}

// RenderResult carries the stored record and the rendered bytes.
type RenderResult struct {
	Rendition *model.Rendition
	Data      []byte
}

// RenditionListResult is the service-level DTO for paginated renditions.
type RenditionListResult struct {
	Items []model.Rendition `json:"data"`
	Total int               `json:"total"`
}

// RenditionDetail is a rendition with a time-limited download link.
type RenditionDetail struct {
	model.Rendition
	DownloadURL string `json:"download_url"`
}

// RenditionService renders documents and manages the archive of results.
type RenditionService interface {
	// Render produces the document, uploads it and records it. The upload is
	// removed again if the record cannot be saved.
	Render(ctx context.Context, req RenderRequest) (*RenderResult, error)

	// List returns renditions using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*RenditionListResult, error)

	// Get returns a rendition with a presigned download URL.
	Get(ctx context.Context, id string) (*RenditionDetail, error)

	// Open streams the stored file. The caller closes the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Rendition, error)

	// Delete removes a rendition from both storage and repository.
	Delete(ctx context.Context, id string) error
}

type renditionService struct {
	store     storage.Storage
	repo      repository.RenditionRepository
	urlExpiry time.Duration
}

func NewRenditionService(store storage.Storage, repo repository.RenditionRepository, urlExpiry time.Duration) RenditionService {
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &renditionService{store: store, repo: repo, urlExpiry: urlExpiry}
}

func (s *renditionService) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	data, err := render.NewRenderer(req.FontSize).Render(req.Content, req.Metadata, req.Style, req.Format)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	key := storage.RenditionKey(id, req.Format.Extension())
	filename := Filename(req.Metadata.Title, req.Format)

	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: req.Format.ContentType(),
		Metadata: map[string]string{
			"filename": filename,
			"style":    string(req.Style),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	rec := &model.Rendition{
		ID:          id,
		Filename:    filename,
		Title:       req.Metadata.Title,
		Author:      req.Metadata.Author,
		Format:      string(req.Format),
		Style:       string(req.Style),
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: req.Format.ContentType(),
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, rec)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return &RenderResult{Rendition: stored, Data: data}, nil
}

func (s *renditionService) List(ctx context.Context, limit, offset int) (*RenditionListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &RenditionListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *renditionService) find(ctx context.Context, id string) (*model.Rendition, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *renditionService) Get(ctx context.Context, id string) (*RenditionDetail, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	u, err := s.store.PresignDownload(ctx, r.StoragePath, r.Filename, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	return &RenditionDetail{Rendition: *r, DownloadURL: u}, nil
}

func (s *renditionService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Rendition, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, r.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return rc, r, nil
}

// Delete removes the object first; if that fails the row stays so the object
// is not orphaned.
func (s *renditionService) Delete(ctx context.Context, id string) error {
	r, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, r.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

// Filename derives a download name from a title, e.g. "My Book.pdf".
func Filename(title string, f render.Format) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = render.DefaultTitle
	}
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, title)
	return title + f.Extension()
}
