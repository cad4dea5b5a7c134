package model

import "time"

// Rendition is a rendered book file archived in object storage.
type Rendition struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Format      string    `json:"format"`
	Style       string    `json:"style"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
