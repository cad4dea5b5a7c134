package model

// BookMetadata describes the book a rendition is produced for. No field is
// required and none is validated beyond what the renderer needs.
type BookMetadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	ISBN        string `json:"isbn"`
	Publisher   string `json:"publisher"`
	Year        string `json:"year"`
	Description string `json:"description"`
}
