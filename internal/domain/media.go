package domain

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// MediaType classifies stored review media.
type MediaType string

const (
	MediaPhoto MediaType = "PHOTO"
	MediaVideo MediaType = "VIDEO"
)

// MediaCategory is the content category handed to the media store.
type MediaCategory string

const (
	CategoryImage MediaCategory = "image"
	CategoryVideo MediaCategory = "video"
)

// Media is a photo or video attached to a review. DeleteHandle is the
// deletion token issued by the media store.
type Media struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ReviewID     uuid.UUID `json:"-" db:"review_id"`
	Type         MediaType `json:"type" db:"type"`
	URL          string    `json:"url" db:"url"`
	DeleteHandle string    `json:"-" db:"delete_handle"`
}

// MediaBlob is a binary upload handed to the media store.
type MediaBlob struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
	Category    MediaCategory
}

// StoredMedia is the durable location of an uploaded blob.
type StoredMedia struct {
	URL          string
	DeleteHandle string
}

// MediaStore is the external collaborator that persists binary blobs.
type MediaStore interface {
	// Store uploads the blob and returns its durable URL and deletion handle
	Store(ctx context.Context, blob MediaBlob) (*StoredMedia, error)

	// Delete removes a previously stored blob by its deletion handle
	Delete(ctx context.Context, deleteHandle string) error
}
