package model

import (
	"errors"
	"time"
)

// Photo is an image in a group's gallery, stored in object storage together
// with a square thumbnail.
type Photo struct {
	ID           string    `db:"id" json:"id"`
	GroupID      string    `db:"group_id" json:"group_id"`
	EventID      *string   `db:"event_id" json:"event_id,omitempty"`
	URL          string    `db:"url" json:"url"`
	Key          string    `db:"key" json:"-"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url"`
	ThumbnailKey string    `db:"thumbnail_key" json:"-"`
	Caption      *string   `db:"caption" json:"caption"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PhotoListResponse is the paginated gallery response.
type PhotoListResponse struct {
	Photos     []Photo `json:"photos"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// Gallery constants
const (
	MaxPhotoSizeBytes = 10 * 1024 * 1024 // 10MB per photo
	MaxCaptionLength  = 2200
	PhotoFolder       = "photos"
	ThumbnailFolder   = "thumbnails"
	ThumbnailSize     = 400
)

var (
	ErrPhotoNotFound  = errors.New("photo not found")
	ErrCaptionTooLong = errors.New("caption too long")
)
