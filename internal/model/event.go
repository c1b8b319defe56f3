package model

import (
	"errors"
	"time"
)

// Event is an entry on a group's timeline.
type Event struct {
	ID          string    `db:"id" json:"id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description"`
	Location    *string   `db:"location" json:"location"`
	OccurredAt  time.Time `db:"occurred_at" json:"occurred_at"`
	CoverURL    *string   `db:"cover_url" json:"cover_url"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EventInput is the request body for creating or replacing a timeline event.
type EventInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=10000"`
	Location    *string   `json:"location" validate:"omitempty,max=200"`
	OccurredAt  time.Time `json:"occurred_at" validate:"required"`
	CoverURL    *string   `json:"cover_url" validate:"omitempty,url"`
}

// TimelineResponse lists events in chronological order.
type TimelineResponse struct {
	Events []Event `json:"events"`
}

var (
	ErrEventNotFound = errors.New("event not found")
	ErrTitleRequired = errors.New("title is required")
)
