package model

import (
	"errors"
	"time"
)

// Story is a long-form narrative post. Body holds sanitized HTML.
type Story struct {
	ID           string     `db:"id" json:"id"`
	GroupID      string     `db:"group_id" json:"group_id"`
	AuthorID     string     `db:"author_id" json:"author_id"`
	Title        string     `db:"title" json:"title"`
	Body         string     `db:"body" json:"body"`
	CoverURL     *string    `db:"cover_url" json:"cover_url"`
	CommentCount int        `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`

	Author *UserSummary `db:"-" json:"author,omitempty"`
}

// StoryInput is the request body for creating or replacing a story.
type StoryInput struct {
	Title    string  `json:"title" validate:"required,max=200"`
	Body     string  `json:"body" validate:"required,max=100000"`
	CoverURL *string `json:"cover_url" validate:"omitempty,url"`
}

// StoryListResponse is the paginated story list (bodies omitted).
type StoryListResponse struct {
	Stories    []Story `json:"stories"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// Story errors
var (
	ErrStoryNotFound = errors.New("story not found")
	ErrNotStoryOwner = errors.New("not the author of this story")
	ErrBodyRequired  = errors.New("story body is required")
)
