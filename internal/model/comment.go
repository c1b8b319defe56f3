package model

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// RootParentID marks a comment that has no parent inside its story.
const RootParentID = "root"

// Comment represents a comment on a story. Replies is derived on every read
// and never persisted.
type Comment struct {
	ID        string         `db:"id" json:"id"`
	StoryID   string         `db:"story_id" json:"story_id"`
	ParentID  string         `db:"parent_id" json:"parent_id"`
	AuthorID  string         `db:"author_id" json:"author_id"`
	Content   string         `db:"content" json:"content"`
	AudioURL  *string        `db:"audio_url" json:"audio_url,omitempty"`
	LikeCount int            `db:"like_count" json:"like_count"`
	LikedBy   pq.StringArray `db:"liked_by" json:"liked_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`

	Author  *UserSummary `db:"-" json:"author,omitempty"` // Joined field
	Replies []*Comment   `db:"-" json:"replies"`
}

// IsRoot reports whether the comment was stored without a parent.
func (c *Comment) IsRoot() bool {
	return c.ParentID == "" || c.ParentID == RootParentID
}

// LikedByUser reports whether userID is in the comment's liked_by set.
func (c *Comment) LikedByUser(userID string) bool {
	for _, id := range c.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// CreateCommentRequest is the request body for creating a comment.
// Either Content or AudioURL must be present.
type CreateCommentRequest struct {
	Content  string  `json:"content" validate:"max=2200"`
	ParentID string  `json:"parent_id,omitempty"`
	AudioURL *string `json:"audio_url,omitempty" validate:"omitempty,url"`
}

// UpdateCommentRequest is the request body for updating a comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,max=2200"`
}

// ThreadResponse is the comment forest of one story.
type ThreadResponse struct {
	StoryID  string     `json:"story_id"`
	Comments []*Comment `json:"comments"`
	Total    int        `json:"total"`
}

// LikeResponse is returned after toggling a like.
type LikeResponse struct {
	CommentID string `json:"comment_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

// Comment constraints
const (
	MaxCommentLength = 2200
)

// Comment errors
var (
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotCommentOwner  = errors.New("not the owner of this comment")
	ErrContentRequired  = errors.New("comment content or audio is required")
	ErrContentTooLong   = errors.New("comment content too long")
	ErrParentWrongStory = errors.New("parent comment belongs to another story")
)
