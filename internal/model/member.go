package model

import (
	"errors"
	"time"
)

// Member is a classmate entry in a group's directory. UserID links the entry
// to an account when the classmate has signed up.
type Member struct {
	ID         string    `db:"id" json:"id"`
	GroupID    string    `db:"group_id" json:"group_id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	FullName   string    `db:"full_name" json:"full_name"`
	Nickname   *string   `db:"nickname" json:"nickname"`
	ClassName  *string   `db:"class_name" json:"class_name"`
	City       *string   `db:"city" json:"city"`
	Occupation *string   `db:"occupation" json:"occupation"`
	Bio        *string   `db:"bio" json:"bio"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url"`
	Email      *string   `db:"email" json:"email"`
	Phone      *string   `db:"phone" json:"phone"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// MemberInput is the request body for creating or replacing a directory entry.
type MemberInput struct {
	UserID     *string `json:"user_id"`
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Nickname   *string `json:"nickname" validate:"omitempty,max=60"`
	ClassName  *string `json:"class_name" validate:"omitempty,max=60"`
	City       *string `json:"city" validate:"omitempty,max=120"`
	Occupation *string `json:"occupation" validate:"omitempty,max=120"`
	Bio        *string `json:"bio" validate:"omitempty,max=4000"`
	AvatarURL  *string `json:"avatar_url" validate:"omitempty,url"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
}

// MemberListResponse is the directory listing.
type MemberListResponse struct {
	Members []Member `json:"members"`
	Total   int      `json:"total"`
}

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrFullNameRequired = errors.New("full name is required")
)
