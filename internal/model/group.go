package model

import (
	"errors"
	"time"
)

// Group is a reunion class or cohort. Every directory entry, event, photo and
// story belongs to exactly one group; clients switch between the groups a user
// belongs to.
type Group struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description *string   `db:"description" json:"description"`
	LogoURL     *string   `db:"logo_url" json:"logo_url"`
	LogoKey     *string   `db:"logo_key" json:"-"`
	ThemeColor  string    `db:"theme_color" json:"theme_color"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Joined for the current user
	MyRole string `db:"my_role" json:"my_role,omitempty"`
}

// Group membership roles
const (
	GroupRoleOwner  = "owner"
	GroupRoleMember = "member"
)

// GroupMembership links a user to a group.
type GroupMembership struct {
	GroupID  string    `db:"group_id" json:"group_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// CreateGroupRequest is the request body for creating a group.
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Slug        string  `json:"slug" validate:"required,max=64,slug"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ThemeColor  string  `json:"theme_color" validate:"omitempty,hexcolor"`
}

// UpdateGroupRequest is the request body for updating a group. Nil fields are left unchanged.
type UpdateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ThemeColor  *string `json:"theme_color" validate:"omitempty,hexcolor"`
}

// AddGroupMemberRequest adds an existing user to a group.
type AddGroupMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=owner member"`
}

// DefaultThemeColor is used when a group is created without one.
const DefaultThemeColor = "#1f6feb"

// Group errors
var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrGroupSlugExists = errors.New("group slug already exists")
	ErrNotGroupMember  = errors.New("not a member of this group")
	ErrNotGroupOwner   = errors.New("not an owner of this group")
	ErrLastGroupOwner  = errors.New("cannot remove the last owner of a group")
)
