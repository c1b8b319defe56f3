package model

import (
	"time"
)

// DeviceToken represents a user's registered device for reply and like pushes.
// Supports multiple devices per user.
type DeviceToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"`           // FCM token, hidden from JSON
	Platform  string    `db:"platform" json:"platform"` // "ios", "android", "web"
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterTokenRequest is the request body for registering a device token.
type RegisterTokenRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"omitempty,oneof=ios android web"`
}

// UnregisterTokenRequest is the request body for removing a device token.
type UnregisterTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// Platform constants
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)
