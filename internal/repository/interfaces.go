package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"reunion_archive/internal/model"
)

// TxBeginner starts transactions; *sqlx.DB satisfies it.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, cursor *string, limit int) ([]model.User, *string, error)
	SetRole(ctx context.Context, id, role string) (*model.User, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type DeviceTokenRepository interface {
	// Upsert creates or updates a device token for a user
	Upsert(ctx context.Context, userID, token, platform string) error
	// GetByUserID returns all device tokens for a user
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	// Delete removes a device token owned by the user
	Delete(ctx context.Context, userID, token string) error
}

type GroupRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	ListForUser(ctx context.Context, userID string) ([]model.Group, error)
	Update(ctx context.Context, id string, req model.UpdateGroupRequest) (*model.Group, error)
	SetLogo(ctx context.Context, id string, logoURL, logoKey string) (*model.Group, error)
	// AddMember inserts or updates a membership
	AddMember(ctx context.Context, tx *sqlx.Tx, groupID, userID, role string) error
	RemoveMember(ctx context.Context, tx *sqlx.Tx, groupID, userID string) error
	GetMembership(ctx context.Context, groupID, userID string) (*model.GroupMembership, error)
	// LockOwners returns the owners' user ids and holds their membership rows
	// locked until tx ends.
	LockOwners(ctx context.Context, tx *sqlx.Tx, groupID string) ([]string, error)
}

type MemberRepository interface {
	List(ctx context.Context, groupID, query string) ([]model.Member, error)
	GetByID(ctx context.Context, groupID, id string) (*model.Member, error)
	Create(ctx context.Context, groupID string, in model.MemberInput) (*model.Member, error)
	Update(ctx context.Context, groupID, id string, in model.MemberInput) (*model.Member, error)
	Delete(ctx context.Context, groupID, id string) error
}

type EventRepository interface {
	// List returns events in chronological order; year filters by occurred_at when set
	List(ctx context.Context, groupID string, year *int) ([]model.Event, error)
	GetByID(ctx context.Context, groupID, id string) (*model.Event, error)
	Create(ctx context.Context, groupID, createdBy string, in model.EventInput) (*model.Event, error)
	Update(ctx context.Context, groupID, id string, in model.EventInput) (*model.Event, error)
	Delete(ctx context.Context, groupID, id string) error
}

type PhotoRepository interface {
	Create(ctx context.Context, photo *model.Photo) error
	GetByID(ctx context.Context, groupID, id string) (*model.Photo, error)
	List(ctx context.Context, groupID string, eventID *string, cursor *string, limit int) ([]model.Photo, *string, error)
	Delete(ctx context.Context, groupID, id string) error
}

type StoryRepository interface {
	Create(ctx context.Context, story *model.Story) error
	GetByID(ctx context.Context, id string) (*model.Story, error)
	List(ctx context.Context, groupID string, cursor *string, limit int) ([]model.Story, *string, error)
	Update(ctx context.Context, id string, in model.StoryInput) (*model.Story, error)
	// SoftDelete marks the story deleted inside tx
	SoftDelete(ctx context.Context, tx *sqlx.Tx, id string) error
	IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, id string, delta int) error
}

type CommentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	// ListByStory returns every comment of a story, newest first, with authors joined
	ListByStory(ctx context.Context, storyID string) ([]model.Comment, error)
	UpdateContent(ctx context.Context, id, content string) (*model.Comment, error)
	// ToggleLike adds or removes userID in liked_by and returns the new state
	ToggleLike(ctx context.Context, id, userID string) (liked bool, likeCount int, err error)
	Delete(ctx context.Context, tx *sqlx.Tx, id string) error
	DeleteByStory(ctx context.Context, tx *sqlx.Tx, storyID string) (int64, error)
}

type StatsRepository interface {
	Get(ctx context.Context) (*model.ArchiveStats, error)
}
