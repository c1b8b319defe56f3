package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"reunion_archive/internal/model"
)

type groupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) GroupRepository {
	return &groupRepository{db: db}
}

const groupColumns = `id, name, slug, description, logo_url, logo_key, theme_color, created_by, created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Create inserts the group inside tx; the caller adds the creator as owner in the same tx.
func (r *groupRepository) Create(ctx context.Context, tx *sqlx.Tx, g *model.Group) error {
	query := `
		INSERT INTO groups (name, slug, description, theme_color, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query, g.Name, g.Slug, g.Description, g.ThemeColor, g.CreatedBy).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrGroupSlugExists
		}
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	err := r.db.GetContext(ctx, &g, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &g, nil
}

// ListForUser returns the groups a user belongs to, with the user's role.
func (r *groupRepository) ListForUser(ctx context.Context, userID string) ([]model.Group, error) {
	query := `
		SELECT g.id, g.name, g.slug, g.description, g.logo_url, g.logo_key, g.theme_color,
		       g.created_by, g.created_at, g.updated_at, m.role AS my_role
		FROM groups g
		JOIN group_memberships m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.name ASC
	`
	groups := []model.Group{}
	if err := r.db.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Update applies the non-nil fields of req.
func (r *groupRepository) Update(ctx context.Context, id string, req model.UpdateGroupRequest) (*model.Group, error) {
	query := `
		UPDATE groups
		SET name = COALESCE($1, name),
		    description = COALESCE($2, description),
		    theme_color = COALESCE($3, theme_color),
		    updated_at = NOW()
		WHERE id = $4
		RETURNING ` + groupColumns

	var g model.Group
	err := r.db.GetContext(ctx, &g, query, req.Name, req.Description, req.ThemeColor, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return &g, nil
}

func (r *groupRepository) SetLogo(ctx context.Context, id string, logoURL, logoKey string) (*model.Group, error) {
	query := `
		UPDATE groups SET logo_url = $1, logo_key = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + groupColumns

	var g model.Group
	err := r.db.GetContext(ctx, &g, query, logoURL, logoKey, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set group logo: %w", err)
	}
	return &g, nil
}

// AddMember inserts a membership or updates the role of an existing one.
// tx may be nil when the call is not part of a larger transaction.
func (r *groupRepository) AddMember(ctx context.Context, tx *sqlx.Tx, groupID, userID, role string) error {
	query := `
		INSERT INTO group_memberships (group_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, groupID, userID, role)
	} else {
		_, err = r.db.ExecContext(ctx, query, groupID, userID, role)
	}
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership. tx may be nil, as in AddMember.
func (r *groupRepository) RemoveMember(ctx context.Context, tx *sqlx.Tx, groupID, userID string) error {
	query := `DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`
	var (
		res sql.Result
		err error
	)
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, groupID, userID)
	} else {
		res, err = r.db.ExecContext(ctx, query, groupID, userID)
	}
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotGroupMember
	}
	return nil
}

func (r *groupRepository) GetMembership(ctx context.Context, groupID, userID string) (*model.GroupMembership, error) {
	query := `
		SELECT group_id, user_id, role, joined_at
		FROM group_memberships
		WHERE group_id = $1 AND user_id = $2
	`
	var m model.GroupMembership
	err := r.db.GetContext(ctx, &m, query, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotGroupMember
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func (r *groupRepository) LockOwners(ctx context.Context, tx *sqlx.Tx, groupID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM group_memberships
		WHERE group_id = $1 AND role = 'owner'
		ORDER BY user_id
		FOR UPDATE
	`
	owners := []string{}
	if err := tx.SelectContext(ctx, &owners, query, groupID); err != nil {
		return nil, fmt.Errorf("lock owners: %w", err)
	}
	return owners, nil
}
