package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"reunion_archive/internal/model"
)

type memberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) MemberRepository {
	return &memberRepository{db: db}
}

const memberColumns = `id, group_id, user_id, full_name, nickname, class_name, city, occupation, bio,
	avatar_url, email, phone, created_at, updated_at`

// List returns the directory ordered by name. A non-empty query matches
// name, nickname, city or occupation case-insensitively.
func (r *memberRepository) List(ctx context.Context, groupID, query string) ([]model.Member, error) {
	members := []model.Member{}
	query = strings.TrimSpace(query)
	if query == "" {
		err := r.db.SelectContext(ctx, &members,
			`SELECT `+memberColumns+` FROM members WHERE group_id = $1 ORDER BY full_name ASC, id ASC`, groupID)
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		return members, nil
	}

	pattern := "%" + escapeLike(query) + "%"
	err := r.db.SelectContext(ctx, &members, `
		SELECT `+memberColumns+`
		FROM members
		WHERE group_id = $1
		  AND (full_name ILIKE $2 OR nickname ILIKE $2 OR city ILIKE $2 OR occupation ILIKE $2)
		ORDER BY full_name ASC, id ASC
	`, groupID, pattern)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	return members, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *memberRepository) GetByID(ctx context.Context, groupID, id string) (*model.Member, error) {
	var m model.Member
	err := r.db.GetContext(ctx, &m, `SELECT `+memberColumns+` FROM members WHERE id = $1 AND group_id = $2`, id, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (r *memberRepository) Create(ctx context.Context, groupID string, in model.MemberInput) (*model.Member, error) {
	query := `
		INSERT INTO members (group_id, user_id, full_name, nickname, class_name, city, occupation, bio, avatar_url, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + memberColumns

	var m model.Member
	err := r.db.GetContext(ctx, &m, query, groupID, in.UserID, in.FullName, in.Nickname, in.ClassName,
		in.City, in.Occupation, in.Bio, in.AvatarURL, in.Email, in.Phone)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return &m, nil
}

func (r *memberRepository) Update(ctx context.Context, groupID, id string, in model.MemberInput) (*model.Member, error) {
	query := `
		UPDATE members
		SET user_id = $1, full_name = $2, nickname = $3, class_name = $4, city = $5, occupation = $6,
		    bio = $7, avatar_url = $8, email = $9, phone = $10, updated_at = NOW()
		WHERE id = $11 AND group_id = $12
		RETURNING ` + memberColumns

	var m model.Member
	err := r.db.GetContext(ctx, &m, query, in.UserID, in.FullName, in.Nickname, in.ClassName, in.City,
		in.Occupation, in.Bio, in.AvatarURL, in.Email, in.Phone, id, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return &m, nil
}

func (r *memberRepository) Delete(ctx context.Context, groupID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1 AND group_id = $2`, id, groupID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrMemberNotFound
	}
	return nil
}
