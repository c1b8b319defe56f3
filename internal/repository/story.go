package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"reunion_archive/internal/model"
)

type storyRepository struct {
	db *sqlx.DB
}

func NewStoryRepository(db *sqlx.DB) StoryRepository {
	return &storyRepository{db: db}
}

const storyColumns = `id, group_id, author_id, title, body, cover_url, comment_count, created_at, updated_at, deleted_at`

const storyWithAuthor = `
	SELECT s.id, s.group_id, s.author_id, s.title, s.body, s.cover_url, s.comment_count,
	       s.created_at, s.updated_at, s.deleted_at,
	       u.username AS author_username, u.display_name AS author_display_name,
	       u.avatar_url AS author_avatar_url
	FROM stories s
	JOIN users u ON u.id = s.author_id
`

type storyRow struct {
	model.Story
	AuthorUsername    string  `db:"author_username"`
	AuthorDisplayName *string `db:"author_display_name"`
	AuthorAvatarURL   *string `db:"author_avatar_url"`
}

func (row storyRow) toStory() model.Story {
	s := row.Story
	s.Author = &model.UserSummary{
		ID:          s.AuthorID,
		Username:    row.AuthorUsername,
		DisplayName: row.AuthorDisplayName,
		AvatarURL:   row.AuthorAvatarURL,
	}
	return s
}

func (r *storyRepository) Create(ctx context.Context, s *model.Story) error {
	query := `
		INSERT INTO stories (group_id, author_id, title, body, cover_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, comment_count, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, s.GroupID, s.AuthorID, s.Title, s.Body, s.CoverURL).
		Scan(&s.ID, &s.CommentCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

// GetByID returns a live story with its author. Soft-deleted stories are not found.
func (r *storyRepository) GetByID(ctx context.Context, id string) (*model.Story, error) {
	var row storyRow
	err := r.db.GetContext(ctx, &row, storyWithAuthor+` WHERE s.id = $1 AND s.deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	s := row.toStory()
	return &s, nil
}

// List returns a page of live stories, newest first. Bodies are left empty.
func (r *storyRepository) List(ctx context.Context, groupID string, cursor *string, limit int) ([]model.Story, *string, error) {
	query := storyWithAuthor + ` WHERE s.group_id = $1 AND s.deleted_at IS NULL
		ORDER BY s.created_at DESC, s.id DESC LIMIT $2`
	args := []interface{}{groupID, limit + 1}
	if cursor != nil {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		query = storyWithAuthor + ` WHERE s.group_id = $1 AND s.deleted_at IS NULL
			AND (s.created_at, s.id) < ($2, $3::uuid)
			ORDER BY s.created_at DESC, s.id DESC LIMIT $4`
		args = []interface{}{groupID, ts, id, limit + 1}
	}

	var rows []storyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list stories: %w", err)
	}

	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		next = &c
	}

	stories := make([]model.Story, len(rows))
	for i, row := range rows {
		stories[i] = row.toStory()
		stories[i].Body = ""
	}
	return stories, next, nil
}

func (r *storyRepository) Update(ctx context.Context, id string, in model.StoryInput) (*model.Story, error) {
	query := `
		UPDATE stories
		SET title = $1, body = $2, cover_url = $3, updated_at = NOW()
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING ` + storyColumns

	var s model.Story
	err := r.db.GetContext(ctx, &s, query, in.Title, in.Body, in.CoverURL, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update story: %w", err)
	}
	return &s, nil
}

func (r *storyRepository) SoftDelete(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE stories SET deleted_at = $1, comment_count = 0 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("soft delete story: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrStoryNotFound
	}
	return nil
}

// IncrementCommentCount moves the denormalized counter by delta, never below zero.
func (r *storyRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, id string, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE stories SET comment_count = GREATEST(comment_count + $1, 0) WHERE id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("update comment count: %w", err)
	}
	return nil
}
