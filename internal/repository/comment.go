package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"reunion_archive/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

const commentColumns = `id, story_id, parent_id, author_id, content, audio_url, like_count, liked_by, created_at, updated_at`

// Create inserts a new comment inside tx so the story counter moves with it.
func (r *commentRepository) Create(ctx context.Context, tx *sqlx.Tx, c *model.Comment) error {
	query := `
		INSERT INTO comments (story_id, parent_id, author_id, content, audio_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, like_count, liked_by, created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query, c.StoryID, c.ParentID, c.AuthorID, c.Content, c.AudioURL).
		Scan(&c.ID, &c.LikeCount, &c.LikedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetByID retrieves a single comment without its author.
func (r *commentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	var c model.Comment
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

// ListByStory returns the flat comment list of a story, newest first.
// The thread is assembled from this list, so it is never paginated.
func (r *commentRepository) ListByStory(ctx context.Context, storyID string) ([]model.Comment, error) {
	query := `
		SELECT c.id, c.story_id, c.parent_id, c.author_id, c.content, c.audio_url,
		       c.like_count, c.liked_by, c.created_at, c.updated_at,
		       u.username AS author_username, u.display_name AS author_display_name,
		       u.avatar_url AS author_avatar_url
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.story_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`

	type commentRow struct {
		ID                string         `db:"id"`
		StoryID           string         `db:"story_id"`
		ParentID          string         `db:"parent_id"`
		AuthorID          string         `db:"author_id"`
		Content           string         `db:"content"`
		AudioURL          *string        `db:"audio_url"`
		LikeCount         int            `db:"like_count"`
		LikedBy           pq.StringArray `db:"liked_by"`
		CreatedAt         time.Time      `db:"created_at"`
		UpdatedAt         time.Time      `db:"updated_at"`
		AuthorUsername    string         `db:"author_username"`
		AuthorDisplayName *string        `db:"author_display_name"`
		AuthorAvatarURL   *string        `db:"author_avatar_url"`
	}

	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, query, storyID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	comments := make([]model.Comment, len(rows))
	for i, row := range rows {
		comments[i] = model.Comment{
			ID:        row.ID,
			StoryID:   row.StoryID,
			ParentID:  row.ParentID,
			AuthorID:  row.AuthorID,
			Content:   row.Content,
			AudioURL:  row.AudioURL,
			LikeCount: row.LikeCount,
			LikedBy:   row.LikedBy,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
			Author: &model.UserSummary{
				ID:          row.AuthorID,
				Username:    row.AuthorUsername,
				DisplayName: row.AuthorDisplayName,
				AvatarURL:   row.AuthorAvatarURL,
			},
		}
	}
	return comments, nil
}

// UpdateContent replaces a comment's text. Ownership is checked by the service.
func (r *commentRepository) UpdateContent(ctx context.Context, id, content string) (*model.Comment, error) {
	query := `
		UPDATE comments
		SET content = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + commentColumns

	var c model.Comment
	err := r.db.GetContext(ctx, &c, query, content, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return &c, nil
}

// ToggleLike flips the user's like in a single statement. SET expressions see
// the old liked_by, RETURNING sees the new one.
func (r *commentRepository) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	query := `
		UPDATE comments
		SET liked_by = CASE WHEN $2::text = ANY(liked_by)
		                    THEN array_remove(liked_by, $2::text)
		                    ELSE array_append(liked_by, $2::text) END,
		    like_count = CASE WHEN $2::text = ANY(liked_by)
		                      THEN GREATEST(like_count - 1, 0)
		                      ELSE like_count + 1 END
		WHERE id = $1
		RETURNING $2::text = ANY(liked_by) AS liked, like_count
	`
	var res struct {
		Liked     bool `db:"liked"`
		LikeCount int  `db:"like_count"`
	}
	err := r.db.GetContext(ctx, &res, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, model.ErrCommentNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("toggle like: %w", err)
	}
	return res.Liked, res.LikeCount, nil
}

// Delete removes one comment. Its replies stay and are shown as roots.
func (r *commentRepository) Delete(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}

// DeleteByStory removes every comment of a story.
func (r *commentRepository) DeleteByStory(ctx context.Context, tx *sqlx.Tx, storyID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE story_id = $1`, storyID)
	if err != nil {
		return 0, fmt.Errorf("delete story comments: %w", err)
	}
	return res.RowsAffected()
}
