package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"reunion_archive/internal/model"
)

type photoRepository struct {
	db *sqlx.DB
}

func NewPhotoRepository(db *sqlx.DB) PhotoRepository {
	return &photoRepository{db: db}
}

const photoColumns = `id, group_id, event_id, url, key, thumbnail_url, thumbnail_key, caption, uploaded_by, created_at`

func (r *photoRepository) Create(ctx context.Context, p *model.Photo) error {
	query := `
		INSERT INTO photos (group_id, event_id, url, key, thumbnail_url, thumbnail_key, caption, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		p.GroupID, p.EventID, p.URL, p.Key, p.ThumbnailURL, p.ThumbnailKey, p.Caption, p.UploadedBy,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

func (r *photoRepository) GetByID(ctx context.Context, groupID, id string) (*model.Photo, error) {
	var p model.Photo
	err := r.db.GetContext(ctx, &p, `SELECT `+photoColumns+` FROM photos WHERE id = $1 AND group_id = $2`, id, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return &p, nil
}

// List returns a page of the gallery, newest first. eventID narrows the page
// to one timeline event.
func (r *photoRepository) List(ctx context.Context, groupID string, eventID *string, cursor *string, limit int) ([]model.Photo, *string, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE group_id = $1`
	args := []interface{}{groupID}

	if eventID != nil {
		args = append(args, *eventID)
		query += fmt.Sprintf(` AND event_id = $%d`, len(args))
	}
	if cursor != nil {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, ts, id)
		query += fmt.Sprintf(` AND (created_at, id) < ($%d, $%d::uuid)`, len(args)-1, len(args))
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	photos := []model.Photo{}
	if err := r.db.SelectContext(ctx, &photos, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list photos: %w", err)
	}

	var next *string
	if len(photos) > limit {
		photos = photos[:limit]
		last := photos[len(photos)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		next = &c
	}
	return photos, next, nil
}

func (r *photoRepository) Delete(ctx context.Context, groupID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id = $1 AND group_id = $2`, id, groupID)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrPhotoNotFound
	}
	return nil
}
