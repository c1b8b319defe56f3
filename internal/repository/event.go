package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"reunion_archive/internal/model"
)

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, group_id, title, description, location, occurred_at, cover_url, created_by, created_at, updated_at`

func (r *eventRepository) List(ctx context.Context, groupID string, year *int) ([]model.Event, error) {
	events := []model.Event{}
	var err error
	if year == nil {
		err = r.db.SelectContext(ctx, &events,
			`SELECT `+eventColumns+` FROM events WHERE group_id = $1 ORDER BY occurred_at ASC, id ASC`, groupID)
	} else {
		err = r.db.SelectContext(ctx, &events, `
			SELECT `+eventColumns+` FROM events
			WHERE group_id = $1 AND EXTRACT(YEAR FROM occurred_at) = $2
			ORDER BY occurred_at ASC, id ASC`, groupID, *year)
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) GetByID(ctx context.Context, groupID, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.GetContext(ctx, &e, `SELECT `+eventColumns+` FROM events WHERE id = $1 AND group_id = $2`, id, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

func (r *eventRepository) Create(ctx context.Context, groupID, createdBy string, in model.EventInput) (*model.Event, error) {
	query := `
		INSERT INTO events (group_id, title, description, location, occurred_at, cover_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + eventColumns

	var e model.Event
	err := r.db.GetContext(ctx, &e, query, groupID, in.Title, in.Description, in.Location, in.OccurredAt, in.CoverURL, createdBy)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &e, nil
}

func (r *eventRepository) Update(ctx context.Context, groupID, id string, in model.EventInput) (*model.Event, error) {
	query := `
		UPDATE events
		SET title = $1, description = $2, location = $3, occurred_at = $4, cover_url = $5, updated_at = NOW()
		WHERE id = $6 AND group_id = $7
		RETURNING ` + eventColumns

	var e model.Event
	err := r.db.GetContext(ctx, &e, query, in.Title, in.Description, in.Location, in.OccurredAt, in.CoverURL, id, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return &e, nil
}

func (r *eventRepository) Delete(ctx context.Context, groupID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1 AND group_id = $2`, id, groupID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrEventNotFound
	}
	return nil
}
