package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"reunion_archive/internal/model"
)

type statsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Get(ctx context.Context) (*model.ArchiveStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM groups) AS groups,
			(SELECT COUNT(*) FROM members) AS members,
			(SELECT COUNT(*) FROM events) AS events,
			(SELECT COUNT(*) FROM photos) AS photos,
			(SELECT COUNT(*) FROM stories WHERE deleted_at IS NULL) AS stories,
			(SELECT COUNT(*) FROM comments) AS comments
	`
	var s model.ArchiveStats
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &s, nil
}
