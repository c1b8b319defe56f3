package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reunion_archive/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestCommentRepository_ListByStory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "story_id", "parent_id", "author_id", "content", "audio_url",
		"like_count", "liked_by", "created_at", "updated_at",
		"author_username", "author_display_name", "author_avatar_url",
	}).
		AddRow("c2", "s1", "c1", "u2", "reply", nil, 1, "{u1}", now.Add(time.Minute), now.Add(time.Minute), "bao", nil, nil).
		AddRow("c1", "s1", "root", "u1", "hello", nil, 0, "{}", now, now, "an", "An Nguyen", nil)

	mock.ExpectQuery("SELECT c.id, c.story_id").WithArgs("s1").WillReturnRows(rows)

	comments, err := repo.ListByStory(context.Background(), "s1")

	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c2", comments[0].ID)
	assert.Equal(t, "c1", comments[0].ParentID)
	assert.Equal(t, []string{"u1"}, []string(comments[0].LikedBy))
	assert.Equal(t, "bao", comments[0].Author.Username)
	assert.True(t, comments[1].IsRoot())
	assert.Nil(t, comments[1].Replies)
	require.NotNil(t, comments[1].Author.DisplayName)
	assert.Equal(t, "An Nguyen", *comments[1].Author.DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ToggleLike(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery("UPDATE comments").
		WithArgs("c1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"liked", "like_count"}).AddRow(true, 3))

	liked, count, err := repo.ToggleLike(context.Background(), "c1", "u1")

	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ToggleLike_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery("UPDATE comments").
		WithArgs("missing", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"liked", "like_count"}))

	_, _, err := repo.ToggleLike(context.Background(), "missing", "u1")

	assert.ErrorIs(t, err, model.ErrCommentNotFound)
}

func TestCommentRepository_CreateInTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO comments").
		WithArgs("s1", "root", "u1", "hi", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "like_count", "liked_by", "created_at", "updated_at"}).
			AddRow("c9", 0, "{}", now, now))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	c := &model.Comment{StoryID: "s1", ParentID: model.RootParentID, AuthorID: "u1", Content: "hi"}
	require.NoError(t, repo.Create(context.Background(), tx, c))
	require.NoError(t, tx.Commit())

	assert.Equal(t, "c9", c.ID)
	assert.Empty(t, c.LikedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Delete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM comments WHERE id").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.Delete(context.Background(), tx, "gone")
	assert.ErrorIs(t, err, model.ErrCommentNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
