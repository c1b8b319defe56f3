package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reunion_archive/internal/model"
)

type stubStats struct{ stats model.ArchiveStats }

func (s stubStats) Get(ctx context.Context) (*model.ArchiveStats, error) {
	return &s.stats, nil
}

func TestAdminService_SetRole(t *testing.T) {
	var changed []string
	users := &mockUserRepository{
		setRoleFn: func(ctx context.Context, id, role string) (*model.User, error) {
			changed = append(changed, id+"="+role)
			return &model.User{ID: id, Role: role}, nil
		},
	}
	svc := NewAdminService(NewUserService(users), nil, stubStats{})

	user, err := svc.SetRole(context.Background(), "admin-1", "u-2", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)

	_, err = svc.SetRole(context.Background(), "admin-1", "admin-1", model.RoleMember)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = svc.SetRole(context.Background(), "admin-1", "u-2", "owner")
	assert.ErrorIs(t, err, model.ErrInvalidRole)

	assert.Equal(t, []string{"u-2=admin"}, changed)
}

func TestAdminService_DeleteComment_AnyAuthor(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newCommentFixture(t, db)
	f.comments.getByIDFn = func(ctx context.Context, id string) (*model.Comment, error) {
		return &model.Comment{ID: id, StoryID: "s1", AuthorID: "someone"}, nil
	}
	svc := NewAdminService(nil, f.svc, stubStats{})

	require.NoError(t, svc.DeleteComment(context.Background(), "admin-1", "c9"))

	assert.Equal(t, []string{"c9"}, f.comments.deleted)
	assert.Equal(t, []int{-1}, f.stories.countDeltas)
	assert.Equal(t, []string{"s1"}, f.cache.invalidated)
}

func TestAdminService_DeleteComment_Missing(t *testing.T) {
	db, _ := newMockDB(t)
	f := newCommentFixture(t, db)
	svc := NewAdminService(nil, f.svc, stubStats{})

	err := svc.DeleteComment(context.Background(), "admin-1", "nope")
	assert.ErrorIs(t, err, model.ErrCommentNotFound)
}

func TestAdminService_Stats(t *testing.T) {
	svc := NewAdminService(nil, nil, stubStats{stats: model.ArchiveStats{Users: 3, Comments: 12}})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Users)
	assert.Equal(t, 12, stats.Comments)
}
