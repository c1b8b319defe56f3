package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reunion_archive/internal/model"
)

func newStoryFixture(t *testing.T, db *sqlx.DB) (*StoryService, *mockStoryRepository, *mockCommentRepository, *fakeThreadCache) {
	t.Helper()
	stories := &mockStoryRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Story, error) {
			if id != "s1" {
				return nil, model.ErrStoryNotFound
			}
			return &model.Story{ID: "s1", GroupID: "g1", AuthorID: "author"}, nil
		},
	}
	comments := &mockCommentRepository{}
	users := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "writer"}, nil
		},
	}
	c := newFakeThreadCache()
	return NewStoryService(stories, comments, users, db, c), stories, comments, c
}

func TestStoryService_Create_SanitizesBody(t *testing.T) {
	db, _ := newMockDB(t)
	svc, _, _, _ := newStoryFixture(t, db)

	story, err := svc.Create(context.Background(), "g1", "author", model.StoryInput{
		Title: "<i>Class of 2004</i>",
		Body:  `<p onclick="steal()">We met <a href="javascript:alert(1)">here</a></p><script>alert(1)</script><ul><li>one</li></ul>`,
	})

	require.NoError(t, err)
	assert.Equal(t, "Class of 2004", story.Title)
	assert.NotContains(t, story.Body, "onclick")
	assert.NotContains(t, story.Body, "<script")
	assert.NotContains(t, story.Body, "javascript:")
	assert.Contains(t, story.Body, "<ul><li>one</li></ul>")
	assert.Equal(t, "writer", story.Author.Username)
}

func TestStoryService_Create_EmptyAfterSanitize(t *testing.T) {
	db, _ := newMockDB(t)
	svc, _, _, _ := newStoryFixture(t, db)

	_, err := svc.Create(context.Background(), "g1", "author", model.StoryInput{Title: "t", Body: "<script>x</script>"})
	assert.ErrorIs(t, err, model.ErrBodyRequired)
}

func TestStoryService_Get_OtherGroup(t *testing.T) {
	db, _ := newMockDB(t)
	svc, _, _, _ := newStoryFixture(t, db)

	_, err := svc.Get(context.Background(), "g2", "s1")
	assert.ErrorIs(t, err, model.ErrStoryNotFound)
}

func TestStoryService_List_ClampsLimit(t *testing.T) {
	db, _ := newMockDB(t)
	svc, stories, _, _ := newStoryFixture(t, db)

	var got []int
	stories.listFn = func(ctx context.Context, groupID string, cursor *string, limit int) ([]model.Story, *string, error) {
		got = append(got, limit)
		return nil, nil, nil
	}

	for _, limit := range []int{0, 5, 500} {
		res, err := svc.List(context.Background(), "g1", nil, limit)
		require.NoError(t, err)
		assert.NotNil(t, res.Stories)
		assert.False(t, res.HasMore)
	}
	assert.Equal(t, []int{defaultStoryPageSize, 5, maxStoryPageSize}, got)
}

func TestStoryService_Update_Permissions(t *testing.T) {
	db, _ := newMockDB(t)
	svc, _, _, _ := newStoryFixture(t, db)
	in := model.StoryInput{Title: "new", Body: "<p>body</p>"}

	_, err := svc.Update(context.Background(), "g1", "s1", &model.User{ID: "other"}, in)
	assert.ErrorIs(t, err, model.ErrNotStoryOwner)

	story, err := svc.Update(context.Background(), "g1", "s1", &model.User{ID: "mod", Role: model.RoleAdmin}, in)
	require.NoError(t, err)
	assert.Equal(t, "<p>body</p>", story.Body)
}

func TestStoryService_Delete_RemovesCommentsInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc, stories, comments, c := newStoryFixture(t, db)

	var removedFor string
	comments.deleteByStoryFn = func(ctx context.Context, tx *sqlx.Tx, storyID string) (int64, error) {
		require.NotNil(t, tx)
		removedFor = storyID
		return 4, nil
	}

	err := svc.Delete(context.Background(), "g1", "s1", &model.User{ID: "author"})

	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, stories.softDeleted)
	assert.Equal(t, "s1", removedFor)
	assert.Equal(t, []string{"s1"}, c.invalidated)
}

func TestStoryService_Delete_Forbidden(t *testing.T) {
	db, _ := newMockDB(t)
	svc, stories, _, _ := newStoryFixture(t, db)

	err := svc.Delete(context.Background(), "g1", "s1", &model.User{ID: "stranger"})

	assert.ErrorIs(t, err, model.ErrNotStoryOwner)
	assert.Empty(t, stories.softDeleted)
}
