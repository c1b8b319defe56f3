package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"reunion_archive/internal/cache"
	"reunion_archive/internal/model"
	"reunion_archive/internal/queue"
)

// newMockDB returns a sqlx handle whose transactions are scripted through mock.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

// =============================================================================
// COMMENTS
// =============================================================================

type mockCommentRepository struct {
	createFn        func(ctx context.Context, tx *sqlx.Tx, c *model.Comment) error
	getByIDFn       func(ctx context.Context, id string) (*model.Comment, error)
	listByStoryFn   func(ctx context.Context, storyID string) ([]model.Comment, error)
	updateContentFn func(ctx context.Context, id, content string) (*model.Comment, error)
	toggleLikeFn    func(ctx context.Context, id, userID string) (bool, int, error)
	deleteFn        func(ctx context.Context, tx *sqlx.Tx, id string) error
	deleteByStoryFn func(ctx context.Context, tx *sqlx.Tx, storyID string) (int64, error)

	created   []*model.Comment
	deleted   []string
	listCalls int
}

func (m *mockCommentRepository) Create(ctx context.Context, tx *sqlx.Tx, c *model.Comment) error {
	m.created = append(m.created, c)
	if m.createFn != nil {
		return m.createFn(ctx, tx, c)
	}
	c.ID = "new-comment"
	return nil
}

func (m *mockCommentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepository) ListByStory(ctx context.Context, storyID string) ([]model.Comment, error) {
	m.listCalls++
	if m.listByStoryFn != nil {
		return m.listByStoryFn(ctx, storyID)
	}
	return []model.Comment{}, nil
}

func (m *mockCommentRepository) UpdateContent(ctx context.Context, id, content string) (*model.Comment, error) {
	if m.updateContentFn != nil {
		return m.updateContentFn(ctx, id, content)
	}
	return &model.Comment{ID: id, Content: content}, nil
}

func (m *mockCommentRepository) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	if m.toggleLikeFn != nil {
		return m.toggleLikeFn(ctx, id, userID)
	}
	return true, 1, nil
}

func (m *mockCommentRepository) Delete(ctx context.Context, tx *sqlx.Tx, id string) error {
	m.deleted = append(m.deleted, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tx, id)
	}
	return nil
}

func (m *mockCommentRepository) DeleteByStory(ctx context.Context, tx *sqlx.Tx, storyID string) (int64, error) {
	if m.deleteByStoryFn != nil {
		return m.deleteByStoryFn(ctx, tx, storyID)
	}
	return 0, nil
}

// =============================================================================
// STORIES
// =============================================================================

type mockStoryRepository struct {
	createFn     func(ctx context.Context, story *model.Story) error
	getByIDFn    func(ctx context.Context, id string) (*model.Story, error)
	listFn       func(ctx context.Context, groupID string, cursor *string, limit int) ([]model.Story, *string, error)
	updateFn     func(ctx context.Context, id string, in model.StoryInput) (*model.Story, error)
	softDeleteFn func(ctx context.Context, tx *sqlx.Tx, id string) error

	countDeltas []int
	softDeleted []string
}

func (m *mockStoryRepository) Create(ctx context.Context, story *model.Story) error {
	if m.createFn != nil {
		return m.createFn(ctx, story)
	}
	story.ID = "new-story"
	return nil
}

func (m *mockStoryRepository) GetByID(ctx context.Context, id string) (*model.Story, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrStoryNotFound
}

func (m *mockStoryRepository) List(ctx context.Context, groupID string, cursor *string, limit int) ([]model.Story, *string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, groupID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockStoryRepository) Update(ctx context.Context, id string, in model.StoryInput) (*model.Story, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return &model.Story{ID: id, Title: in.Title, Body: in.Body}, nil
}

func (m *mockStoryRepository) SoftDelete(ctx context.Context, tx *sqlx.Tx, id string) error {
	m.softDeleted = append(m.softDeleted, id)
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, tx, id)
	}
	return nil
}

func (m *mockStoryRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, id string, delta int) error {
	m.countDeltas = append(m.countDeltas, delta)
	return nil
}

// =============================================================================
// GROUPS
// =============================================================================

type mockGroupRepository struct {
	groups      map[string]*model.Group
	memberships map[string]string // groupID/userID -> role

	createFn func(ctx context.Context, tx *sqlx.Tx, g *model.Group) error
	setLogo  []string
	removed  []string
	lockTxs  []*sqlx.Tx
	writeTxs []*sqlx.Tx
}

func newMockGroupRepository() *mockGroupRepository {
	return &mockGroupRepository{groups: map[string]*model.Group{}, memberships: map[string]string{}}
}

func (m *mockGroupRepository) Create(ctx context.Context, tx *sqlx.Tx, g *model.Group) error {
	if m.createFn != nil {
		return m.createFn(ctx, tx, g)
	}
	g.ID = "g-new"
	m.groups[g.ID] = g
	return nil
}

func (m *mockGroupRepository) GetByID(ctx context.Context, id string) (*model.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, model.ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockGroupRepository) ListForUser(ctx context.Context, userID string) ([]model.Group, error) {
	out := []model.Group{}
	for id, g := range m.groups {
		if role, ok := m.memberships[id+"/"+userID]; ok {
			cp := *g
			cp.MyRole = role
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockGroupRepository) Update(ctx context.Context, id string, req model.UpdateGroupRequest) (*model.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, model.ErrGroupNotFound
	}
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Description != nil {
		g.Description = req.Description
	}
	if req.ThemeColor != nil {
		g.ThemeColor = *req.ThemeColor
	}
	cp := *g
	return &cp, nil
}

func (m *mockGroupRepository) SetLogo(ctx context.Context, id string, logoURL, logoKey string) (*model.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, model.ErrGroupNotFound
	}
	m.setLogo = append(m.setLogo, logoKey)
	g.LogoURL = &logoURL
	g.LogoKey = &logoKey
	cp := *g
	return &cp, nil
}

func (m *mockGroupRepository) AddMember(ctx context.Context, tx *sqlx.Tx, groupID, userID, role string) error {
	m.writeTxs = append(m.writeTxs, tx)
	m.memberships[groupID+"/"+userID] = role
	return nil
}

func (m *mockGroupRepository) RemoveMember(ctx context.Context, tx *sqlx.Tx, groupID, userID string) error {
	m.writeTxs = append(m.writeTxs, tx)
	key := groupID + "/" + userID
	if _, ok := m.memberships[key]; !ok {
		return model.ErrNotGroupMember
	}
	delete(m.memberships, key)
	m.removed = append(m.removed, userID)
	return nil
}

func (m *mockGroupRepository) GetMembership(ctx context.Context, groupID, userID string) (*model.GroupMembership, error) {
	role, ok := m.memberships[groupID+"/"+userID]
	if !ok {
		return nil, model.ErrNotGroupMember
	}
	return &model.GroupMembership{GroupID: groupID, UserID: userID, Role: role}, nil
}

func (m *mockGroupRepository) LockOwners(ctx context.Context, tx *sqlx.Tx, groupID string) ([]string, error) {
	m.lockTxs = append(m.lockTxs, tx)
	owners := []string{}
	for key, role := range m.memberships {
		if role == model.GroupRoleOwner && strings.HasPrefix(key, groupID+"/") {
			owners = append(owners, strings.TrimPrefix(key, groupID+"/"))
		}
	}
	return owners, nil
}

// =============================================================================
// GALLERY
// =============================================================================

type mockPhotoRepository struct {
	photos    map[string]*model.Photo
	created   []*model.Photo
	createErr error
}

func (m *mockPhotoRepository) Create(ctx context.Context, p *model.Photo) error {
	if m.createErr != nil {
		return m.createErr
	}
	p.ID = "p-new"
	m.created = append(m.created, p)
	return nil
}

func (m *mockPhotoRepository) GetByID(ctx context.Context, groupID, id string) (*model.Photo, error) {
	p, ok := m.photos[id]
	if !ok || p.GroupID != groupID {
		return nil, model.ErrPhotoNotFound
	}
	return p, nil
}

func (m *mockPhotoRepository) List(ctx context.Context, groupID string, eventID *string, cursor *string, limit int) ([]model.Photo, *string, error) {
	return nil, nil, nil
}

func (m *mockPhotoRepository) Delete(ctx context.Context, groupID, id string) error {
	if _, ok := m.photos[id]; !ok {
		return model.ErrPhotoNotFound
	}
	delete(m.photos, id)
	return nil
}

type mockEventRepository struct {
	events map[string]*model.Event
}

func (m *mockEventRepository) List(ctx context.Context, groupID string, year *int) ([]model.Event, error) {
	return nil, nil
}

func (m *mockEventRepository) GetByID(ctx context.Context, groupID, id string) (*model.Event, error) {
	e, ok := m.events[id]
	if !ok || e.GroupID != groupID {
		return nil, model.ErrEventNotFound
	}
	return e, nil
}

func (m *mockEventRepository) Create(ctx context.Context, groupID, createdBy string, in model.EventInput) (*model.Event, error) {
	return &model.Event{ID: "e-new", GroupID: groupID, Title: in.Title, OccurredAt: in.OccurredAt, CreatedBy: createdBy}, nil
}

func (m *mockEventRepository) Update(ctx context.Context, groupID, id string, in model.EventInput) (*model.Event, error) {
	return &model.Event{ID: id, GroupID: groupID, Title: in.Title}, nil
}

func (m *mockEventRepository) Delete(ctx context.Context, groupID, id string) error {
	return nil
}

// mockStore records objects in memory.
type mockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	putErr  error
	seq     int
}

func newMockStore() *mockStore {
	return &mockStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *mockStore) Put(ctx context.Context, folder, ext string, body []byte, contentType string) (*model.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.seq++
	key := fmt.Sprintf("%s/obj%d%s", folder, m.seq, ext)
	m.objects[key] = body
	m.types[key] = contentType
	return &model.UploadResult{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (m *mockStore) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

// =============================================================================
// CACHE / QUEUE
// =============================================================================

type fakeThreadCache struct {
	entries     map[string][]model.Comment
	versions    map[string]int64
	invalidated []string

	// beforeSet runs between the database read and the fill
	beforeSet func(storyID string)
}

func newFakeThreadCache() *fakeThreadCache {
	return &fakeThreadCache{entries: map[string][]model.Comment{}, versions: map[string]int64{}}
}

func (f *fakeThreadCache) Get(ctx context.Context, storyID string) ([]model.Comment, bool, error) {
	c, ok := f.entries[storyID]
	return c, ok, nil
}

func (f *fakeThreadCache) Version(ctx context.Context, storyID string) (int64, error) {
	return f.versions[storyID], nil
}

func (f *fakeThreadCache) Set(ctx context.Context, storyID string, version int64, comments []model.Comment) error {
	if f.beforeSet != nil {
		f.beforeSet(storyID)
	}
	if f.versions[storyID] != version {
		return cache.ErrThreadChanged
	}
	f.entries[storyID] = comments
	return nil
}

func (f *fakeThreadCache) Invalidate(ctx context.Context, storyID string) error {
	f.invalidated = append(f.invalidated, storyID)
	f.versions[storyID]++
	delete(f.entries, storyID)
	return nil
}

type fakePublisher struct {
	events []queue.Event
}

func (f *fakePublisher) Publish(ctx context.Context, stream string, event queue.Event) (string, error) {
	f.events = append(f.events, event)
	return "1-0", nil
}
