package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/service"
	"reunion_archive/internal/transport/http/middleware"
)

// serve mounts h on pattern and runs one request through it, as the router would.
func serve(t *testing.T, method, pattern, target string, body io.Reader, user *model.User, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserKey, user))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

var testMember = &model.User{ID: "u-1", Username: "lan", Role: model.RoleMember}

// =============================================================================
// FAKES
// =============================================================================

type fakeUserRepo struct {
	users map[string]*model.User
}

func (f *fakeUserRepo) Create(context.Context, *model.User) error { return nil }
func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}
func (f *fakeUserRepo) GetByUsername(context.Context, string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}
func (f *fakeUserRepo) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (f *fakeUserRepo) List(context.Context, *string, int) ([]model.User, *string, error) {
	return nil, nil, nil
}
func (f *fakeUserRepo) SetRole(context.Context, string, string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}

type fakeMemberRepo struct {
	members   map[string]*model.Member
	lastQuery string
	lastInput model.MemberInput
}

func (f *fakeMemberRepo) List(_ context.Context, groupID, query string) ([]model.Member, error) {
	f.lastQuery = query
	var out []model.Member
	for _, m := range f.members {
		if m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMemberRepo) GetByID(_ context.Context, groupID, id string) (*model.Member, error) {
	if m, ok := f.members[id]; ok && m.GroupID == groupID {
		return m, nil
	}
	return nil, model.ErrMemberNotFound
}

func (f *fakeMemberRepo) Create(_ context.Context, groupID string, in model.MemberInput) (*model.Member, error) {
	f.lastInput = in
	return &model.Member{ID: "m-new", GroupID: groupID, FullName: in.FullName, UserID: in.UserID}, nil
}

func (f *fakeMemberRepo) Update(ctx context.Context, groupID, id string, in model.MemberInput) (*model.Member, error) {
	if _, err := f.GetByID(ctx, groupID, id); err != nil {
		return nil, err
	}
	f.lastInput = in
	return &model.Member{ID: id, GroupID: groupID, FullName: in.FullName}, nil
}

func (f *fakeMemberRepo) Delete(ctx context.Context, groupID, id string) error {
	if _, err := f.GetByID(ctx, groupID, id); err != nil {
		return err
	}
	delete(f.members, id)
	return nil
}

type fakeEventRepo struct {
	events   map[string]*model.Event
	lastYear *int
}

func (f *fakeEventRepo) List(_ context.Context, groupID string, year *int) ([]model.Event, error) {
	f.lastYear = year
	var out []model.Event
	for _, e := range f.events {
		if e.GroupID == groupID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, groupID, id string) (*model.Event, error) {
	if e, ok := f.events[id]; ok && e.GroupID == groupID {
		return e, nil
	}
	return nil, model.ErrEventNotFound
}

func (f *fakeEventRepo) Create(_ context.Context, groupID, createdBy string, in model.EventInput) (*model.Event, error) {
	return &model.Event{ID: "e-new", GroupID: groupID, Title: in.Title, OccurredAt: in.OccurredAt, CreatedBy: createdBy}, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, groupID, id string, in model.EventInput) (*model.Event, error) {
	e, err := f.GetByID(ctx, groupID, id)
	if err != nil {
		return nil, err
	}
	e.Title = in.Title
	return e, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, groupID, id string) error {
	if _, err := f.GetByID(ctx, groupID, id); err != nil {
		return err
	}
	delete(f.events, id)
	return nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func newDirectory() (*DirectoryHandler, *fakeMemberRepo) {
	repo := &fakeMemberRepo{members: map[string]*model.Member{
		"m-1": {ID: "m-1", GroupID: "g-1", FullName: "Nguyen Van An"},
		"m-2": {ID: "m-2", GroupID: "g-2", FullName: "Tran Thi Binh"},
	}}
	users := &fakeUserRepo{users: map[string]*model.User{"u-1": testMember}}
	return NewDirectoryHandler(service.NewMemberService(repo, users)), repo
}

func TestDirectory_List(t *testing.T) {
	h, repo := newDirectory()

	rec := serve(t, http.MethodGet, "/groups/{groupID}/directory", "/groups/g-1/directory?q=%20an%20", nil, testMember, h.List)

	require.Equal(t, http.StatusOK, rec.Code)
	var res model.MemberListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "m-1", res.Members[0].ID)
	assert.Equal(t, "an", repo.lastQuery)
}

func TestDirectory_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "created", body: `{"full_name":"Le Van Cuong","city":"Hue"}`, wantStatus: http.StatusCreated},
		{name: "missing name", body: `{"city":"Hue"}`, wantStatus: http.StatusBadRequest, wantCode: httputil.ErrCodeValidation},
		{name: "markup only name", body: `{"full_name":"<b></b>"}`, wantStatus: http.StatusBadRequest, wantCode: httputil.ErrCodeBadRequest},
		{name: "unknown linked user", body: `{"full_name":"Le Van Cuong","user_id":"ghost"}`, wantStatus: http.StatusBadRequest, wantCode: httputil.ErrCodeBadRequest},
		{name: "malformed json", body: `{`, wantStatus: http.StatusBadRequest, wantCode: httputil.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newDirectory()

			rec := serve(t, http.MethodPost, "/groups/{groupID}/directory", "/groups/g-1/directory", strings.NewReader(tt.body), testMember, h.Create)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rec))
			}
		})
	}
}

func TestDirectory_Create_LinksKnownUser(t *testing.T) {
	h, repo := newDirectory()

	rec := serve(t, http.MethodPost, "/groups/{groupID}/directory", "/groups/g-1/directory",
		strings.NewReader(`{"full_name":"Lan","user_id":"u-1","bio":"  "}`), testMember, h.Create)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.lastInput.UserID)
	assert.Equal(t, "u-1", *repo.lastInput.UserID)
	assert.Nil(t, repo.lastInput.Bio)
}

func TestDirectory_GetOtherGroup(t *testing.T) {
	h, _ := newDirectory()

	rec := serve(t, http.MethodGet, "/groups/{groupID}/directory/{memberID}", "/groups/g-1/directory/m-2", nil, testMember, h.Get)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDirectory_Delete(t *testing.T) {
	h, repo := newDirectory()

	rec := serve(t, http.MethodDelete, "/groups/{groupID}/directory/{memberID}", "/groups/g-1/directory/m-1", nil, testMember, h.Delete)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, repo.members, "m-1")
}

// =============================================================================
// TIMELINE
// =============================================================================

func newTimeline() (*TimelineHandler, *fakeEventRepo) {
	repo := &fakeEventRepo{events: map[string]*model.Event{
		"e-1": {ID: "e-1", GroupID: "g-1", Title: "Graduation", OccurredAt: time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC)},
	}}
	return NewTimelineHandler(service.NewTimelineService(repo)), repo
}

func TestTimeline_List_Year(t *testing.T) {
	h, repo := newTimeline()

	rec := serve(t, http.MethodGet, "/groups/{groupID}/events", "/groups/g-1/events?year=2010", nil, testMember, h.List)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.lastYear)
	assert.Equal(t, 2010, *repo.lastYear)

	var res model.TimelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Graduation", res.Events[0].Title)
}

func TestTimeline_List_InvalidYear(t *testing.T) {
	for _, year := range []string{"abc", "12", "100000"} {
		h, _ := newTimeline()

		rec := serve(t, http.MethodGet, "/groups/{groupID}/events", "/groups/g-1/events?year="+year, nil, testMember, h.List)

		assert.Equal(t, http.StatusBadRequest, rec.Code, year)
	}
}

func TestTimeline_Create(t *testing.T) {
	h, _ := newTimeline()
	body := `{"title":"Ten year reunion","occurred_at":"2020-06-01T19:00:00+07:00"}`

	rec := serve(t, http.MethodPost, "/groups/{groupID}/events", "/groups/g-1/events", strings.NewReader(body), testMember, h.Create)

	require.Equal(t, http.StatusCreated, rec.Code)
	var event model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, "u-1", event.CreatedBy)
	assert.True(t, event.OccurredAt.Equal(time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, event.OccurredAt.Location())
}

func TestTimeline_Create_RequiresUser(t *testing.T) {
	h, _ := newTimeline()

	rec := serve(t, http.MethodPost, "/groups/{groupID}/events", "/groups/g-1/events",
		strings.NewReader(`{"title":"x","occurred_at":"2020-06-01T00:00:00Z"}`), nil, h.Create)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTimeline_Update(t *testing.T) {
	t.Run("markup only title", func(t *testing.T) {
		h, _ := newTimeline()
		rec := serve(t, http.MethodPatch, "/groups/{groupID}/events/{eventID}", "/groups/g-1/events/e-1",
			strings.NewReader(`{"title":"<i></i>","occurred_at":"2010-06-01T00:00:00Z"}`), testMember, h.Update)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing event", func(t *testing.T) {
		h, _ := newTimeline()
		rec := serve(t, http.MethodPatch, "/groups/{groupID}/events/{eventID}", "/groups/g-1/events/nope",
			strings.NewReader(`{"title":"Prom","occurred_at":"2010-06-01T00:00:00Z"}`), testMember, h.Update)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTimeline_Delete(t *testing.T) {
	h, repo := newTimeline()

	rec := serve(t, http.MethodDelete, "/groups/{groupID}/events/{eventID}", "/groups/g-1/events/e-1", nil, testMember, h.Delete)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.events)
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func TestMedia_NotConfigured(t *testing.T) {
	h := NewMediaHandler(nil)

	rec := serve(t, http.MethodPost, "/media/audio/presign", "/media/audio/presign",
		strings.NewReader(`{"content_type":"audio/webm","file_size":1024}`), testMember, h.PresignAudioUpload)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, http.MethodPost, "/media/images/presign", "/media/images/presign",
		strings.NewReader(`{"content_type":"image/png","file_size":1024}`), testMember, h.PresignImageUpload)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPhoto_RequestValidation(t *testing.T) {
	h := NewPhotoHandler(nil)

	rec := serve(t, http.MethodGet, "/groups/{groupID}/photos", "/groups/g-1/photos?limit=abc", nil, testMember, h.List)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, http.MethodPost, "/groups/{groupID}/photos", "/groups/g-1/photos", strings.NewReader(`{}`), testMember, h.Upload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, http.MethodDelete, "/groups/{groupID}/photos/{photoID}", "/groups/g-1/photos/p-1", nil, nil, h.Delete)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGroup_UploadLogo_NotMultipart(t *testing.T) {
	h := NewGroupHandler(nil)

	rec := serve(t, http.MethodPost, "/groups/{groupID}/logo", "/groups/g-1/logo", strings.NewReader(`{}`), testMember, h.UploadLogo)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
