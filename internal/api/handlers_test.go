package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskbridge/internal/domain"
	"taskbridge/internal/mapper"
	"taskbridge/internal/ports"
	"taskbridge/internal/resolver"
	"taskbridge/internal/usecase"
)

type memWorkspaces struct {
	items map[string]domain.Workspace
}

func (s *memWorkspaces) key(platform, id string) string { return platform + ":" + id }

func (s *memWorkspaces) Create(ctx context.Context, w domain.Workspace) (domain.Workspace, error) {
	s.items[s.key(w.Platform, w.PlatformID)] = w
	return w, nil
}

func (s *memWorkspaces) Get(ctx context.Context, platform, platformID string) (domain.Workspace, error) {
	w, ok := s.items[s.key(platform, platformID)]
	if !ok {
		return domain.Workspace{}, domain.NewNotFound("workspace", platform+"/"+platformID)
	}
	return w, nil
}

func (s *memWorkspaces) Save(ctx context.Context, w domain.Workspace) (domain.Workspace, error) {
	s.items[s.key(w.Platform, w.PlatformID)] = w
	return w, nil
}

func (s *memWorkspaces) Delete(ctx context.Context, platform, platformID string) error {
	delete(s.items, s.key(platform, platformID))
	return nil
}

type memUsers struct {
	items map[string]domain.UserMapping
}

func (s *memUsers) Create(ctx context.Context, m domain.UserMapping) (domain.UserMapping, error) {
	s.items[m.Platform+":"+m.PlatformUserID] = m
	return m, nil
}

func (s *memUsers) Get(ctx context.Context, platform, platformUserID string) (domain.UserMapping, error) {
	m, ok := s.items[platform+":"+platformUserID]
	if !ok {
		return domain.UserMapping{}, domain.NewNotFound("user mapping", platform+"/"+platformUserID)
	}
	return m, nil
}

func (s *memUsers) Delete(ctx context.Context, platform, platformUserID string) error {
	delete(s.items, platform+":"+platformUserID)
	return nil
}

type stubRemote struct {
	archiveErr error
}

func (s *stubRemote) DescribeContainer(ctx context.Context, id string) (ports.Container, error) {
	return ports.Container{ID: id, Sources: []ports.DataSource{{ID: "res-1"}}}, nil
}

func (s *stubRemote) CreateRecord(ctx context.Context, sourceID string, props map[string]any, key string) (ports.Page, error) {
	return ports.Page{ID: "task-1", URL: "https://remote/task-1", Properties: props}, nil
}

func (s *stubRemote) QueryRecords(ctx context.Context, sourceID string, q ports.RecordQuery) (ports.QueryPage, error) {
	return ports.QueryPage{}, nil
}

func (s *stubRemote) UpdateRecord(ctx context.Context, recordID string, props map[string]any) (ports.Page, error) {
	return ports.Page{ID: recordID, Properties: props}, nil
}

func (s *stubRemote) ArchiveRecord(ctx context.Context, recordID string) (ports.Page, error) {
	if s.archiveErr != nil {
		return ports.Page{}, s.archiveErr
	}
	return ports.Page{ID: recordID, Archived: true}, nil
}

func testHandler(remote ports.Remote, storeErr error) http.Handler {
	workspaces := &memWorkspaces{items: map[string]domain.Workspace{
		"slack:T1": {Platform: "slack", PlatformID: "T1", Name: "Team One", DatabaseID: "db-1"},
	}}
	users := &memUsers{items: map[string]domain.UserMapping{}}

	srv := NewServer(Deps{
		Tasks: &usecase.Orchestrator{
			Remote:   remote,
			Resolver: resolver.New(remote),
			Mapper:   mapper.New(nil),
			Users:    users,
		},
		Workspaces: usecase.Workspaces{Store: workspaces},
		Users:      usecase.Users{Store: users},
		CheckStore: func(ctx context.Context) error { return storeErr },
	})
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestCreateTaskHappyPath(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)
	rec, body := doJSON(t, h, http.MethodPost, "/workspaces/slack/T1/tasks", `{"title":"Fix bug"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["remote_id"] != "task-1" || body["url"] != "https://remote/task-1" {
		t.Fatalf("unexpected body %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestCreateTaskUnknownWorkspace(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)
	rec, body := doJSON(t, h, http.MethodPost, "/workspaces/slack/nope/tasks", `{"title":"X"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	errBody, _ := body["error"].(map[string]any)
	if errBody["kind"] != "not_found" || errBody["entity"] != "workspace" {
		t.Fatalf("unexpected error envelope %v", body)
	}
}

func TestCreateTaskWithoutTitleIsBadRequest(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)
	rec, body := doJSON(t, h, http.MethodPost, "/workspaces/slack/T1/tasks", `{"status":"Doing"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	errBody, _ := body["error"].(map[string]any)
	if errBody["kind"] != "validation" {
		t.Fatalf("unexpected error envelope %v", body)
	}
}

func TestUpdateTaskAppliesPartialFields(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)
	rec, body := doJSON(t, h, http.MethodPatch, "/tasks/task-1", `{"status":"Done"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["remote_id"] != "task-1" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestUpdateTaskRejectsUnknownClearField(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)
	rec, _ := doJSON(t, h, http.MethodPatch, "/tasks/task-1", `{"clear":["color"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteTaskReportsArchival(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)
	rec, body := doJSON(t, h, http.MethodDelete, "/tasks/task-1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["archived"] != true || body["remote_id"] != "task-1" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestDeleteTaskMapsRateLimitStatus(t *testing.T) {
	h := testHandler(&stubRemote{archiveErr: domain.NewRateLimited("slow down")}, nil)
	rec, body := doJSON(t, h, http.MethodDelete, "/tasks/task-1", "")

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	errBody, _ := body["error"].(map[string]any)
	if errBody["kind"] != "rate_limited" {
		t.Fatalf("unexpected error envelope %v", body)
	}
}

func TestCreateWorkspaceValidatesRequiredFields(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)
	rec, body := doJSON(t, h, http.MethodPost, "/workspaces", `{"platform":"slack","platform_id":"T2"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	errBody, _ := body["error"].(map[string]any)
	if errBody["field"] != "database_id" {
		t.Fatalf("expected the offending field named, got %v", body)
	}
}

func TestWorkspaceLifecycle(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)

	rec, _ := doJSON(t, h, http.MethodPost, "/workspaces",
		`{"platform":"slack","platform_id":"T2","name":"Two","database_id":"db-2"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, body := doJSON(t, h, http.MethodPatch, "/workspaces/slack/T2", `{"name":"Renamed"}`)
	if rec.Code != http.StatusOK || body["name"] != "Renamed" {
		t.Fatalf("unexpected patch response %d %v", rec.Code, body)
	}
	if body["database_id"] != "db-2" {
		t.Fatalf("unpatched fields must survive, got %v", body)
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/workspaces/slack/T2", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/workspaces/slack/T2", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestUserMappingLifecycle(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)

	rec, _ := doJSON(t, h, http.MethodPost, "/users",
		`{"platform":"slack","platform_user_id":"U1","remote_user_id":"remote-1","display_name":"Ada"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, body := doJSON(t, h, http.MethodGet, "/users/slack/U1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["remote_user_id"] != "remote-1" {
		t.Fatalf("unexpected body %v", body)
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/users/slack/U1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHealthReportsStoreFailure(t *testing.T) {
	h := testHandler(&stubRemote{}, errors.New("connection refused"))
	rec, body := doJSON(t, h, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body["status"] != "unhealthy" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestHealthyWhenChecksPass(t *testing.T) {
	h := testHandler(&stubRemote{}, nil)
	rec, body := doJSON(t, h, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK || body["status"] != "healthy" {
		t.Fatalf("unexpected health response %d %v", rec.Code, body)
	}
}
