package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"taskbridge/internal/domain"
	"taskbridge/internal/usecase"
)

type handlers struct {
	deps Deps
}

// taskFieldsReq is the shared field payload for task create and update.
// Clear lists canonical field names the caller wants explicitly emptied,
// which is distinct from simply omitting them.
type taskFieldsReq struct {
	Title      *string        `json:"title"`
	Status     *string        `json:"status"`
	Priority   *string        `json:"priority"`
	DueDate    *string        `json:"due_date"`
	AssigneeID *string        `json:"assignee_id"`
	ProjectID  *string        `json:"project_id"`
	Properties map[string]any `json:"properties"`
	Clear      []string       `json:"clear"`
}

func (req taskFieldsReq) toFields() (domain.TaskFields, error) {
	var f domain.TaskFields
	if req.Title != nil {
		f.Title = domain.Some(*req.Title)
	}
	if req.Status != nil {
		f.Status = domain.Some(*req.Status)
	}
	if req.Priority != nil {
		f.Priority = domain.Some(*req.Priority)
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			return domain.TaskFields{}, domain.NewValidation("invalid due_date, expected RFC3339 or YYYY-MM-DD", "due_date")
		}
		f.DueDate = domain.Some(due)
	}
	if req.AssigneeID != nil {
		f.Assignee = domain.Some(*req.AssigneeID)
	}
	if req.ProjectID != nil {
		f.Project = domain.Some(*req.ProjectID)
	}
	f.Extra = req.Properties

	for _, name := range req.Clear {
		switch name {
		case "title":
			f.Title = domain.Cleared[string]()
		case "status":
			f.Status = domain.Cleared[string]()
		case "priority":
			f.Priority = domain.Cleared[string]()
		case "due_date":
			f.DueDate = domain.Cleared[time.Time]()
		case "assignee":
			f.Assignee = domain.Cleared[string]()
		case "project":
			f.Project = domain.Cleared[string]()
		default:
			return domain.TaskFields{}, domain.NewValidation("unknown field in clear list: "+name, "clear")
		}
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (h *handlers) createTask(w http.ResponseWriter, r *http.Request) {
	ws, err := h.deps.Workspaces.Get(r.Context(), chi.URLParam(r, "platform"), chi.URLParam(r, "platformID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req taskFieldsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidation("invalid request body: "+err.Error(), ""))
		return
	}
	fields, err := req.toFields()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.deps.Tasks.Create(r.Context(), ws, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"remote_id":  rec.RemoteID,
		"url":        rec.URL,
		"created_at": rec.CreatedAt,
	})
}

func (h *handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	ws, err := h.deps.Workspaces.Get(r.Context(), chi.URLParam(r, "platform"), chi.URLParam(r, "platformID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := domain.ListQuery{
		Status:    r.URL.Query().Get("status"),
		Priority:  r.URL.Query().Get("priority"),
		Assignee:  r.URL.Query().Get("assignee"),
		Project:   r.URL.Query().Get("project"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("order"),
	}
	q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	for param, dst := range map[string]**time.Time{"due_after": &q.DueAfter, "due_before": &q.DueBefore} {
		if raw := r.URL.Query().Get(param); raw != "" {
			t, err := parseDate(raw)
			if err != nil {
				writeError(w, r, domain.NewValidation("invalid "+param, param))
				return
			}
			*dst = &t
		}
	}

	result, err := h.deps.Tasks.List(r.Context(), ws, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// updateTaskReq optionally names a workspace so its field mapping and user
// mappings apply; without one the default mapping is used and assignee ids
// pass through as remote ids.
type updateTaskReq struct {
	taskFieldsReq
	Platform   string `json:"platform"`
	PlatformID string `json:"platform_id"`
}

func (h *handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	var req updateTaskReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidation("invalid request body: "+err.Error(), ""))
		return
	}
	fields, err := req.toFields()
	if err != nil {
		writeError(w, r, err)
		return
	}

	var ws *domain.Workspace
	if req.Platform != "" && req.PlatformID != "" {
		found, err := h.deps.Workspaces.Get(r.Context(), req.Platform, req.PlatformID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ws = &found
	}

	rec, err := h.deps.Tasks.Update(r.Context(), ws, taskID, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"remote_id":  rec.RemoteID,
		"url":        rec.URL,
		"updated_at": rec.UpdatedAt,
	})
}

func (h *handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if err := h.deps.Tasks.Delete(r.Context(), taskID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"remote_id": taskID, "archived": true})
}

type workspaceReq struct {
	Platform      string            `json:"platform"`
	PlatformID    string            `json:"platform_id"`
	Name          string            `json:"name"`
	DatabaseID    string            `json:"database_id"`
	FieldMappings map[string]string `json:"field_mappings"`
}

func (h *handlers) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidation("invalid request body: "+err.Error(), ""))
		return
	}

	ws, err := h.deps.Workspaces.Create(r.Context(), domain.Workspace{
		Platform:      req.Platform,
		PlatformID:    req.PlatformID,
		Name:          req.Name,
		DatabaseID:    req.DatabaseID,
		FieldMappings: req.FieldMappings,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (h *handlers) getWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.deps.Workspaces.Get(r.Context(), chi.URLParam(r, "platform"), chi.URLParam(r, "platformID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

type workspacePatchReq struct {
	Name          *string           `json:"name"`
	DatabaseID    *string           `json:"database_id"`
	FieldMappings map[string]string `json:"field_mappings"`
}

func (h *handlers) updateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspacePatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidation("invalid request body: "+err.Error(), ""))
		return
	}

	ws, err := h.deps.Workspaces.Update(r.Context(),
		chi.URLParam(r, "platform"), chi.URLParam(r, "platformID"),
		usecase.WorkspacePatch{
			Name:          req.Name,
			DatabaseID:    req.DatabaseID,
			FieldMappings: req.FieldMappings,
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (h *handlers) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Workspaces.Delete(r.Context(), chi.URLParam(r, "platform"), chi.URLParam(r, "platformID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userMappingReq struct {
	Platform       string `json:"platform"`
	PlatformUserID string `json:"platform_user_id"`
	RemoteUserID   string `json:"remote_user_id"`
	DisplayName    string `json:"display_name"`
}

func (h *handlers) createUserMapping(w http.ResponseWriter, r *http.Request) {
	var req userMappingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidation("invalid request body: "+err.Error(), ""))
		return
	}

	m, err := h.deps.Users.Create(r.Context(), domain.UserMapping{
		Platform:       req.Platform,
		PlatformUserID: req.PlatformUserID,
		RemoteUserID:   req.RemoteUserID,
		DisplayName:    req.DisplayName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handlers) getUserMapping(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Users.Get(r.Context(), chi.URLParam(r, "platform"), chi.URLParam(r, "platformUserID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handlers) deleteUserMapping(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Users.Delete(r.Context(), chi.URLParam(r, "platform"), chi.URLParam(r, "platformUserID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	remote := "connected"
	store := "connected"

	if h.deps.CheckRemote != nil {
		if err := h.deps.CheckRemote(r.Context()); err != nil {
			remote = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.deps.CheckStore != nil {
		if err := h.deps.CheckStore(r.Context()); err != nil {
			store = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	writeJSON(w, status, map[string]any{
		"status":     state,
		"remote_api": remote,
		"store":      store,
	})
}
