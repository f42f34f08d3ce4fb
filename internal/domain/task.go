package domain

import "time"

// TaskRecord is the canonical representation of a task, independent of the
// remote wire format. Built by the mapper when decoding remote responses and
// not mutated afterwards.
type TaskRecord struct {
	RemoteID  string         `json:"remote_id"`
	Title     string         `json:"title"`
	Status    string         `json:"status,omitempty"`
	Priority  string         `json:"priority,omitempty"`
	DueDate   *time.Time     `json:"due_date,omitempty"`
	Assignees []string       `json:"assignees,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	URL       string         `json:"url"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Opt is an optional field value for partial create/update payloads. The
// zero value means absent: the field is omitted from the remote call. Clear
// marks an explicit request to empty the field, distinct from absent.
type Opt[T any] struct {
	Value T
	Set   bool
	Clear bool
}

func Some[T any](v T) Opt[T] { return Opt[T]{Value: v, Set: true} }

func Cleared[T any]() Opt[T] { return Opt[T]{Set: true, Clear: true} }

// TaskFields carries the canonical fields supplied by a caller for create or
// partial update. Extra holds raw wire properties that bypass the canonical
// schema; on key collision they win over the encoded canonical fields.
type TaskFields struct {
	Title    Opt[string]
	Status   Opt[string]
	Priority Opt[string]
	DueDate  Opt[time.Time]
	Assignee Opt[string] // remote user id, already resolved
	Project  Opt[string]
	Extra    map[string]any
}

// ListQuery describes a task listing request in canonical terms.
type ListQuery struct {
	Status    string
	Priority  string
	Assignee  string
	Project   string
	DueAfter  *time.Time
	DueBefore *time.Time
	SortBy    string // canonical field name, created_time or last_edited_time
	SortOrder string // ascending or descending
	Page      int
	Limit     int
}

// ListResult is one page of a listing, assembled by the orchestrator from
// the underlying cursor walk.
type ListResult struct {
	Records []TaskRecord `json:"data"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
}

// Workspace maps a platform channel to a remote database, with optional
// per-workspace overrides of the canonical field naming.
type Workspace struct {
	Platform      string            `json:"platform"`
	PlatformID    string            `json:"platform_id"`
	Name          string            `json:"name"`
	DatabaseID    string            `json:"database_id"`
	FieldMappings map[string]string `json:"field_mappings,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// UserMapping maps a platform user to the corresponding remote user id so
// assignees can be resolved before a remote call.
type UserMapping struct {
	Platform       string    `json:"platform"`
	PlatformUserID string    `json:"platform_user_id"`
	RemoteUserID   string    `json:"remote_user_id"`
	DisplayName    string    `json:"display_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
