package ports

import (
	"context"
	"time"

	"taskbridge/internal/domain"
)

// DataSource is one addressable sub-resource of a remote container.
type DataSource struct {
	ID   string
	Name string
}

// Container is the remote description of a database container.
type Container struct {
	ID      string
	Title   string
	Sources []DataSource
}

// Page is a raw remote record. Properties stay in wire format; the mapper
// turns them into a canonical TaskRecord.
type Page struct {
	ID             string
	URL            string
	CreatedTime    time.Time
	LastEditedTime time.Time
	Archived       bool
	Properties     map[string]any
}

// RecordQuery is one page request of a cursor walk.
type RecordQuery struct {
	Filter      map[string]any
	Sorts       []map[string]any
	PageSize    int
	StartCursor string
}

// QueryPage is the remote response to a RecordQuery. NextCursor is only
// valid for the immediately following sequential request.
type QueryPage struct {
	Results    []Page
	HasMore    bool
	NextCursor string
}

// Remote is the outbound contract toward the document-database API.
// Implementations own transport-level retry and error mapping: every method
// returns either a decoded value or a domain error from the taxonomy.
type Remote interface {
	DescribeContainer(ctx context.Context, containerID string) (Container, error)
	CreateRecord(ctx context.Context, sourceID string, properties map[string]any, idempotencyKey string) (Page, error)
	QueryRecords(ctx context.Context, sourceID string, q RecordQuery) (QueryPage, error)
	UpdateRecord(ctx context.Context, recordID string, properties map[string]any) (Page, error)
	ArchiveRecord(ctx context.Context, recordID string) (Page, error)
}

// WorkspaceStore persists the workspace → remote database mapping table.
type WorkspaceStore interface {
	Create(ctx context.Context, w domain.Workspace) (domain.Workspace, error)
	Get(ctx context.Context, platform, platformID string) (domain.Workspace, error)
	Save(ctx context.Context, w domain.Workspace) (domain.Workspace, error)
	Delete(ctx context.Context, platform, platformID string) error
}

// UserStore persists the platform-user → remote-user mapping table.
type UserStore interface {
	Create(ctx context.Context, m domain.UserMapping) (domain.UserMapping, error)
	Get(ctx context.Context, platform, platformUserID string) (domain.UserMapping, error)
	Delete(ctx context.Context, platform, platformUserID string) error
}
