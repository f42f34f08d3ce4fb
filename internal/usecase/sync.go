package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"taskbridge/internal/domain"
	"taskbridge/internal/mapper"
	"taskbridge/internal/ports"
	"taskbridge/internal/resolver"
)

// Orchestrator implements the task operations against the remote API,
// composing container resolution, field mapping and the cursor walk. All
// state is per-call; the only shared state is the resolver cache.
type Orchestrator struct {
	Remote   ports.Remote
	Resolver *resolver.Resolver
	Mapper   *mapper.Mapper
	Users    ports.UserStore
	MaxWalk  int
}

// Create adds a task to the workspace's remote database and returns the
// canonical record decoded from the remote response.
func (o *Orchestrator) Create(ctx context.Context, ws domain.Workspace, fields domain.TaskFields) (domain.TaskRecord, error) {
	if !fields.Title.Set || fields.Title.Clear || fields.Title.Value == "" {
		return domain.TaskRecord{}, domain.NewValidation("title is required", mapper.FieldTitle)
	}

	fields, err := o.resolveAssignee(ctx, ws.Platform, fields)
	if err != nil {
		return domain.TaskRecord{}, err
	}

	mapping := mapper.Resolve(ws.FieldMappings)
	props, err := o.Mapper.Encode(fields, mapping)
	if err != nil {
		return domain.TaskRecord{}, err
	}

	// one key per logical create keeps retried attempts from duplicating
	idempotencyKey := uuid.NewString()

	var page ports.Page
	err = o.withResolvedSource(ctx, ws.DatabaseID, func(sourceID string) error {
		created, err := o.Remote.CreateRecord(ctx, sourceID, props, idempotencyKey)
		if err != nil {
			return err
		}
		page = created
		return nil
	})
	if err != nil {
		return domain.TaskRecord{}, err
	}

	rec := o.Mapper.Decode(page, mapping)
	log.Ctx(ctx).Info().Str("task", rec.RemoteID).Str("database", ws.DatabaseID).Msg("created task")
	return rec, nil
}

// List returns one page of tasks matching the query. The page/limit view is
// computed over the sequential cursor walk; records beyond the requested
// page are not fetched.
func (o *Orchestrator) List(ctx context.Context, ws domain.Workspace, q domain.ListQuery) (domain.ListResult, error) {
	pageNum := q.Page
	if pageNum < 1 {
		pageNum = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	mapping := mapper.Resolve(ws.FieldMappings)
	filter := mapper.BuildFilter(q, mapping)
	sorts := mapper.BuildSorts(q, mapping)

	var records []domain.TaskRecord
	err := o.withResolvedSource(ctx, ws.DatabaseID, func(sourceID string) error {
		records = nil
		skip := (pageNum - 1) * limit
		want := limit + 1 // one extra record tells us whether a next page exists
		return o.walk(ctx, sourceID, ports.RecordQuery{
			Filter:   filter,
			Sorts:    sorts,
			PageSize: limit,
		}, func(p ports.Page) (bool, error) {
			if skip > 0 {
				skip--
				return true, nil
			}
			records = append(records, o.Mapper.Decode(p, mapping))
			return len(records) < want, nil
		})
	})
	if err != nil {
		return domain.ListResult{}, err
	}

	hasMore := false
	if len(records) > limit {
		hasMore = true
		records = records[:limit]
	}
	return domain.ListResult{
		Records: records,
		Page:    pageNum,
		Limit:   limit,
		Total:   len(records),
		HasMore: hasMore,
	}, nil
}

// Update applies a partial update directly to a record. No container
// resolution is involved: the record id addresses the remote page itself.
// ws may be nil when the caller supplies no workspace context, in which
// case the default field mapping applies.
func (o *Orchestrator) Update(ctx context.Context, ws *domain.Workspace, taskID string, fields domain.TaskFields) (domain.TaskRecord, error) {
	var overrides map[string]string
	platform := ""
	if ws != nil {
		overrides = ws.FieldMappings
		platform = ws.Platform
	}

	fields, err := o.resolveAssignee(ctx, platform, fields)
	if err != nil {
		return domain.TaskRecord{}, err
	}

	mapping := mapper.Resolve(overrides)
	props, err := o.Mapper.Encode(fields, mapping)
	if err != nil {
		return domain.TaskRecord{}, err
	}
	if len(props) == 0 {
		return domain.TaskRecord{}, domain.NewValidation("no fields to update", "")
	}

	page, err := o.Remote.UpdateRecord(ctx, taskID, props)
	if err != nil {
		return domain.TaskRecord{}, err
	}
	return o.Mapper.Decode(page, mapping), nil
}

// Delete archives a record; the remote API models deletion as archival.
// The response is checked so success is only reported once the remote
// confirms the flag.
func (o *Orchestrator) Delete(ctx context.Context, taskID string) error {
	page, err := o.Remote.ArchiveRecord(ctx, taskID)
	if err != nil {
		return err
	}
	if !page.Archived {
		return domain.NewRemote("remote did not confirm archival of "+taskID, false, nil)
	}
	log.Ctx(ctx).Info().Str("task", taskID).Msg("archived task")
	return nil
}

// withResolvedSource runs fn with the resolved data source for containerID.
// If fn fails with not-found the cached resolution may be stale: the entry
// is invalidated, the container resolved once more, and fn retried exactly
// once before the error surfaces.
func (o *Orchestrator) withResolvedSource(ctx context.Context, containerID string, fn func(sourceID string) error) error {
	sourceID, err := o.Resolver.Resolve(ctx, containerID)
	if err != nil {
		return err
	}
	err = fn(sourceID)
	if err == nil || !domain.IsNotFound(err) {
		return err
	}

	log.Ctx(ctx).Warn().Str("container", containerID).Str("source", sourceID).
		Msg("resolved source came back not-found, re-resolving")
	o.Resolver.Invalidate(containerID)
	sourceID, rerr := o.Resolver.Resolve(ctx, containerID)
	if rerr != nil {
		return rerr
	}
	return fn(sourceID)
}

// resolveAssignee swaps a platform user id for the remote user id through
// the mapping table. Without a user store the value is passed through
// unchanged, which keeps direct API usage with raw remote ids working.
func (o *Orchestrator) resolveAssignee(ctx context.Context, platform string, fields domain.TaskFields) (domain.TaskFields, error) {
	if !fields.Assignee.Set || fields.Assignee.Clear {
		return fields, nil
	}
	if o.Users == nil || platform == "" {
		return fields, nil
	}
	m, err := o.Users.Get(ctx, platform, fields.Assignee.Value)
	if err != nil {
		return domain.TaskFields{}, err
	}
	fields.Assignee = domain.Some(m.RemoteUserID)
	return fields, nil
}
