package redistore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"taskbridge/internal/domain"
)

const mappingFieldPrefix = "map:"

func (ws *Workspaces) Create(ctx context.Context, w domain.Workspace) (domain.Workspace, error) {
	key := workspaceKey(w.Platform, w.PlatformID)

	exists, err := ws.s.Rdb.Exists(ctx, key).Result()
	if err != nil {
		return domain.Workspace{}, err
	}
	if exists > 0 {
		return domain.Workspace{}, domain.NewConflict(
			"workspace already exists for " + w.Platform + "/" + w.PlatformID)
	}

	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	if err := ws.write(ctx, key, w); err != nil {
		return domain.Workspace{}, err
	}
	return w, nil
}

func (ws *Workspaces) Get(ctx context.Context, platform, platformID string) (domain.Workspace, error) {
	key := workspaceKey(platform, platformID)
	h, err := ws.s.Rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Workspace{}, err
	}
	if len(h) == 0 {
		return domain.Workspace{}, domain.NewNotFound("workspace", platform+"/"+platformID)
	}

	w := domain.Workspace{
		Platform:   platform,
		PlatformID: platformID,
		Name:       h["name"],
		DatabaseID: h["database_id"],
		CreatedAt:  parseMs(h["created_at"]),
		UpdatedAt:  parseMs(h["updated_at"]),
	}
	for k, v := range h {
		if strings.HasPrefix(k, mappingFieldPrefix) {
			if w.FieldMappings == nil {
				w.FieldMappings = map[string]string{}
			}
			w.FieldMappings[k[len(mappingFieldPrefix):]] = v
		}
	}
	return w, nil
}

func (ws *Workspaces) Save(ctx context.Context, w domain.Workspace) (domain.Workspace, error) {
	key := workspaceKey(w.Platform, w.PlatformID)

	existing, err := ws.Get(ctx, w.Platform, w.PlatformID)
	if err != nil {
		return domain.Workspace{}, err
	}
	w.CreatedAt = existing.CreatedAt
	w.UpdatedAt = time.Now()

	// rewrite the full hash so removed mapping overrides disappear
	if err := ws.s.Rdb.Del(ctx, key).Err(); err != nil {
		return domain.Workspace{}, err
	}
	if err := ws.write(ctx, key, w); err != nil {
		return domain.Workspace{}, err
	}
	return w, nil
}

func (ws *Workspaces) Delete(ctx context.Context, platform, platformID string) error {
	n, err := ws.s.Rdb.Del(ctx, workspaceKey(platform, platformID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("workspace", platform+"/"+platformID)
	}
	return nil
}

func (ws *Workspaces) write(ctx context.Context, key string, w domain.Workspace) error {
	m := map[string]any{
		"name":        w.Name,
		"database_id": w.DatabaseID,
		"created_at":  w.CreatedAt.UnixMilli(),
		"updated_at":  w.UpdatedAt.UnixMilli(),
	}
	for k, v := range w.FieldMappings {
		m[mappingFieldPrefix+k] = v
	}
	return ws.s.Rdb.HSet(ctx, key, m).Err()
}

func parseMs(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
