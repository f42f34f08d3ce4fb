package usecase

import (
	"context"

	"taskbridge/internal/domain"
	"taskbridge/internal/ports"
)

// Workspaces manages the workspace → remote database mapping table.
type Workspaces struct {
	Store ports.WorkspaceStore
}

func (u Workspaces) Create(ctx context.Context, w domain.Workspace) (domain.Workspace, error) {
	if w.Platform == "" {
		return domain.Workspace{}, domain.NewValidation("platform is required", "platform")
	}
	if w.PlatformID == "" {
		return domain.Workspace{}, domain.NewValidation("platform_id is required", "platform_id")
	}
	if w.DatabaseID == "" {
		return domain.Workspace{}, domain.NewValidation("database_id is required", "database_id")
	}
	if w.Name == "" {
		return domain.Workspace{}, domain.NewValidation("name is required", "name")
	}
	return u.Store.Create(ctx, w)
}

func (u Workspaces) Get(ctx context.Context, platform, platformID string) (domain.Workspace, error) {
	return u.Store.Get(ctx, platform, platformID)
}

// WorkspacePatch carries the updatable workspace fields. Nil means keep the
// stored value.
type WorkspacePatch struct {
	Name          *string
	DatabaseID    *string
	FieldMappings map[string]string
}

func (u Workspaces) Update(ctx context.Context, platform, platformID string, patch WorkspacePatch) (domain.Workspace, error) {
	w, err := u.Store.Get(ctx, platform, platformID)
	if err != nil {
		return domain.Workspace{}, err
	}
	if patch.Name != nil {
		w.Name = *patch.Name
	}
	if patch.DatabaseID != nil {
		w.DatabaseID = *patch.DatabaseID
	}
	if patch.FieldMappings != nil {
		w.FieldMappings = patch.FieldMappings
	}
	return u.Store.Save(ctx, w)
}

func (u Workspaces) Delete(ctx context.Context, platform, platformID string) error {
	return u.Store.Delete(ctx, platform, platformID)
}

// Users manages the platform-user → remote-user mapping table.
type Users struct {
	Store ports.UserStore
}

func (u Users) Create(ctx context.Context, m domain.UserMapping) (domain.UserMapping, error) {
	if m.Platform == "" {
		return domain.UserMapping{}, domain.NewValidation("platform is required", "platform")
	}
	if m.PlatformUserID == "" {
		return domain.UserMapping{}, domain.NewValidation("platform_user_id is required", "platform_user_id")
	}
	if m.RemoteUserID == "" {
		return domain.UserMapping{}, domain.NewValidation("remote_user_id is required", "remote_user_id")
	}
	return u.Store.Create(ctx, m)
}

func (u Users) Get(ctx context.Context, platform, platformUserID string) (domain.UserMapping, error) {
	return u.Store.Get(ctx, platform, platformUserID)
}

func (u Users) Delete(ctx context.Context, platform, platformUserID string) error {
	return u.Store.Delete(ctx, platform, platformUserID)
}
