package redistore

import (
	"context"
	"time"

	"taskbridge/internal/domain"
)

func (u *Users) Create(ctx context.Context, m domain.UserMapping) (domain.UserMapping, error) {
	key := userKey(m.Platform, m.PlatformUserID)

	exists, err := u.s.Rdb.Exists(ctx, key).Result()
	if err != nil {
		return domain.UserMapping{}, err
	}
	if exists > 0 {
		return domain.UserMapping{}, domain.NewConflict(
			"user mapping already exists for " + m.Platform + ":" + m.PlatformUserID)
	}

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	err = u.s.Rdb.HSet(ctx, key, map[string]any{
		"remote_user_id": m.RemoteUserID,
		"display_name":   m.DisplayName,
		"created_at":     m.CreatedAt.UnixMilli(),
		"updated_at":     m.UpdatedAt.UnixMilli(),
	}).Err()
	if err != nil {
		return domain.UserMapping{}, err
	}
	return m, nil
}

func (u *Users) Get(ctx context.Context, platform, platformUserID string) (domain.UserMapping, error) {
	h, err := u.s.Rdb.HGetAll(ctx, userKey(platform, platformUserID)).Result()
	if err != nil {
		return domain.UserMapping{}, err
	}
	if len(h) == 0 {
		return domain.UserMapping{}, domain.NewNotFound("user mapping", platform+":"+platformUserID)
	}

	return domain.UserMapping{
		Platform:       platform,
		PlatformUserID: platformUserID,
		RemoteUserID:   h["remote_user_id"],
		DisplayName:    h["display_name"],
		CreatedAt:      parseMs(h["created_at"]),
		UpdatedAt:      parseMs(h["updated_at"]),
	}, nil
}

func (u *Users) Delete(ctx context.Context, platform, platformUserID string) error {
	n, err := u.s.Rdb.Del(ctx, userKey(platform, platformUserID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("user mapping", platform+":"+platformUserID)
	}
	return nil
}
