package internal

import (
	"context"
)

// AdminService bundles the operator facing operations. It reuses the link
// service for anything that deactivates links so cache invalidation is
// never skipped.
type AdminService struct {
	store LinkStore
	links *LinkService
	cfg   *Config
}

func NewAdminService(store LinkStore, links *LinkService, cfg *Config) *AdminService {
	return &AdminService{store: store, links: links, cfg: cfg}
}

// RecentLinks lists the newest links regardless of state, so operators see
// deactivated records too. A non-positive limit falls back to the
// configured default.
func (a *AdminService) RecentLinks(ctx context.Context, limit int) ([]Link, error) {
	if limit <= 0 {
		limit = a.cfg.AdminLinksLimit
	}
	return a.store.ListRecent(ctx, limit)
}

func (a *AdminService) AllUsers(ctx context.Context) ([]User, error) {
	return a.store.ListUsers(ctx)
}

// ForceDeleteLink retires any active link without an ownership check.
func (a *AdminService) ForceDeleteLink(ctx context.Context, code string) error {
	return a.links.ForceDeleteLink(ctx, code)
}

// DeleteUser removes an account after deactivating all of its links, so no
// orphaned link keeps redirecting. Admin accounts cannot be removed.
func (a *AdminService) DeleteUser(ctx context.Context, userID int64) error {
	user, err := a.store.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.IsAdmin {
		return ErrForbidden
	}

	links, err := a.store.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := a.links.deactivateBatch(ctx, links); err != nil {
		return err
	}

	return a.store.DeleteUser(ctx, userID)
}
