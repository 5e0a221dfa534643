package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LinkService implements the link lifecycle on top of a LinkStore and a
// LinkCache. The store is authoritative for every decision; the cache is
// consulted but can be stale or down without changing any outcome other
// than latency. Cache failures are logged and swallowed, store failures
// propagate.
type LinkService struct {
	store LinkStore
	cache LinkCache
	cfg   *Config
}

func NewLinkService(store LinkStore, cache LinkCache, cfg *Config) *LinkService {
	return &LinkService{store: store, cache: cache, cfg: cfg}
}

// CreateLink shortens a URL. With a custom alias the alias becomes the
// short code after validation; otherwise a random code is generated and
// regenerated until the insert sticks. For authenticated users an active
// link with the same destination is returned instead of creating a twin.
func (s *LinkService) CreateLink(ctx context.Context, data LinkCreate, user *User) (*Link, error) {
	if strings.TrimSpace(data.OriginalURL) == "" {
		return nil, ErrURLRequired
	}

	now := time.Now().UTC()

	link := &Link{
		OriginalURL: data.OriginalURL,
		IsActive:    true,
	}

	if data.CustomAlias != "" {
		if len(data.CustomAlias) < s.cfg.AliasMinLength {
			return nil, fmt.Errorf("%w (minimum %d characters)", ErrAliasTooShort, s.cfg.AliasMinLength)
		}
		taken, err := s.store.FindActiveByAlias(ctx, data.CustomAlias)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, ErrAliasTaken
		}
		link.ShortCode = data.CustomAlias
		link.CustomAlias = data.CustomAlias
	} else {
		code, err := s.freeCode(ctx)
		if err != nil {
			return nil, err
		}
		link.ShortCode = code
	}

	if user != nil {
		existing, err := s.store.FindActiveByUserAndURL(ctx, user.ID, data.OriginalURL)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		link.UserID = &user.ID
	}

	if data.ExpiresAt != nil {
		if !data.ExpiresAt.After(now) {
			return nil, ErrExpirationInPast
		}
		expiresAt := data.ExpiresAt.UTC()
		link.ExpiresAt = &expiresAt
	} else {
		expiresAt := now.Add(s.cfg.InactiveWindow())
		link.ExpiresAt = &expiresAt
	}

	for {
		err := s.store.Insert(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, ErrDuplicateCode) {
			return nil, err
		}
		if data.CustomAlias != "" {
			// alias passed the pre-check but lost the race at insert time
			return nil, ErrAliasTaken
		}
		code, err := s.freeCode(ctx)
		if err != nil {
			return nil, err
		}
		link.ShortCode = code
	}
}

// freeCode generates codes until one has no active holder. The insert can
// still collide with a concurrent writer, CreateLink handles that.
func (s *LinkService) freeCode(ctx context.Context) (string, error) {
	for {
		code, err := GenerateShortCode(s.cfg.ShortCodeLength)
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		existing, err := s.store.FindActiveByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
}

// GetByCode resolves a short code. The cache is probed first but the store
// is always queried as well: only the store knows whether the link is
// still active or expired. A redirect read bumps clicks and last_used_at
// in one store write; a plain read leaves the counters alone. On a cache
// miss the mapping is written back, and a cache entry whose code no longer
// resolves is dropped.
func (s *LinkService) GetByCode(ctx context.Context, code string, isRedirect bool) (*Link, error) {
	_, cacheErr := s.cache.GetURL(ctx, code)
	cacheHit := cacheErr == nil
	if cacheErr != nil && !errors.Is(cacheErr, ErrCacheMiss) {
		slog.Warn("Cache read failed, serving from store", "short_code", code, "err", cacheErr)
	}

	link, err := s.store.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		if cacheHit {
			s.invalidate(ctx, code)
		}
		return nil, ErrLinkNotFound
	}

	now := time.Now().UTC()
	if link.Expired(now) {
		if _, err := s.deactivateBatch(ctx, []Link{*link}); err != nil {
			return nil, err
		}
		return nil, ErrLinkNotFound
	}

	if isRedirect {
		link.Clicks++
		link.LastUsedAt = &now
		if err := s.store.Save(ctx, link); err != nil {
			return nil, err
		}
	}

	if !cacheHit {
		if err := s.cache.SetURL(ctx, code, link.OriginalURL); err != nil {
			slog.Warn("Cache populate failed", "short_code", code, "err", err)
		}
	}

	return link, nil
}

// UpdateLink applies a partial patch to an active link. Changing the alias
// re-keys the link: the short code follows the alias, and both the old and
// the new cache entries are invalidated so neither can serve a stale URL.
func (s *LinkService) UpdateLink(ctx context.Context, code string, patch LinkUpdate, user *User) (*Link, error) {
	link, err := s.store.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if link.UserID != nil && (user == nil || *link.UserID != user.ID) {
		return nil, ErrForbidden
	}

	codeChanged := false
	if patch.CustomAlias != "" && patch.CustomAlias != link.CustomAlias {
		if len(patch.CustomAlias) < s.cfg.AliasMinLength {
			return nil, fmt.Errorf("%w (minimum %d characters)", ErrAliasTooShort, s.cfg.AliasMinLength)
		}
		holder, err := s.store.FindActiveByAlias(ctx, patch.CustomAlias)
		if err != nil {
			return nil, err
		}
		if holder != nil && holder.ID != link.ID {
			return nil, ErrAliasTaken
		}
		link.CustomAlias = patch.CustomAlias
		link.ShortCode = patch.CustomAlias
		codeChanged = true
	}

	if patch.OriginalURL != "" {
		link.OriginalURL = patch.OriginalURL
	}

	if patch.ExpiresAt != nil {
		if !patch.ExpiresAt.After(time.Now().UTC()) {
			return nil, ErrExpirationInPast
		}
		expiresAt := patch.ExpiresAt.UTC()
		link.ExpiresAt = &expiresAt
	}

	if err := s.store.Save(ctx, link); err != nil {
		if codeChanged && errors.Is(err, ErrDuplicateCode) {
			// the alias pre-check raced another writer
			return nil, ErrAliasTaken
		}
		return nil, err
	}

	s.invalidate(ctx, code)
	if codeChanged {
		s.invalidate(ctx, link.ShortCode)
	}

	return link, nil
}

// DeleteLink soft deletes a link owned by the caller. The row stays in the
// store with is_active false, which frees the short code for reuse.
func (s *LinkService) DeleteLink(ctx context.Context, code string, user *User) error {
	link, err := s.store.FindActiveByCode(ctx, code)
	if err != nil {
		return err
	}
	if link == nil {
		return ErrLinkNotFound
	}
	if link.UserID != nil && (user == nil || *link.UserID != user.ID) {
		return ErrForbidden
	}

	_, err = s.deactivateBatch(ctx, []Link{*link})
	return err
}

// ForceDeleteLink is DeleteLink without the ownership check, for admins.
func (s *LinkService) ForceDeleteLink(ctx context.Context, code string) error {
	link, err := s.store.FindActiveByCode(ctx, code)
	if err != nil {
		return err
	}
	if link == nil {
		return ErrLinkNotFound
	}

	_, err = s.deactivateBatch(ctx, []Link{*link})
	return err
}

// SearchByURL returns every active link pointing at exactly the given URL.
func (s *LinkService) SearchByURL(ctx context.Context, originalURL string) ([]Link, error) {
	if strings.TrimSpace(originalURL) == "" {
		return nil, ErrURLRequired
	}
	return s.store.FindActiveByOriginalURL(ctx, originalURL)
}

// deactivateBatch retires links: one store commit flips them all inactive,
// then their cache entries are dropped. The read path's lazy expiry, both
// sweeps, deletes and user removal all funnel through here so deactivation
// always means the same thing.
func (s *LinkService) deactivateBatch(ctx context.Context, links []Link) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(links))
	for i := range links {
		ids[i] = links[i].ID
	}
	if err := s.store.DeactivateAll(ctx, ids); err != nil {
		return 0, err
	}

	for i := range links {
		s.invalidate(ctx, links[i].ShortCode)
	}

	return len(links), nil
}

// invalidate drops one cache entry. Failures are logged only: the entry's
// TTL bounds how long it can outlive the record it pointed at.
func (s *LinkService) invalidate(ctx context.Context, code string) {
	if err := s.cache.Delete(ctx, code); err != nil {
		slog.Warn("Cache invalidation failed", "short_code", code, "err", err)
	}
}
