package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// LinkStore is the persistence boundary for links and users. Lookups return
// (nil, nil) when no row matches; errors are reserved for real failures.
// The database stays the source of truth for every field, the cache layer
// only ever holds the short code to URL mapping.
type LinkStore interface {
	Insert(ctx context.Context, link *Link) error
	Save(ctx context.Context, link *Link) error
	FindActiveByCode(ctx context.Context, code string) (*Link, error)
	FindActiveByAlias(ctx context.Context, alias string) (*Link, error)
	FindActiveByUserAndURL(ctx context.Context, userID int64, originalURL string) (*Link, error)
	FindActiveByOriginalURL(ctx context.Context, originalURL string) ([]Link, error)
	ListRecent(ctx context.Context, limit int) ([]Link, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]Link, error)
	ListStaleActive(ctx context.Context, cutoff time.Time) ([]Link, error)
	ListByUser(ctx context.Context, userID int64) ([]Link, error)
	DeactivateAll(ctx context.Context, ids []int64) error

	FindUserByID(ctx context.Context, id int64) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// GormLinkStore implements LinkStore on top of GORM. Open the *gorm.DB with
// TranslateError enabled so unique constraint violations come back as
// gorm.ErrDuplicatedKey on every driver.
type GormLinkStore struct {
	db *gorm.DB
}

func NewGormLinkStore(db *gorm.DB) *GormLinkStore {
	return &GormLinkStore{db: db}
}

func (s *GormLinkStore) Insert(ctx context.Context, link *Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert link %q: %w", link.ShortCode, ErrDuplicateCode)
		}
		return fmt.Errorf("insert link: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Save writes the full record back in a single UPDATE. Re-keying a link
// onto a code that just became taken surfaces as ErrDuplicateCode, same as
// on insert.
func (s *GormLinkStore) Save(ctx context.Context, link *Link) error {
	if err := s.db.WithContext(ctx).Save(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("save link %q: %w", link.ShortCode, ErrDuplicateCode)
		}
		return fmt.Errorf("save link %d: %w: %w", link.ID, ErrStoreUnavailable, err)
	}
	return nil
}

func (s *GormLinkStore) FindActiveByCode(ctx context.Context, code string) (*Link, error) {
	var link Link
	err := s.db.WithContext(ctx).
		Where("short_code = ? AND is_active = ?", code, true).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find link by code: %w: %w", ErrStoreUnavailable, err)
	}
	return &link, nil
}

func (s *GormLinkStore) FindActiveByAlias(ctx context.Context, alias string) (*Link, error) {
	var link Link
	err := s.db.WithContext(ctx).
		Where("custom_alias = ? AND is_active = ?", alias, true).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find link by alias: %w: %w", ErrStoreUnavailable, err)
	}
	return &link, nil
}

func (s *GormLinkStore) FindActiveByUserAndURL(ctx context.Context, userID int64, originalURL string) (*Link, error) {
	var link Link
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND original_url = ? AND is_active = ?", userID, originalURL, true).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find link by user and url: %w: %w", ErrStoreUnavailable, err)
	}
	return &link, nil
}

func (s *GormLinkStore) FindActiveByOriginalURL(ctx context.Context, originalURL string) ([]Link, error) {
	var links []Link
	err := s.db.WithContext(ctx).
		Where("original_url = ? AND is_active = ?", originalURL, true).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("find links by url: %w: %w", ErrStoreUnavailable, err)
	}
	return links, nil
}

// ListRecent returns the newest links first, active or not.
func (s *GormLinkStore) ListRecent(ctx context.Context, limit int) ([]Link, error) {
	var links []Link
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("list recent links: %w: %w", ErrStoreUnavailable, err)
	}
	return links, nil
}

func (s *GormLinkStore) ListExpiredActive(ctx context.Context, now time.Time) ([]Link, error) {
	var links []Link
	err := s.db.WithContext(ctx).
		Where("expires_at < ? AND is_active = ?", now, true).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("list expired links: %w: %w", ErrStoreUnavailable, err)
	}
	return links, nil
}

// ListStaleActive finds links idle since before the cutoff. Links that were
// never used have a NULL last_used_at and are left alone here; the default
// expiration window retires them instead.
func (s *GormLinkStore) ListStaleActive(ctx context.Context, cutoff time.Time) ([]Link, error) {
	var links []Link
	err := s.db.WithContext(ctx).
		Where("last_used_at < ? AND is_active = ?", cutoff, true).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("list stale links: %w: %w", ErrStoreUnavailable, err)
	}
	return links, nil
}

func (s *GormLinkStore) ListByUser(ctx context.Context, userID int64) ([]Link, error) {
	var links []Link
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("list links by user: %w: %w", ErrStoreUnavailable, err)
	}
	return links, nil
}

// DeactivateAll flips every given link inactive in one statement, so a
// sweep commits its whole batch atomically.
func (s *GormLinkStore) DeactivateAll(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&Link{}).
		Where("id IN ?", ids).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("deactivate links: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *GormLinkStore) FindUserByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w: %w", ErrStoreUnavailable, err)
	}
	return &user, nil
}

func (s *GormLinkStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w: %w", ErrStoreUnavailable, err)
	}
	return &user, nil
}

func (s *GormLinkStore) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w: %w", ErrStoreUnavailable, err)
	}
	return users, nil
}

// DeleteUser removes the account row itself. Links are never hard deleted,
// the admin service deactivates them before calling this.
func (s *GormLinkStore) DeleteUser(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&User{}, id).Error; err != nil {
		return fmt.Errorf("delete user %d: %w: %w", id, ErrStoreUnavailable, err)
	}
	return nil
}
