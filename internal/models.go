package internal

import (
	"time"

	"gorm.io/gorm"
)

// Link is one shortened URL. Uniqueness of ShortCode is scoped to active
// records only, so a code freed by a soft delete can be issued again.
type Link struct {
	ID          int64      `gorm:"primaryKey;type:bigint" json:"id"`
	ShortCode   string     `gorm:"type:varchar(64);not null;uniqueIndex:ux_links_active_code,where:is_active" json:"short_code"`
	OriginalURL string     `gorm:"type:text;not null" json:"original_url"`
	CustomAlias string     `gorm:"type:varchar(64)" json:"custom_alias,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
	Clicks      int64      `gorm:"type:bigint;not null;default:0" json:"clicks"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	UserID      *int64     `gorm:"type:bigint;index" json:"user_id,omitempty"`
}

// Expired reports whether the link's expiration date has passed. Links
// without an expiration date never expire.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// Stats projects the click counters out of a link for the stats endpoint.
func (l *Link) Stats() LinkStats {
	return LinkStats{
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		CreatedAt:   l.CreatedAt,
		LastUsedAt:  l.LastUsedAt,
		Clicks:      l.Clicks,
	}
}

type LinkStats struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	Clicks      int64      `json:"clicks"`
}

// LinkCreate is the request payload for shortening a URL. A zero ExpiresAt
// means "use the default window", an empty CustomAlias means "generate one".
type LinkCreate struct {
	OriginalURL string     `json:"original_url"`
	CustomAlias string     `json:"custom_alias"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// LinkUpdate is a partial patch. Empty strings and nil times mean the field
// was not supplied and the stored value is kept.
type LinkUpdate struct {
	OriginalURL string     `json:"original_url"`
	CustomAlias string     `json:"custom_alias"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type User struct {
	ID             int64     `gorm:"primaryKey;type:bigint" json:"id"`
	Username       string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"username"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	HashedPassword string    `gorm:"type:varchar(255)" json:"-"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// LinkAnalytics holds the click totals aggregated by the analytics worker,
// one row per short code.
type LinkAnalytics struct {
	ID         int64  `gorm:"primaryKey;type:bigint"`
	ShortCode  string `gorm:"type:varchar(64);not null;uniqueIndex"`
	ClickCount int64  `gorm:"type:bigint;not null;default:0"`
}

// AutoMigrate creates or updates the tables for every model in one place.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Link{}, &User{}, &LinkAnalytics{})
}
