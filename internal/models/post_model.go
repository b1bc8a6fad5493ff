package models

import "time"

// Post is one publish attempt of a Content against one platform account. A
// Content fans out to many Posts; the worker mutates them, the client only
// retries or deletes.
type Post struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	ContentID       int64      `db:"content_id" json:"content_id"`
	Platform        Platform   `db:"platform" json:"platform"`
	Caption         string     `db:"caption" json:"caption"`
	Status          string     `db:"status" json:"status"`
	ScheduledFor    *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	PostedAt        *time.Time `db:"posted_at" json:"posted_at,omitempty"`
	PlatformPostID  string     `db:"platform_post_id" json:"platform_post_id"`
	PlatformPostURL string     `db:"platform_post_url" json:"platform_post_url"`
	ErrorMessage    string     `db:"error_message" json:"error_message"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusScheduled = "scheduled"
	PostStatusPosting   = "posting"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

// CanRetry gates the one user-initiated retry path.
func (p *Post) CanRetry() bool {
	return p.Status == PostStatusFailed
}
