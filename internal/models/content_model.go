package models

import "time"

type Content struct {
	ID               int64     `db:"id" json:"id"`
	UserID           int64     `db:"user_id" json:"user_id"`
	Topic            string    `db:"topic" json:"topic"`
	FacebookCaption  string    `db:"facebook_caption" json:"facebook_caption"`
	InstagramCaption string    `db:"instagram_caption" json:"instagram_caption"`
	LinkedInCaption  string    `db:"linkedin_caption" json:"linkedin_caption"`
	TwitterCaption   string    `db:"twitter_caption" json:"twitter_caption"`
	ThreadsCaption   string    `db:"threads_caption" json:"threads_caption"`
	PinterestCaption string    `db:"pinterest_caption" json:"pinterest_caption"`
	ImagePrompt      string    `db:"image_prompt" json:"image_prompt"`
	ImageURL         string    `db:"image_url" json:"image_url"`
	VideoURL         string    `db:"video_url" json:"video_url"`
	AudioURL         string    `db:"audio_url" json:"audio_url"`
	Status           string    `db:"status" json:"status"`
	Feedback         string    `db:"feedback" json:"feedback"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

const (
	ContentStatusDraft           = "draft"
	ContentStatusPendingApproval = "pending_approval"
	ContentStatusApproved        = "approved"
	ContentStatusRejected        = "rejected"
	ContentStatusPublished       = "published"
)

// CanReview reports whether approve/reject may fire. Every other status is a
// terminal or pre-review state and must leave the record untouched.
func (c *Content) CanReview() bool {
	return c.Status == ContentStatusPendingApproval
}

func (c *Content) CanPublish() bool {
	return c.Status == ContentStatusApproved
}

// CaptionFor returns the caption snapshot used when fanning out to a platform.
// The switch covers every AllPlatforms member; tiktok has no dedicated field
// and deliberately reuses the instagram caption, both being short-video
// surfaces with the same hashtag conventions.
func (c *Content) CaptionFor(p Platform) string {
	switch p {
	case PlatformFacebook:
		return c.FacebookCaption
	case PlatformInstagram:
		return c.InstagramCaption
	case PlatformLinkedIn:
		return c.LinkedInCaption
	case PlatformTwitter:
		return c.TwitterCaption
	case PlatformTiktok:
		return c.InstagramCaption
	default:
		return ""
	}
}
