package models_test

import (
	"testing"

	"github.com/contentpilot/backend/internal/models"
)

func TestCaptionFor(t *testing.T) {
	content := &models.Content{
		FacebookCaption:  "fb",
		InstagramCaption: "ig",
		LinkedInCaption:  "li",
		TwitterCaption:   "tw",
	}

	cases := []struct {
		platform models.Platform
		want     string
	}{
		{models.PlatformFacebook, "fb"},
		{models.PlatformInstagram, "ig"},
		{models.PlatformLinkedIn, "li"},
		{models.PlatformTwitter, "tw"},
		// TikTok has no dedicated caption field and reuses the instagram
		// caption.
		{models.PlatformTiktok, "ig"},
	}
	for _, tc := range cases {
		if got := content.CaptionFor(tc.platform); got != tc.want {
			t.Errorf("CaptionFor(%s) = %q, want %q", tc.platform, got, tc.want)
		}
	}

	// Every platform in the closed set maps to a caption deliberately.
	for _, p := range models.AllPlatforms {
		if got := content.CaptionFor(p); got == "" {
			t.Errorf("CaptionFor(%s) returned no caption", p)
		}
	}
}

func TestContentLifecycleGuards(t *testing.T) {
	for _, tc := range []struct {
		status     string
		canReview  bool
		canPublish bool
	}{
		{models.ContentStatusDraft, false, false},
		{models.ContentStatusPendingApproval, true, false},
		{models.ContentStatusApproved, false, true},
		{models.ContentStatusRejected, false, false},
		{models.ContentStatusPublished, false, false},
	} {
		content := &models.Content{Status: tc.status}
		if content.CanReview() != tc.canReview {
			t.Errorf("%s: CanReview = %v", tc.status, content.CanReview())
		}
		if content.CanPublish() != tc.canPublish {
			t.Errorf("%s: CanPublish = %v", tc.status, content.CanPublish())
		}
	}
}

func TestPostCanRetry(t *testing.T) {
	for _, tc := range []struct {
		status string
		want   bool
	}{
		{models.PostStatusScheduled, false},
		{models.PostStatusPosting, false},
		{models.PostStatusPublished, false},
		{models.PostStatusFailed, true},
	} {
		post := &models.Post{Status: tc.status}
		if post.CanRetry() != tc.want {
			t.Errorf("%s: CanRetry = %v, want %v", tc.status, post.CanRetry(), tc.want)
		}
	}
}

func TestParsePlatform(t *testing.T) {
	for _, name := range []string{"facebook", "instagram", "linkedin", "twitter", "tiktok"} {
		if _, ok := models.ParsePlatform(name); !ok {
			t.Errorf("ParsePlatform(%q) rejected a known platform", name)
		}
	}
	for _, name := range []string{"", "Facebook", "myspace", "threads"} {
		if _, ok := models.ParsePlatform(name); ok {
			t.Errorf("ParsePlatform(%q) accepted an unknown platform", name)
		}
	}
}
