package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/pkg/utils"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	// Delivery outcomes land on the Post row; asynq-level retries would
	// double-post, so the handler itself never returns an error for a
	// platform failure. The user-initiated retry path re-enqueues.
	q.PublishPost(ctx, payload.PostID)
	return nil
}

// PublishPost delivers one Post row to its platform and records the outcome.
func (q *Queue) PublishPost(ctx context.Context, postID int64) {
	post, err := q.pr.GetByID(ctx, postID)
	if err != nil {
		slog.Error("failed to load post", "post_id", postID, "error", err)
		return
	}
	if post == nil {
		// Removed between enqueue and now; nothing to do.
		slog.Info("post no longer exists", "post_id", postID)
		return
	}

	switch post.Status {
	case models.PostStatusScheduled, models.PostStatusPosting:
	default:
		slog.Info("post is not deliverable", "post_id", postID, "status", post.Status)
		return
	}

	if post.Status == models.PostStatusScheduled {
		if err := q.pr.UpdateStatus(ctx, postID, models.PostStatusPosting, ""); err != nil {
			slog.Error("failed to mark post as posting", "post_id", postID, "error", err)
			return
		}
	}

	content, err := q.cr.GetByID(ctx, post.ContentID)
	if err != nil || content == nil {
		q.fail(ctx, postID, "content record is gone")
		return
	}

	account, err := q.sar.GetConnected(ctx, post.UserID, post.Platform)
	if err != nil {
		q.fail(ctx, postID, err.Error())
		return
	}
	if account == nil {
		q.fail(ctx, postID, "no connected account for "+string(post.Platform))
		return
	}

	pub, err := q.reg.For(post.Platform)
	if err != nil {
		q.fail(ctx, postID, err.Error())
		return
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(q.cfg.SecretKey))
	if err != nil {
		q.fail(ctx, postID, "stored token could not be decrypted")
		return
	}

	result, err := pub.Publish(ctx, accessToken, content, post)
	if err != nil {
		slog.Error("platform publish failed", "post_id", postID, "platform", post.Platform, "error", err)
		q.fail(ctx, postID, err.Error())
		return
	}

	now := time.Now()
	if err := q.pr.MarkPublished(ctx, postID, result.PostID, result.PostURL, now); err != nil {
		slog.Error("failed to record publish outcome", "post_id", postID, "error", err)
		return
	}
	if err := q.sar.SetLastPostedAt(ctx, account.ID, now); err != nil {
		slog.Info(err.Error())
	}

	// First successful delivery flips the content to published.
	if content.Status != models.ContentStatusPublished {
		if err := q.cr.UpdateStatus(ctx, content.ID, models.ContentStatusPublished, ""); err != nil {
			slog.Info(err.Error())
		}
	}
}

func (q *Queue) fail(ctx context.Context, postID int64, message string) {
	if err := q.pr.UpdateStatus(ctx, postID, models.PostStatusFailed, message); err != nil {
		slog.Error("failed to mark post as failed", "post_id", postID, "error", err)
	}
}
