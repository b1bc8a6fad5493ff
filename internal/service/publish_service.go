package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/repository"
)

// Enqueuer hands a recorded Post to the delivery worker, optionally delayed.
type Enqueuer interface {
	EnqueuePublish(postID int64, delay time.Duration) error
}

type PublishService interface {
	Publish(ctx context.Context, userID, contentID int64, platforms []string, scheduledFor *time.Time) ([]*models.Post, error)
	Retry(ctx context.Context, userID, postID int64) error
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	ListByContent(ctx context.Context, userID, contentID int64) ([]*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type publishService struct {
	db    *sql.DB
	pr    repository.PostRepository
	cr    repository.ContentRepository
	sar   repository.SocialAccountRepository
	enq   Enqueuer
	guard Locker
	now   func() time.Time
}

func NewPublishService(
	db *sql.DB,
	pr repository.PostRepository,
	cr repository.ContentRepository,
	sar repository.SocialAccountRepository,
	enq Enqueuer,
	guard Locker) PublishService {
	return &publishService{
		db:    db,
		pr:    pr,
		cr:    cr,
		sar:   sar,
		enq:   enq,
		guard: guard,
		now:   time.Now,
	}
}

const publishGuardTTL = 30 * time.Second

// Publish fans an approved content out to one Post per selected platform.
// Validation happens before any row is created: an empty selection, a past
// schedule, or a platform without a connected account all fail with zero
// side effects. Delivery across platforms is independent afterwards.
func (s *publishService) Publish(ctx context.Context, userID, contentID int64, platformNames []string, scheduledFor *time.Time) ([]*models.Post, error) {
	if len(platformNames) == 0 {
		return nil, apperr.E(apperr.KindValidation, "no platforms selected")
	}
	if scheduledFor != nil && !scheduledFor.After(s.now()) {
		return nil, apperr.E(apperr.KindValidation, "scheduled time must be in the future")
	}

	platforms := make([]models.Platform, 0, len(platformNames))
	for _, name := range platformNames {
		platform, ok := models.ParsePlatform(name)
		if !ok {
			return nil, apperr.Ef(apperr.KindValidation, "unknown platform %q", name)
		}
		platforms = append(platforms, platform)
	}

	content, err := s.ownedContent(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	if !content.CanPublish() {
		return nil, apperr.Ef(apperr.KindInvalidState, "content is %s, not approved", content.Status)
	}

	guardKey := fmt.Sprintf("publish:content:%d", contentID)
	acquired, err := s.guard.Acquire(ctx, guardKey, publishGuardTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, apperr.E(apperr.KindDomain, "publish already in progress for this content")
	}
	defer func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), guardKey); err != nil {
			slog.Info(err.Error())
		}
	}()

	// Every platform must resolve to a connected account before anything is
	// written; a partial fan-out on bad input is worse than a clean refusal.
	var missing []string
	for _, platform := range platforms {
		account, err := s.sar.GetConnected(ctx, userID, platform)
		if err != nil {
			return nil, err
		}
		if account == nil {
			missing = append(missing, platform.DisplayName())
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Ef(apperr.KindValidation, "no connected account for: %s", strings.Join(missing, ", "))
	}

	status := models.PostStatusPosting
	var delay time.Duration
	if scheduledFor != nil {
		status = models.PostStatusScheduled
		delay = time.Until(*scheduledFor)
		if delay < 0 {
			delay = 0
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	posts := make([]*models.Post, 0, len(platforms))
	for _, platform := range platforms {
		post := &models.Post{
			UserID:       userID,
			ContentID:    contentID,
			Platform:     platform,
			Caption:      content.CaptionFor(platform),
			Status:       status,
			ScheduledFor: scheduledFor,
		}
		postID, createErr := s.pr.Create(ctx, tx, post)
		if createErr != nil {
			err = fmt.Errorf("error creating post for %s: %w", platform, createErr)
			return nil, err
		}
		post.ID = postID
		posts = append(posts, post)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, post := range posts {
		if err := s.enq.EnqueuePublish(post.ID, delay); err != nil {
			// The row exists; the worker will never pick it up. Mark it
			// failed so the user can retry rather than losing it silently.
			slog.Error("failed to enqueue publish task", "post_id", post.ID, "error", err)
			if updateErr := s.pr.UpdateStatus(ctx, post.ID, models.PostStatusFailed, "failed to schedule delivery"); updateErr != nil {
				slog.Error(updateErr.Error())
			}
		}
	}

	return posts, nil
}

// Retry re-delegates a failed post. Any other status is refused and the
// record left unchanged.
func (s *publishService) Retry(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !post.CanRetry() {
		return apperr.Ef(apperr.KindInvalidState, "post is %s, not failed", post.Status)
	}

	if err := s.pr.UpdateStatus(ctx, postID, models.PostStatusPosting, ""); err != nil {
		return err
	}
	return s.enq.EnqueuePublish(postID, 0)
}

func (s *publishService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.ListByUserID(ctx, userID)
}

func (s *publishService) ListByContent(ctx context.Context, userID, contentID int64) ([]*models.Post, error) {
	if _, err := s.ownedContent(ctx, userID, contentID); err != nil {
		return nil, err
	}
	return s.pr.ListByContentID(ctx, contentID)
}

func (s *publishService) Remove(ctx context.Context, userID, postID int64) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}
	return s.pr.Remove(ctx, postID)
}

func (s *publishService) ownedContent(ctx context.Context, userID, contentID int64) (*models.Content, error) {
	if userID == 0 {
		return nil, apperr.E(apperr.KindValidation, "user is not valid")
	}
	if contentID == 0 {
		return nil, apperr.E(apperr.KindValidation, "content id is not valid")
	}

	isOwned, err := s.cr.CheckByUserID(ctx, contentID, userID)
	if err != nil {
		return nil, err
	}
	if !isOwned {
		return nil, apperr.E(apperr.KindValidation, "content doesn't exist")
	}

	content, err := s.cr.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, apperr.E(apperr.KindValidation, "content doesn't exist")
	}
	return content, nil
}

func (s *publishService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if userID == 0 {
		return nil, apperr.E(apperr.KindValidation, "user is not valid")
	}
	if postID == 0 {
		return nil, apperr.E(apperr.KindValidation, "post id is not valid")
	}

	isOwned, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isOwned {
		return nil, apperr.E(apperr.KindValidation, "post doesn't exist")
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.E(apperr.KindValidation, "post doesn't exist")
	}
	return post, nil
}
