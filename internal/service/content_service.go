package service

import (
	"context"
	"log/slog"

	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/workflow"
)

type ContentService interface {
	Generate(ctx context.Context, userID int64, topic, intention string) (*models.Content, error)
	Get(ctx context.Context, userID, contentID int64) (*models.Content, error)
	List(ctx context.Context, userID int64) ([]*models.Content, error)
	Approve(ctx context.Context, userID, contentID int64) error
	Reject(ctx context.Context, userID, contentID int64, feedback string) error
	RegenerateCaptions(ctx context.Context, userID, contentID int64) (*models.Content, error)
	RegenerateImage(ctx context.Context, userID, contentID int64) (*models.Content, error)
	GenerateAudio(ctx context.Context, userID, contentID int64) (*models.Content, error)
	Remove(ctx context.Context, userID, contentID int64) error
}

type contentService struct {
	cr repository.ContentRepository
	wf workflow.Client
}

func NewContentService(cr repository.ContentRepository, wf workflow.Client) ContentService {
	return &contentService{cr: cr, wf: wf}
}

func (s *contentService) Generate(ctx context.Context, userID int64, topic, intention string) (*models.Content, error) {
	if topic == "" {
		return nil, apperr.E(apperr.KindValidation, "topic cannot be empty")
	}

	generated, err := s.wf.GenerateContent(ctx, topic, intention)
	if err != nil {
		return nil, err
	}

	content := &models.Content{
		UserID:           userID,
		Topic:            topic,
		FacebookCaption:  generated.FacebookCaption,
		InstagramCaption: generated.InstagramCaption,
		LinkedInCaption:  generated.LinkedInCaption,
		TwitterCaption:   generated.TwitterCaption,
		ThreadsCaption:   generated.ThreadsCaption,
		PinterestCaption: generated.PinterestCaption,
		ImagePrompt:      generated.ImagePrompt,
		ImageURL:         generated.ImageURL,
		VideoURL:         generated.VideoURL,
		AudioURL:         generated.AudioURL,
		Status:           models.ContentStatusPendingApproval,
	}

	id, err := s.cr.Create(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	content.ID = id

	return content, nil
}

func (s *contentService) Get(ctx context.Context, userID, contentID int64) (*models.Content, error) {
	return s.owned(ctx, userID, contentID)
}

func (s *contentService) List(ctx context.Context, userID int64) ([]*models.Content, error) {
	return s.cr.ListByUserID(ctx, userID)
}

// Approve moves pending_approval → approved. Every other status is refused
// and left untouched.
func (s *contentService) Approve(ctx context.Context, userID, contentID int64) error {
	content, err := s.owned(ctx, userID, contentID)
	if err != nil {
		return err
	}
	if !content.CanReview() {
		return apperr.Ef(apperr.KindInvalidState, "content is %s, not pending approval", content.Status)
	}
	return s.cr.UpdateStatus(ctx, contentID, models.ContentStatusApproved, "")
}

// Reject moves pending_approval → rejected. Feedback is advisory metadata
// only; nothing automated consumes it.
func (s *contentService) Reject(ctx context.Context, userID, contentID int64, feedback string) error {
	content, err := s.owned(ctx, userID, contentID)
	if err != nil {
		return err
	}
	if !content.CanReview() {
		return apperr.Ef(apperr.KindInvalidState, "content is %s, not pending approval", content.Status)
	}
	return s.cr.UpdateStatus(ctx, contentID, models.ContentStatusRejected, feedback)
}

// RegenerateCaptions re-runs the workflow for the same topic and overwrites
// the caption fields. Status is untouched; concurrent regenerates are not
// guarded, last writer wins.
func (s *contentService) RegenerateCaptions(ctx context.Context, userID, contentID int64) (*models.Content, error) {
	content, err := s.owned(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}

	generated, err := s.wf.GenerateContent(ctx, content.Topic, "")
	if err != nil {
		return nil, err
	}

	content.FacebookCaption = generated.FacebookCaption
	content.InstagramCaption = generated.InstagramCaption
	content.LinkedInCaption = generated.LinkedInCaption
	content.TwitterCaption = generated.TwitterCaption
	content.ThreadsCaption = generated.ThreadsCaption
	content.PinterestCaption = generated.PinterestCaption

	if err := s.cr.UpdateCaptions(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (s *contentService) RegenerateImage(ctx context.Context, userID, contentID int64) (*models.Content, error) {
	content, err := s.owned(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}

	prompt := content.ImagePrompt
	if prompt == "" {
		prompt = content.Topic
	}
	imageURL, err := s.wf.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}

	content.ImageURL = imageURL
	if err := s.cr.UpdateImage(ctx, contentID, prompt, imageURL); err != nil {
		return nil, err
	}
	return content, nil
}

// GenerateAudio produces a voiceover for the content. The script is the
// facebook caption, the general-form text, falling back to the topic when
// captions are still empty.
func (s *contentService) GenerateAudio(ctx context.Context, userID, contentID int64) (*models.Content, error) {
	content, err := s.owned(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}

	script := content.FacebookCaption
	if script == "" {
		script = content.Topic
	}
	audioURL, err := s.wf.GenerateAudio(ctx, script)
	if err != nil {
		return nil, err
	}

	content.AudioURL = audioURL
	if err := s.cr.UpdateAudio(ctx, contentID, audioURL); err != nil {
		return nil, err
	}
	return content, nil
}

func (s *contentService) Remove(ctx context.Context, userID, contentID int64) error {
	if _, err := s.owned(ctx, userID, contentID); err != nil {
		return err
	}
	return s.cr.Remove(ctx, contentID)
}

func (s *contentService) owned(ctx context.Context, userID, contentID int64) (*models.Content, error) {
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
		slog.Info("content ownership check failed", "content_id", contentID, "user_id", userID)
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
