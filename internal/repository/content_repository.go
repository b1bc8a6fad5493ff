package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/contentpilot/backend/internal/models"
)

const contentColumns = `id, user_id, topic, facebook_caption, instagram_caption, linkedin_caption,
	twitter_caption, threads_caption, pinterest_caption, image_prompt, image_url, video_url,
	audio_url, status, feedback, created_at, updated_at`

type ContentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, content *models.Content) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Content, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Content, error)
	CheckByUserID(ctx context.Context, contentID, userID int64) (bool, error)
	UpdateStatus(ctx context.Context, contentID int64, status, feedback string) error
	UpdateCaptions(ctx context.Context, content *models.Content) error
	UpdateImage(ctx context.Context, contentID int64, imagePrompt, imageURL string) error
	UpdateAudio(ctx context.Context, contentID int64, audioURL string) error
	Remove(ctx context.Context, id int64) error
}

type contentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(ctx context.Context, tx *sql.Tx, content *models.Content) (int64, error) {
	query := `
		INSERT INTO contents (user_id, topic, facebook_caption, instagram_caption, linkedin_caption,
			twitter_caption, threads_caption, pinterest_caption, image_prompt, image_url, video_url,
			audio_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	args := []interface{}{
		content.UserID,
		content.Topic,
		content.FacebookCaption,
		content.InstagramCaption,
		content.LinkedInCaption,
		content.TwitterCaption,
		content.ThreadsCaption,
		content.PinterestCaption,
		content.ImagePrompt,
		content.ImageURL,
		content.VideoURL,
		content.AudioURL,
		content.Status,
	}

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *contentRepository) GetByID(ctx context.Context, id int64) (*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	content, err := scanContent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return content, nil
}

func (r *contentRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var contents []*models.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

func (r *contentRepository) CheckByUserID(ctx context.Context, contentID, userID int64) (bool, error) {
	query := "SELECT 1 FROM contents WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, contentID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *contentRepository) UpdateStatus(ctx context.Context, contentID int64, status, feedback string) error {
	query := `
		UPDATE contents
		SET status = $1,
			feedback = COALESCE(NULLIF($2, ''), feedback),
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, feedback, time.Now(), contentID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentRepository) UpdateCaptions(ctx context.Context, content *models.Content) error {
	query := `
		UPDATE contents
		SET facebook_caption = $1,
			instagram_caption = $2,
			linkedin_caption = $3,
			twitter_caption = $4,
			threads_caption = $5,
			pinterest_caption = $6,
			updated_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query,
		content.FacebookCaption,
		content.InstagramCaption,
		content.LinkedInCaption,
		content.TwitterCaption,
		content.ThreadsCaption,
		content.PinterestCaption,
		time.Now(),
		content.ID,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentRepository) UpdateImage(ctx context.Context, contentID int64, imagePrompt, imageURL string) error {
	query := `
		UPDATE contents
		SET image_prompt = $1,
			image_url = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, imagePrompt, imageURL, time.Now(), contentID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentRepository) UpdateAudio(ctx context.Context, contentID int64, audioURL string) error {
	query := `
		UPDATE contents
		SET audio_url = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, audioURL, time.Now(), contentID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM contents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(row rowScanner) (*models.Content, error) {
	var content models.Content
	err := row.Scan(
		&content.ID,
		&content.UserID,
		&content.Topic,
		&content.FacebookCaption,
		&content.InstagramCaption,
		&content.LinkedInCaption,
		&content.TwitterCaption,
		&content.ThreadsCaption,
		&content.PinterestCaption,
		&content.ImagePrompt,
		&content.ImageURL,
		&content.VideoURL,
		&content.AudioURL,
		&content.Status,
		&content.Feedback,
		&content.CreatedAt,
		&content.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &content, nil
}
