package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	cfg "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
)

// MediaService stores generated media and exported merges in R2. Keys are
// nanoids; callers get back the public URL.
type MediaService struct {
	config cfg.Config
}

func NewMediaService(config cfg.Config) *MediaService {
	return &MediaService{config: config}
}

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {}, "mp3": {},
}

func (m *MediaService) r2Client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.config.R2.AccessKey, m.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.config.R2.AccountID))
	}), nil
}

// Upload sniffs the file type, rejects anything off the allow-list, and
// stores the bytes under a fresh key. Returns the public URL.
func (m *MediaService) Upload(ctx context.Context, file []byte) (string, error) {
	fileType, err := filetype.Match(file)
	if err != nil || fileType == types.Unknown {
		return "", apperr.E(apperr.KindValidation, "unsupported file type")
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return "", apperr.Ef(apperr.KindValidation, "file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	client, err := m.r2Client(ctx)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(fileType.MIME.Value),
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", apperr.Wrap(apperr.KindTransport, "media upload failed", err)
	}

	return fmt.Sprintf("%s/%s", m.config.R2.PublicBase, key), nil
}
