package queue

import (
	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/publisher"
	"github.com/contentpilot/backend/internal/repository"
)

// Queue is the delivery worker: it picks up recorded Post rows and drives
// them through posting → published/failed against the platform clients.
type Queue struct {
	cfg config.Config
	pr  repository.PostRepository
	cr  repository.ContentRepository
	sar repository.SocialAccountRepository
	reg *publisher.Registry
}

func NewQueue(
	cfg config.Config,
	pr repository.PostRepository,
	cr repository.ContentRepository,
	sar repository.SocialAccountRepository,
	reg *publisher.Registry) *Queue {
	return &Queue{
		cfg: cfg,
		pr:  pr,
		cr:  cr,
		sar: sar,
		reg: reg,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
