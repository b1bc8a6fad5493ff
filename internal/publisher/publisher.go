// Package publisher holds the per-platform delivery clients. Each client
// normalizes its platform's OAuth and publish endpoints behind one interface
// so the queue worker and the account flows never branch on platform quirks.
package publisher

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/transfer"
)

type Publisher interface {
	// AuthURL builds the platform authorize redirect carrying the signed state.
	AuthURL(state string) string
	// Exchange turns an OAuth code into tokens plus the account identity.
	Exchange(ctx context.Context, code string) (*transfer.TokenResult, *transfer.AccountInfo, error)
	// Refresh renews an expiring token where the platform supports it.
	Refresh(ctx context.Context, refreshToken string) (*transfer.TokenResult, error)
	// Verify checks a stored token is still usable.
	Verify(ctx context.Context, accessToken string) error
	// Publish delivers one post and returns the platform-side identifiers.
	Publish(ctx context.Context, accessToken string, content *models.Content, post *models.Post) (*transfer.PublishResult, error)
	// Revoke invalidates the token on disconnect; best effort.
	Revoke(ctx context.Context, accessToken string) error
}

// Registry maps every platform to its client. Construction is exhaustive
// over models.AllPlatforms so a platform without a client cannot slip in.
type Registry struct {
	publishers map[models.Platform]Publisher
}

func NewRegistry(cfg *config.Config) *Registry {
	httpClient := newHTTPClient()
	publishers := map[models.Platform]Publisher{
		models.PlatformFacebook:  NewFacebookPublisher(cfg.Facebook, httpClient),
		models.PlatformInstagram: NewInstagramPublisher(cfg.Instagram, httpClient),
		models.PlatformLinkedIn:  NewLinkedInPublisher(cfg.LinkedIn, httpClient),
		models.PlatformTwitter:   NewTwitterPublisher(cfg.Twitter, httpClient),
		models.PlatformTiktok:    NewTiktokPublisher(cfg.Tiktok, httpClient),
	}
	for _, p := range models.AllPlatforms {
		if _, ok := publishers[p]; !ok {
			panic("publisher registry missing platform " + string(p))
		}
	}
	return &Registry{publishers: publishers}
}

// NewStaticRegistry builds a registry from an explicit map. Used where the
// real clients are replaced wholesale, e.g. in worker tests.
func NewStaticRegistry(publishers map[models.Platform]Publisher) *Registry {
	return &Registry{publishers: publishers}
}

func (r *Registry) For(platform models.Platform) (Publisher, error) {
	p, ok := r.publishers[platform]
	if !ok {
		return nil, apperr.Ef(apperr.KindValidation, "unsupported platform %q", platform)
	}
	return p, nil
}

func newHTTPClient() *resty.Client {
	return resty.New().
		SetTimeout(2 * time.Minute).
		SetHeader("Accept", "application/json")
}

// transportErr classifies a resty call outcome under the shared taxonomy.
func transportErr(resp *resty.Response, err error, what string) error {
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, what+" request failed", err)
	}
	if resp.IsError() {
		return apperr.Ef(apperr.KindTransport, "%s returned status %d: %s", what, resp.StatusCode(), resp.String())
	}
	return nil
}
