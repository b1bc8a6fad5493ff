package publisher

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/transfer"
)

const twitterAPIURL = "https://api.twitter.com/2"

var twitterEndpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

type twitterPublisher struct {
	app  config.OAuthApp
	http *resty.Client
}

func NewTwitterPublisher(app config.OAuthApp, httpClient *resty.Client) Publisher {
	return &twitterPublisher{app: app, http: httpClient}
}

func (p *twitterPublisher) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.app.ClientID,
		ClientSecret: p.app.ClientSecret,
		RedirectURL:  p.app.RedirectURI,
		Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		Endpoint:     twitterEndpoint,
	}
}

// Twitter mandates PKCE; the plain method keeps the flow stateless since the
// verifier doubles as the challenge.
const twitterPKCEVerifier = "challenge"

func (p *twitterPublisher) AuthURL(state string) string {
	return p.oauthConfig().AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", twitterPKCEVerifier),
		oauth2.SetAuthURLParam("code_challenge_method", "plain"),
	)
}

func (p *twitterPublisher) Exchange(ctx context.Context, code string) (*transfer.TokenResult, *transfer.AccountInfo, error) {
	token, err := p.oauthConfig().Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", twitterPKCEVerifier),
	)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindTransport, "twitter token exchange failed", err)
	}

	var user transfer.TwitterUserResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&user).
		Get(twitterAPIURL + "/users/me")
	if err := transportErr(resp, err, "twitter user info"); err != nil {
		return nil, nil, err
	}

	result := &transfer.TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int(token.Expiry.Unix()),
	}
	info := &transfer.AccountInfo{
		AccountID: user.Data.ID,
		Name:      user.Data.Name,
		Username:  user.Data.Username,
	}
	return result, info, nil
}

func (p *twitterPublisher) Refresh(ctx context.Context, refreshToken string) (*transfer.TokenResult, error) {
	src := p.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "twitter token refresh failed", err)
	}
	return &transfer.TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int(token.Expiry.Unix()),
	}, nil
}

func (p *twitterPublisher) Verify(ctx context.Context, accessToken string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get(twitterAPIURL + "/users/me")
	return transportErr(resp, err, "twitter verify")
}

func (p *twitterPublisher) Publish(ctx context.Context, accessToken string, content *models.Content, post *models.Post) (*transfer.PublishResult, error) {
	var tweet transfer.TwitterTweetResponse
	var apiErr struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(map[string]string{"text": post.Caption}).
		SetResult(&tweet).
		SetError(&apiErr).
		Post(twitterAPIURL + "/tweets")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "twitter publish request failed", err)
	}
	if resp.IsError() {
		if apiErr.Detail != "" {
			return nil, apperr.E(apperr.KindDomain, apiErr.Detail)
		}
		return nil, apperr.Ef(apperr.KindTransport, "twitter publish returned status %d", resp.StatusCode())
	}

	return &transfer.PublishResult{
		PostID:  tweet.Data.ID,
		PostURL: fmt.Sprintf("https://twitter.com/i/web/status/%s", tweet.Data.ID),
	}, nil
}

func (p *twitterPublisher) Revoke(ctx context.Context, accessToken string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":           accessToken,
			"client_id":       p.app.ClientID,
			"token_type_hint": "access_token",
		}).
		Post("https://api.twitter.com/2/oauth2/revoke")
	return transportErr(resp, err, "twitter revoke")
}
