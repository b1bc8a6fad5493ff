package publisher

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/transfer"
)

const linkedinAPIURL = "https://api.linkedin.com/v2"

type linkedinPublisher struct {
	app  config.OAuthApp
	http *resty.Client
}

func NewLinkedInPublisher(app config.OAuthApp, httpClient *resty.Client) Publisher {
	return &linkedinPublisher{app: app, http: httpClient}
}

func (p *linkedinPublisher) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.app.ClientID,
		ClientSecret: p.app.ClientSecret,
		RedirectURL:  p.app.RedirectURI,
		Scopes:       []string{"openid", "profile", "w_member_social"},
		Endpoint:     linkedin.Endpoint,
	}
}

func (p *linkedinPublisher) AuthURL(state string) string {
	return p.oauthConfig().AuthCodeURL(state)
}

func (p *linkedinPublisher) Exchange(ctx context.Context, code string) (*transfer.TokenResult, *transfer.AccountInfo, error) {
	token, err := p.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindTransport, "linkedin token exchange failed", err)
	}

	var user transfer.LinkedInUserResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&user).
		Get("https://api.linkedin.com/v2/userinfo")
	if err := transportErr(resp, err, "linkedin user info"); err != nil {
		return nil, nil, err
	}

	result := &transfer.TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int(token.Expiry.Unix()),
	}
	info := &transfer.AccountInfo{
		AccountID:      user.Sub,
		Name:           user.Name,
		ProfilePicture: user.Picture,
	}
	return result, info, nil
}

func (p *linkedinPublisher) Refresh(ctx context.Context, refreshToken string) (*transfer.TokenResult, error) {
	src := p.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "linkedin token refresh failed", err)
	}
	return &transfer.TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int(token.Expiry.Unix()),
	}, nil
}

func (p *linkedinPublisher) Verify(ctx context.Context, accessToken string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get("https://api.linkedin.com/v2/userinfo")
	return transportErr(resp, err, "linkedin verify")
}

func (p *linkedinPublisher) Publish(ctx context.Context, accessToken string, content *models.Content, post *models.Post) (*transfer.PublishResult, error) {
	var user transfer.LinkedInUserResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&user).
		Get("https://api.linkedin.com/v2/userinfo")
	if err := transportErr(resp, err, "linkedin user info"); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"author":         fmt.Sprintf("urn:li:person:%s", user.Sub),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary":    map[string]string{"text": post.Caption},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	resp, err = p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("X-Restli-Protocol-Version", "2.0.0").
		SetBody(body).
		SetError(&apiErr).
		Post(linkedinAPIURL + "/ugcPosts")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "linkedin publish request failed", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return nil, apperr.E(apperr.KindDomain, apiErr.Message)
		}
		return nil, apperr.Ef(apperr.KindTransport, "linkedin publish returned status %d", resp.StatusCode())
	}

	shareID := resp.Header().Get("X-RestLi-Id")
	return &transfer.PublishResult{
		PostID:  shareID,
		PostURL: fmt.Sprintf("https://www.linkedin.com/feed/update/%s", shareID),
	}, nil
}

func (p *linkedinPublisher) Revoke(ctx context.Context, accessToken string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":         accessToken,
			"client_id":     p.app.ClientID,
			"client_secret": p.app.ClientSecret,
		}).
		Post("https://www.linkedin.com/oauth/v2/revoke")
	return transportErr(resp, err, "linkedin revoke")
}
