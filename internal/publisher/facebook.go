package publisher

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/transfer"
)

const facebookGraphURL = "https://graph.facebook.com/v21.0"

type facebookPublisher struct {
	app  config.OAuthApp
	http *resty.Client
}

func NewFacebookPublisher(app config.OAuthApp, httpClient *resty.Client) Publisher {
	return &facebookPublisher{app: app, http: httpClient}
}

func (p *facebookPublisher) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.app.ClientID,
		ClientSecret: p.app.ClientSecret,
		RedirectURL:  p.app.RedirectURI,
		Scopes:       []string{"pages_manage_posts", "pages_read_engagement", "public_profile"},
		Endpoint:     facebook.Endpoint,
	}
}

func (p *facebookPublisher) AuthURL(state string) string {
	return p.oauthConfig().AuthCodeURL(state)
}

func (p *facebookPublisher) Exchange(ctx context.Context, code string) (*transfer.TokenResult, *transfer.AccountInfo, error) {
	token, err := p.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindTransport, "facebook token exchange failed", err)
	}

	var user transfer.MetaUserResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "id,name,picture",
			"access_token": token.AccessToken,
		}).
		SetResult(&user).
		Get(facebookGraphURL + "/me")
	if err := transportErr(resp, err, "facebook user info"); err != nil {
		return nil, nil, err
	}

	result := &transfer.TokenResult{
		AccessToken: token.AccessToken,
		ExpiresIn:   int(token.Expiry.Unix()),
	}
	info := &transfer.AccountInfo{
		AccountID:      user.ID,
		Name:           user.Name,
		Username:       user.Username,
		ProfilePicture: user.Picture.Data.URL,
	}
	return result, info, nil
}

func (p *facebookPublisher) Refresh(ctx context.Context, refreshToken string) (*transfer.TokenResult, error) {
	// Long-lived token exchange; facebook has no classic refresh grant.
	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":        "fb_exchange_token",
			"client_id":         p.app.ClientID,
			"client_secret":     p.app.ClientSecret,
			"fb_exchange_token": refreshToken,
		}).
		SetResult(&tokenResp).
		Get(facebookGraphURL + "/oauth/access_token")
	if err := transportErr(resp, err, "facebook token refresh"); err != nil {
		return nil, err
	}
	return &transfer.TokenResult{AccessToken: tokenResp.AccessToken, ExpiresIn: tokenResp.ExpiresIn}, nil
}

func (p *facebookPublisher) Verify(ctx context.Context, accessToken string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParam("access_token", accessToken).
		Get(facebookGraphURL + "/me")
	return transportErr(resp, err, "facebook verify")
}

func (p *facebookPublisher) Publish(ctx context.Context, accessToken string, content *models.Content, post *models.Post) (*transfer.PublishResult, error) {
	form := url.Values{}
	form.Set("message", post.Caption)
	form.Set("access_token", accessToken)
	endpoint := facebookGraphURL + "/me/feed"
	if content.ImageURL != "" {
		form.Set("url", content.ImageURL)
		form.Set("caption", post.Caption)
		endpoint = facebookGraphURL + "/me/photos"
	}

	var published transfer.MetaPublishResponse
	var apiErr transfer.MetaErrorResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		SetResult(&published).
		SetError(&apiErr).
		Post(endpoint)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "facebook publish request failed", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return nil, apperr.E(apperr.KindDomain, apiErr.Error.Message)
		}
		return nil, apperr.Ef(apperr.KindTransport, "facebook publish returned status %d", resp.StatusCode())
	}

	postID := published.PostID
	if postID == "" {
		postID = published.ID
	}
	return &transfer.PublishResult{
		PostID:  postID,
		PostURL: fmt.Sprintf("https://www.facebook.com/%s", postID),
	}, nil
}

func (p *facebookPublisher) Revoke(ctx context.Context, accessToken string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParam("access_token", accessToken).
		Delete(facebookGraphURL + "/me/permissions")
	return transportErr(resp, err, "facebook revoke")
}
