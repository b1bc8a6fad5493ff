package publisher

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/transfer"
)

const (
	instagramAuthURL  = "https://www.instagram.com/oauth/authorize"
	instagramTokenURL = "https://api.instagram.com/oauth/access_token"
	instagramGraphURL = "https://graph.instagram.com"
)

type instagramPublisher struct {
	app  config.OAuthApp
	http *resty.Client
}

func NewInstagramPublisher(app config.OAuthApp, httpClient *resty.Client) Publisher {
	return &instagramPublisher{app: app, http: httpClient}
}

func (p *instagramPublisher) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", p.app.ClientID)
	params.Add("scope", "instagram_business_basic,instagram_business_content_publish")
	params.Add("response_type", "code")
	params.Add("redirect_uri", p.app.RedirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())
}

func (p *instagramPublisher) Exchange(ctx context.Context, code string) (*transfer.TokenResult, *transfer.AccountInfo, error) {
	var tokenResp struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	resp, err := p.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     p.app.ClientID,
			"client_secret": p.app.ClientSecret,
			"grant_type":    "authorization_code",
			"redirect_uri":  p.app.RedirectURI,
			"code":          code,
		}).
		SetResult(&tokenResp).
		Post(instagramTokenURL)
	if err := transportErr(resp, err, "instagram token exchange"); err != nil {
		return nil, nil, err
	}

	// Short-lived token → long-lived before storing.
	var longLived struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err = p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":    "ig_exchange_token",
			"client_secret": p.app.ClientSecret,
			"access_token":  tokenResp.AccessToken,
		}).
		SetResult(&longLived).
		Get(instagramGraphURL + "/access_token")
	if err := transportErr(resp, err, "instagram long-lived exchange"); err != nil {
		return nil, nil, err
	}

	var user transfer.MetaUserResponse
	resp, err = p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "id,username,name",
			"access_token": longLived.AccessToken,
		}).
		SetResult(&user).
		Get(instagramGraphURL + "/me")
	if err := transportErr(resp, err, "instagram user info"); err != nil {
		return nil, nil, err
	}

	result := &transfer.TokenResult{AccessToken: longLived.AccessToken, ExpiresIn: longLived.ExpiresIn}
	info := &transfer.AccountInfo{AccountID: user.ID, Name: user.Name, Username: user.Username}
	return result, info, nil
}

func (p *instagramPublisher) Refresh(ctx context.Context, refreshToken string) (*transfer.TokenResult, error) {
	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":   "ig_refresh_token",
			"access_token": refreshToken,
		}).
		SetResult(&refreshed).
		Get(instagramGraphURL + "/refresh_access_token")
	if err := transportErr(resp, err, "instagram token refresh"); err != nil {
		return nil, err
	}
	return &transfer.TokenResult{AccessToken: refreshed.AccessToken, ExpiresIn: refreshed.ExpiresIn}, nil
}

func (p *instagramPublisher) Verify(ctx context.Context, accessToken string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "id",
			"access_token": accessToken,
		}).
		Get(instagramGraphURL + "/me")
	return transportErr(resp, err, "instagram verify")
}

// Publish runs the two-step container flow: create a media container for the
// image or video, then publish it.
func (p *instagramPublisher) Publish(ctx context.Context, accessToken string, content *models.Content, post *models.Post) (*transfer.PublishResult, error) {
	if content.ImageURL == "" && content.VideoURL == "" {
		return nil, apperr.E(apperr.KindValidation, "instagram requires an image or video")
	}

	form := map[string]string{
		"caption":      post.Caption,
		"access_token": accessToken,
	}
	if content.VideoURL != "" {
		form["media_type"] = "REELS"
		form["video_url"] = content.VideoURL
	} else {
		form["image_url"] = content.ImageURL
	}

	var container struct {
		ID string `json:"id"`
	}
	var apiErr transfer.MetaErrorResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&container).
		SetError(&apiErr).
		Post(instagramGraphURL + "/me/media")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "instagram container request failed", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return nil, apperr.E(apperr.KindDomain, apiErr.Error.Message)
		}
		return nil, apperr.Ef(apperr.KindTransport, "instagram container returned status %d", resp.StatusCode())
	}

	var published struct {
		ID string `json:"id"`
	}
	resp, err = p.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"creation_id":  container.ID,
			"access_token": accessToken,
		}).
		SetResult(&published).
		SetError(&apiErr).
		Post(instagramGraphURL + "/me/media_publish")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "instagram publish request failed", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return nil, apperr.E(apperr.KindDomain, apiErr.Error.Message)
		}
		return nil, apperr.Ef(apperr.KindTransport, "instagram publish returned status %d", resp.StatusCode())
	}

	return &transfer.PublishResult{
		PostID:  published.ID,
		PostURL: fmt.Sprintf("https://www.instagram.com/p/%s", published.ID),
	}, nil
}

func (p *instagramPublisher) Revoke(ctx context.Context, accessToken string) error {
	// Instagram has no revoke endpoint for basic-display tokens; the account
	// row removal is the disconnect.
	return nil
}
