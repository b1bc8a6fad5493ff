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
	tiktokAuthURL    = "https://www.tiktok.com/v2/auth/authorize"
	tiktokTokenURL   = "https://open.tiktokapis.com/v2/oauth/token/"
	tiktokAPIURL     = "https://open.tiktokapis.com/v2"
	tiktokOAuthScope = "user.info.basic,user.info.profile,video.publish,video.upload"
)

type tiktokPublisher struct {
	app  config.OAuthApp
	http *resty.Client
}

func NewTiktokPublisher(app config.OAuthApp, httpClient *resty.Client) Publisher {
	return &tiktokPublisher{app: app, http: httpClient}
}

func (p *tiktokPublisher) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_key", p.app.ClientID)
	params.Add("scope", tiktokOAuthScope)
	params.Add("response_type", "code")
	params.Add("redirect_uri", p.app.RedirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", tiktokAuthURL, params.Encode())
}

func (p *tiktokPublisher) Exchange(ctx context.Context, code string) (*transfer.TokenResult, *transfer.AccountInfo, error) {
	token, err := p.requestToken(ctx, map[string]string{
		"client_key":    p.app.ClientID,
		"client_secret": p.app.ClientSecret,
		"code":          code,
		"grant_type":    "authorization_code",
		"redirect_uri":  p.app.RedirectURI,
	})
	if err != nil {
		return nil, nil, err
	}

	var user transfer.TiktokUserResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&user).
		Get(tiktokAPIURL + "/user/info/?fields=open_id,avatar_url,display_name,username")
	if err := transportErr(resp, err, "tiktok user info"); err != nil {
		return nil, nil, err
	}
	if user.Error.Code != "" && user.Error.Code != "ok" {
		return nil, nil, apperr.E(apperr.KindDomain, user.Error.Message)
	}

	result := &transfer.TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}
	info := &transfer.AccountInfo{
		AccountID:      user.Data.User.OpenID,
		Name:           user.Data.User.DisplayName,
		Username:       user.Data.User.Username,
		ProfilePicture: user.Data.User.AvatarURL,
	}
	return result, info, nil
}

func (p *tiktokPublisher) Refresh(ctx context.Context, refreshToken string) (*transfer.TokenResult, error) {
	token, err := p.requestToken(ctx, map[string]string{
		"client_key":    p.app.ClientID,
		"client_secret": p.app.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, err
	}
	return &transfer.TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}, nil
}

func (p *tiktokPublisher) requestToken(ctx context.Context, form map[string]string) (*transfer.TiktokTokenResponse, error) {
	var token transfer.TiktokTokenResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form).
		SetResult(&token).
		Post(tiktokTokenURL)
	if err := transportErr(resp, err, "tiktok token endpoint"); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, apperr.E(apperr.KindDomain, "tiktok token endpoint returned no access token")
	}
	return &token, nil
}

func (p *tiktokPublisher) Verify(ctx context.Context, accessToken string) error {
	var user transfer.TiktokUserResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&user).
		Get(tiktokAPIURL + "/user/info/?fields=open_id")
	if err := transportErr(resp, err, "tiktok verify"); err != nil {
		return err
	}
	if user.Error.Code != "" && user.Error.Code != "ok" {
		return apperr.E(apperr.KindDomain, user.Error.Message)
	}
	return nil
}

// Publish sends a video via PULL_FROM_URL; tiktok has no text-only posts.
func (p *tiktokPublisher) Publish(ctx context.Context, accessToken string, content *models.Content, post *models.Post) (*transfer.PublishResult, error) {
	if content.VideoURL == "" {
		return nil, apperr.E(apperr.KindValidation, "tiktok requires a video")
	}

	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":         post.Caption,
			"privacy_level": "SELF_ONLY",
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": content.VideoURL,
		},
	}

	var published transfer.TiktokPublishResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(body).
		SetResult(&published).
		Post(tiktokAPIURL + "/post/publish/video/init/")
	if err := transportErr(resp, err, "tiktok publish"); err != nil {
		return nil, err
	}
	if published.Error.Code != "" && published.Error.Code != "ok" {
		return nil, apperr.E(apperr.KindDomain, published.Error.Message)
	}

	return &transfer.PublishResult{PostID: published.Data.PublishID}, nil
}

func (p *tiktokPublisher) Revoke(ctx context.Context, accessToken string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"client_key":    p.app.ClientID,
			"client_secret": p.app.ClientSecret,
			"token":         accessToken,
		}).
		Post("https://open.tiktokapis.com/v2/oauth/revoke/")
	return transportErr(resp, err, "tiktok revoke")
}
