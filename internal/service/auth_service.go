package service

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/repository"
)

type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	cfg config.Config
	u   repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		cfg: cfg,
		u:   u,
	}
}

func (s *authService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleRedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// LoginCallback exchanges the Google code, fetches the profile and upserts
// the user row. Returns the local user id for the session cookie.
func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, apperr.E(apperr.KindValidation, "authorization code is empty")
	}

	oauthConfig := s.oauthConfig()
	if oauthConfig.ClientID == "" || oauthConfig.ClientSecret == "" || oauthConfig.RedirectURL == "" {
		return 0, apperr.E(apperr.KindValidation, "oauth2 configuration is incomplete")
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransport, "google token exchange failed", err)
	}

	oauthService, err := goauth.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransport, "google userinfo service failed", err)
	}

	userInfo, err := oauthService.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransport, "google userinfo request failed", err)
	}

	return s.upsertUser(ctx, &models.User{
		GoogleID:       userInfo.Id,
		Email:          userInfo.Email,
		Name:           userInfo.Name,
		ProfilePicture: userInfo.Picture,
	})
}

// upsertUser resolves the Google profile to a local user id. An existing row
// for the email is linked in place; email is unique, so login must never
// insert a second row for it.
func (s *authService) upsertUser(ctx context.Context, profile *models.User) (int64, error) {
	user, isExist, err := s.u.GetByEmail(ctx, profile.Email)
	if err != nil {
		return 0, err
	}
	if !isExist {
		return s.u.Create(ctx, nil, profile)
	}

	if user.GoogleID == "" {
		if err := s.u.SetGoogleProfile(ctx, user.ID, profile.GoogleID, profile.Name, profile.ProfilePicture); err != nil {
			return 0, err
		}
	}
	return user.ID, nil
}
