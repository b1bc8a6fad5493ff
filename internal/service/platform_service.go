package service

import (
	"context"
	"log/slog"
	"time"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/publisher"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/pkg/utils"
)

type PlatformService interface {
	GetAuthURL(ctx context.Context, platform, state string) (string, error)
	HandleCallback(ctx context.Context, platform, code string, userID int64) error
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Verify(ctx context.Context, userID, accountID int64) (bool, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	cfg config.Config
	sar repository.SocialAccountRepository
	reg *publisher.Registry
}

func NewPlatformService(cfg config.Config, sar repository.SocialAccountRepository, reg *publisher.Registry) PlatformService {
	return &platformService{
		cfg: cfg,
		sar: sar,
		reg: reg,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platformName, state string) (string, error) {
	platform, ok := models.ParsePlatform(platformName)
	if !ok {
		return "", apperr.Ef(apperr.KindValidation, "unknown platform %q", platformName)
	}
	pub, err := s.reg.For(platform)
	if err != nil {
		return "", err
	}
	return pub.AuthURL(state), nil
}

// HandleCallback finishes the OAuth connect: exchange the code, encrypt the
// tokens, store the account as connected and active.
func (s *platformService) HandleCallback(ctx context.Context, platformName, code string, userID int64) error {
	if code == "" {
		return apperr.E(apperr.KindValidation, "authorization code is empty")
	}
	platform, ok := models.ParsePlatform(platformName)
	if !ok {
		return apperr.Ef(apperr.KindValidation, "unknown platform %q", platformName)
	}

	pub, err := s.reg.For(platform)
	if err != nil {
		return err
	}

	token, info, err := pub.Exchange(ctx, code)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedRefreshToken := ""
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	account := &models.SocialAccount{
		UserID:          userID,
		Platform:        platform,
		AccountID:       info.AccountID,
		AccountName:     info.Name,
		AccountUsername: info.Username,
		ProfilePicture:  info.ProfilePicture,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  GetExpiresAt(token.ExpiresIn),
	}

	_, err = s.sar.Create(ctx, nil, account)
	return err
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		return nil, apperr.E(apperr.KindValidation, "user is not valid")
	}
	return s.sar.ListByUserID(ctx, userID)
}

// Verify runs a live token check and flips is_active to match the result.
func (s *platformService) Verify(ctx context.Context, userID, accountID int64) (bool, error) {
	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return false, err
	}

	pub, err := s.reg.For(account.Platform)
	if err != nil {
		return false, err
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return false, err
	}

	active := pub.Verify(ctx, accessToken) == nil
	if err := s.sar.SetActive(ctx, accountID, active); err != nil {
		return false, err
	}
	return active, nil
}

func (s *platformService) Disconnect(ctx context.Context, userID, accountID int64) error {
	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}

	pub, err := s.reg.For(account.Platform)
	if err != nil {
		return err
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err == nil {
		if err := pub.Revoke(ctx, accessToken); err != nil {
			// Revoke is best effort; the row removal is the disconnect.
			slog.Info(err.Error())
		}
	}

	return s.sar.Remove(ctx, accountID)
}

func (s *platformService) ownedAccount(ctx context.Context, userID, accountID int64) (*models.SocialAccount, error) {
	if userID == 0 {
		return nil, apperr.E(apperr.KindValidation, "user is not valid")
	}
	if accountID == 0 {
		return nil, apperr.E(apperr.KindValidation, "account id is not valid")
	}

	isOwned, err := s.sar.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if !isOwned {
		return nil, apperr.E(apperr.KindValidation, "social account doesn't exist")
	}

	account, err := s.sar.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperr.E(apperr.KindValidation, "social account doesn't exist")
	}
	return account, nil
}

// GetExpiresAt converts a relative expires_in to a wall-clock expiry.
func GetExpiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
