package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/models"
	"github.com/contentpilot/backend/internal/publisher"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/pkg/utils"
)

// AccountVerifyJob walks accounts whose tokens are expiring, refreshes what
// it can and flips is_active on the rest. Runs on a cron tick.
type AccountVerifyJob struct {
	cfg config.Config
	sar repository.SocialAccountRepository
	reg *publisher.Registry
}

func NewAccountVerifyJob(cfg config.Config, sar repository.SocialAccountRepository, reg *publisher.Registry) *AccountVerifyJob {
	return &AccountVerifyJob{
		cfg: cfg,
		sar: sar,
		reg: reg,
	}
}

func (j *AccountVerifyJob) Run() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := j.sar.ListExpiringTokens(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			j.refreshAccount(ctx, acc)
		}(acc)
	}

	wg.Wait()
}

func (j *AccountVerifyJob) refreshAccount(ctx context.Context, acc *models.SocialAccount) {
	pub, err := j.reg.For(acc.Platform)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(j.cfg.SecretKey))
	if err != nil || refreshToken == "" {
		j.verifyOnly(ctx, pub, acc)
		return
	}

	token, err := pub.Refresh(ctx, refreshToken)
	if err != nil {
		slog.Info("token refresh failed", "platform", acc.Platform, "account_id", acc.ID)
		j.verifyOnly(ctx, pub, acc)
		return
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(j.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return
	}
	encryptedRefresh := ""
	if token.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(j.cfg.SecretKey))
		if err != nil {
			slog.Info(err.Error())
			return
		}
	}

	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if err := j.sar.SetToken(ctx, acc.ID, encryptedAccess, encryptedRefresh, expiresAt); err != nil {
		slog.Info(err.Error())
		return
	}
	if err := j.sar.SetActive(ctx, acc.ID, true); err != nil {
		slog.Info(err.Error())
	}
}

// verifyOnly checks the current token still works and records the result.
func (j *AccountVerifyJob) verifyOnly(ctx context.Context, pub publisher.Publisher, acc *models.SocialAccount) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(j.cfg.SecretKey))
	if err != nil {
		if err := j.sar.SetActive(ctx, acc.ID, false); err != nil {
			slog.Info(err.Error())
		}
		return
	}

	active := pub.Verify(ctx, accessToken) == nil
	if err := j.sar.SetActive(ctx, acc.ID, active); err != nil {
		slog.Info(err.Error())
	}
}
