package handlers

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/service"
	"github.com/contentpilot/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type PlatformHandler struct {
	s   service.PlatformService
	cfg config.Config
}

func NewPlatformHandler(cfg config.Config, service service.PlatformService) *PlatformHandler {
	return &PlatformHandler{s: service, cfg: cfg}
}

// AddSocialAccount starts the OAuth dance. The signed session token rides
// in the state parameter so the callback can recover the user.
func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	state, err := utils.GenerateToken(h.cfg.SecretKey, userID, 15*time.Minute)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	authURL, err := h.s.GetAuthURL(c.Context(), c.Params("platform"), state)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	platform := c.Params("platform")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return h.redirectResult(c, platform, "error", "unable to validate user")
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return h.redirectResult(c, platform, "error", "unable to validate user")
	}

	if err := h.s.HandleCallback(c.Context(), platform, code, userID); err != nil {
		slog.Error(err.Error())
		return h.redirectResult(c, platform, "error", "connection failed")
	}

	return h.redirectResult(c, platform, "success", "")
}

func (h *PlatformHandler) redirectResult(c *fiber.Ctx, platform, status, detail string) error {
	redirectURL := fmt.Sprintf("%s/accounts?connected=%s&status=%s", h.cfg.FrontendURL, platform, status)
	if detail != "" {
		redirectURL += "&error_detail=" + url.QueryEscape(detail)
	}
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.s.List(c.Context(), userID)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) VerifySocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	active, err := h.s.Verify(c.Context(), userID, int64(accountID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"active": active,
	})
}

func (h *PlatformHandler) DisconnectSocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	if err := h.s.Disconnect(c.Context(), userID, int64(accountID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
