package handlers

import (
	"strings"

	"github.com/gabriel/manhwa-hub/backend/internal/account"
	"github.com/gabriel/manhwa-hub/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

const userIDLocal = "userID"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type bookmarkRequest struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Cover string `json:"cover"`
}

type AccountHandler struct {
	accounts *account.Service
}

func NewAccountHandler(accounts *account.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return failWith(c, fiber.StatusBadRequest, "invalid json body")
	}

	session, err := h.accounts.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":       true,
		"token":    session.Token,
		"username": session.Username,
	})
}

func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return failWith(c, fiber.StatusBadRequest, "invalid json body")
	}

	session, err := h.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":       true,
		"token":    session.Token,
		"username": session.Username,
	})
}

// RequireUser rejects requests without a valid bearer token and stores the
// caller's user id in the request locals.
func (h *AccountHandler) RequireUser(c *fiber.Ctx) error {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return failWith(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	claims, err := h.accounts.Authenticate(token)
	if err != nil {
		return fail(c, err)
	}

	c.Locals(userIDLocal, claims.UserID)
	return c.Next()
}

func (h *AccountHandler) Bookmarks(c *fiber.Ctx) error {
	userID, _ := c.Locals(userIDLocal).(string)

	bookmarks, err := h.accounts.Bookmarks(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "bookmarks": bookmarks})
}

func (h *AccountHandler) ToggleBookmark(c *fiber.Ctx) error {
	userID, _ := c.Locals(userIDLocal).(string)

	var req bookmarkRequest
	if err := c.BodyParser(&req); err != nil {
		return failWith(c, fiber.StatusBadRequest, "invalid json body")
	}

	action, err := h.accounts.ToggleBookmark(c.UserContext(), userID, models.Bookmark{
		Slug:  req.Slug,
		Title: req.Title,
		Cover: req.Cover,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "action": action})
}
