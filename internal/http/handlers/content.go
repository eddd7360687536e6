package handlers

import (
	"github.com/gabriel/manhwa-hub/backend/internal/content"
	"github.com/gabriel/manhwa-hub/backend/internal/normalize"
	"github.com/gofiber/fiber/v2"
)

type ContentHandler struct {
	service *content.Service
}

func NewContentHandler(service *content.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

func (h *ContentHandler) Home(c *fiber.Ctx) error {
	page := normalize.ParsePageNumber(c.Query("page"), 1)

	result, err := h.service.Home(c.UserContext(), page)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":    true,
		"page":  result.Page,
		"items": result.Items,
		"data": fiber.Map{
			"popular": result.Popular,
			"recents": result.Recents,
		},
	})
}

func (h *ContentHandler) Manga(c *fiber.Ctx) error {
	detail, err := h.service.Manga(c.UserContext(), c.Params("slug"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "manga": detail, "data": detail})
}

// Reader serves /api/reader?slug=&chapter=[&validate=1].
func (h *ContentHandler) Reader(c *fiber.Ctx) error {
	return h.read(c, c.Query("slug"), c.Query("chapter"))
}

// ReadPath serves /api/read/:slug/:ch.
func (h *ContentHandler) ReadPath(c *fiber.Ctx) error {
	return h.read(c, c.Params("slug"), c.Params("ch"))
}

func (h *ContentHandler) read(c *fiber.Ctx, slug string, chapter string) error {
	validate := c.QueryBool("validate", false)

	result, err := h.service.Reader(c.UserContext(), slug, chapter, validate)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":      true,
		"slug":    result.Slug,
		"chapter": result.Chapter,
		"pages":   result.Pages,
		"data":    fiber.Map{"images": result.Pages},
	})
}

func (h *ContentHandler) Genres(c *fiber.Ctx) error {
	genres, err := h.service.Genres(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "genres": genres})
}
