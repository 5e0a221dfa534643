package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/MagnunAVF/shortlinks/internal"
)

type api struct {
	cfg    *internal.Config
	store  internal.LinkStore
	links  *internal.LinkService
	admin  *internal.AdminService
	clicks internal.ClickPublisher
}

func (a *api) register(app *fiber.App) {
	app.Post("/links/shorten", a.optionalAuth, a.handleShorten)
	app.Get("/links/search", a.handleSearch)
	app.Get("/links/:short_code/stats", a.handleStats)
	app.Get("/links/:short_code/qr", a.handleQR)
	app.Get("/links/:short_code", a.handleLinkInfo)
	app.Put("/links/:short_code", a.requireAuth, a.handleUpdate)
	app.Delete("/links/:short_code", a.requireAuth, a.handleDelete)

	adm := app.Group("/admin", a.requireAuth, a.requireAdmin)
	adm.Get("/links/recent", a.handleRecentLinks)
	adm.Get("/users", a.handleListUsers)
	adm.Delete("/links/:short_code", a.handleForceDelete)
	adm.Delete("/users/:user_id", a.handleDeleteUser)

	// the catch-all redirect goes last so it cannot shadow the routes above
	app.Get("/:short_code", a.handleRedirect)
}

func (a *api) handleShorten(c *fiber.Ctx) error {
	var req internal.LinkCreate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	link, err := a.links.CreateLink(c.UserContext(), req, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}

func (a *api) handleRedirect(c *fiber.Ctx) error {
	shortCode := c.Params("short_code")

	link, err := a.links.GetByCode(c.UserContext(), shortCode, true)
	if err != nil {
		return respondError(c, err)
	}

	userAgent := c.Get(fiber.HeaderUserAgent)
	if userAgent == "" {
		userAgent = "Unknown"
	}
	go a.publishClick(link.ShortCode, userAgent)

	return c.Redirect(link.OriginalURL, fiber.StatusTemporaryRedirect)
}

func (a *api) handleLinkInfo(c *fiber.Ctx) error {
	link, err := a.links.GetByCode(c.UserContext(), c.Params("short_code"), false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(link)
}

func (a *api) handleStats(c *fiber.Ctx) error {
	link, err := a.links.GetByCode(c.UserContext(), c.Params("short_code"), false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(link.Stats())
}

func (a *api) handleQR(c *fiber.Ctx) error {
	link, err := a.links.GetByCode(c.UserContext(), c.Params("short_code"), false)
	if err != nil {
		return respondError(c, err)
	}

	png, err := qrcode.Encode(fmt.Sprintf("%s/%s", a.cfg.AppDomain, link.ShortCode), qrcode.Medium, 256)
	if err != nil {
		slog.Error("Failed to render QR code", "short_code", link.ShortCode, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not render QR code"})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

func (a *api) handleUpdate(c *fiber.Ctx) error {
	var patch internal.LinkUpdate
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	link, err := a.links.UpdateLink(c.UserContext(), c.Params("short_code"), patch, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(link)
}

func (a *api) handleDelete(c *fiber.Ctx) error {
	if err := a.links.DeleteLink(c.UserContext(), c.Params("short_code"), currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *api) handleSearch(c *fiber.Ctx) error {
	links, err := a.links.SearchByURL(c.UserContext(), c.Query("original_url"))
	if err != nil {
		return respondError(c, err)
	}
	if links == nil {
		links = []internal.Link{}
	}
	return c.JSON(links)
}

func (a *api) handleRecentLinks(c *fiber.Ctx) error {
	links, err := a.admin.RecentLinks(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	if links == nil {
		links = []internal.Link{}
	}
	return c.JSON(links)
}

func (a *api) handleListUsers(c *fiber.Ctx) error {
	users, err := a.admin.AllUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if users == nil {
		users = []internal.User{}
	}
	return c.JSON(users)
}

func (a *api) handleForceDelete(c *fiber.Ctx) error {
	if err := a.admin.ForceDeleteLink(c.UserContext(), c.Params("short_code")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *api) handleDeleteUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	if err := a.admin.DeleteUser(c.UserContext(), userID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// publishClick runs in its own goroutine so a slow broker cannot delay the
// redirect response.
func (a *api) publishClick(shortCode, userAgent string) {
	if a.clicks == nil {
		return
	}

	event := internal.ClickEvent{
		ShortCode: shortCode,
		Timestamp: time.Now().UTC(),
		UserAgent: userAgent,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.clicks.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish click event", "short_code", shortCode, "err", err)
	}
}

// respondError maps service errors onto HTTP statuses: validation 400,
// missing 404, ownership 403, store down 503, anything else 500.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, internal.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, internal.ErrLinkNotFound), errors.Is(err, internal.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, internal.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, internal.ErrStoreUnavailable):
		slog.Error("Store unavailable", "err", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Service temporarily unavailable"})
	default:
		slog.Error("Unhandled service error", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
