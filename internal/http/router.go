package http

import (
	"database/sql"

	"github.com/gabriel/manhwa-hub/backend/internal/account"
	"github.com/gabriel/manhwa-hub/backend/internal/cache"
	"github.com/gabriel/manhwa-hub/backend/internal/config"
	"github.com/gabriel/manhwa-hub/backend/internal/content"
	"github.com/gabriel/manhwa-hub/backend/internal/http/handlers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Dependencies struct {
	DB       *sql.DB
	Content  *content.Service
	Accounts *account.Service
	Popular  *cache.Popular
}

func NewServer(cfg config.Config, deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())

	origins := cfg.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	var health *handlers.HealthHandler
	if deps.Popular != nil {
		health = handlers.NewHealthHandler(deps.DB, deps.Popular)
	} else {
		health = handlers.NewHealthHandler(deps.DB, nil)
	}
	contentHandlers := handlers.NewContentHandler(deps.Content)
	accountHandlers := handlers.NewAccountHandler(deps.Accounts)

	app.Get("/health", health.Check)

	api := app.Group("/api")
	api.Get("/health", health.Check)
	api.Get("/home", contentHandlers.Home)
	api.Get("/manga/:slug", contentHandlers.Manga)
	api.Get("/reader", contentHandlers.Reader)
	api.Get("/read/:slug/:ch", contentHandlers.ReadPath)
	api.Get("/genres", contentHandlers.Genres)

	api.Post("/auth/register", accountHandlers.Register)
	api.Post("/auth/login", accountHandlers.Login)

	user := api.Group("/user", accountHandlers.RequireUser)
	user.Get("/bookmarks", accountHandlers.Bookmarks)
	user.Post("/bookmark", accountHandlers.ToggleBookmark)

	return app
}
