package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"gravado/internal/config"
	"gravado/internal/http/handlers"
	applog "gravado/internal/log"
	"gravado/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	deps := handlers.NewDeps(db, cfg)
	auth := deps.Auth

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	app.Server().MaxRequestBodySize = 12 << 20 // artwork uploads

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(handlers.AttachUser(auth))
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}))

	loginLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, retry later"})
		},
	})
	estimateLimiter := limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|estimate"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.estimate.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})

	api := app.Group("/api/v1")

	// Public
	api.Post("/register", deps.AuthH.Register)
	api.Post("/login", loginLimiter, deps.AuthH.Login)
	api.Post("/logout", deps.AuthH.Logout)
	api.Get("/catalog/categories", deps.CatalogH.Categories)
	api.Get("/catalog/materials", deps.CatalogH.Materials)
	api.Get("/catalog/shapes", deps.CatalogH.Shapes)
	api.Get("/catalog/dimensions", deps.CatalogH.Dimensions)
	api.Get("/availability", deps.CatalogH.Availability)
	api.Post("/catalog/quotes/estimate", estimateLimiter, deps.CatalogH.Estimate)

	// Cart works for anonymous sessions and authenticated users alike.
	api.Get("/cart", deps.CartH.View)
	api.Post("/cart/items", deps.CartH.AddItem)
	api.Patch("/cart/items/:id", deps.CartH.UpdateItem)
	api.Delete("/cart/items/:id", deps.CartH.RemoveItem)
	api.Post("/cart/discount", deps.CartH.ApplyDiscount)
	api.Delete("/cart/discount", deps.CartH.ClearDiscount)

	// Authenticated surface
	user := api.Group("", handlers.RequireUser(auth))
	user.Get("/me", deps.AuthH.Me)
	user.Post("/cart/convert-to-quote", deps.CartH.ConvertToQuote)
	user.Get("/quotes", deps.QuoteH.List)
	user.Post("/quotes", deps.QuoteH.Create)
	user.Get("/quotes/:id", deps.QuoteH.Get)
	user.Put("/quotes/:id", deps.QuoteH.Update)
	user.Delete("/quotes/:id", deps.QuoteH.Delete)
	user.Get("/quotes/:id/files", deps.QuoteH.Files)
	user.Post("/files", deps.AttachH.Upload)
	user.Post("/orders/convert/:quoteId", deps.OrderH.Convert)
	user.Get("/orders", deps.OrderH.List)
	user.Get("/orders/:id", deps.OrderH.Get)
	user.Put("/orders/:id", deps.OrderH.Update)
	user.Delete("/orders/:id", deps.OrderH.Cancel)
	user.Get("/favorites", deps.FavoriteH.List)
	user.Post("/favorites/:quoteId", deps.FavoriteH.Add)
	user.Delete("/favorites/:quoteId", deps.FavoriteH.Remove)

	// Staff surface. Quote/order overrides go through the regular
	// endpoints (the services elevate controllers); this group is the
	// admin-only management API.
	admin := api.Group("/admin", handlers.RequireAdmin(auth))
	admin.Post("/dimensions", deps.AdminH.CreateEntry)
	admin.Put("/dimensions/:id", deps.AdminH.UpdateEntry)
	admin.Delete("/dimensions/:id", deps.AdminH.DeleteEntry)
	admin.Get("/discounts", deps.AdminH.ListDiscounts)
	admin.Post("/discounts", deps.AdminH.CreateDiscount)
	admin.Put("/discounts/:id", deps.AdminH.UpdateDiscount)
	admin.Delete("/discounts/:id", deps.AdminH.DeleteDiscount)
	admin.Get("/inventory", deps.AdminH.ListInventory)
	admin.Put("/inventory/:materialId", deps.AdminH.SetInventory)
	admin.Get("/users", deps.AdminH.ListUsers)
	admin.Delete("/users/:id", deps.AdminH.DeleteUser)
	admin.Get("/activities", deps.AdminH.ListActivities)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
