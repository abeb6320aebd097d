package httpserver

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalogd/internal/catalog"
	"catalogd/internal/config"
)

// RegisterRoutes mounts the catalog, cache admin and ops endpoints.
func RegisterRoutes(app *fiber.App, cfg *config.Config, client *catalog.Client) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	if strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) == "dev" {
		app.Get("/debug/config", func(c *fiber.Ctx) error { return c.JSON(cfg) })
	}

	h := &handlers{client: client}

	app.Get("/courses", h.listCourses)
	app.Get("/courses/:id", h.getCourse)
	app.Get("/categories", h.categories)

	cache := app.Group("/cache")
	cache.Get("/stats", h.cacheStats)
	cache.Post("/sweep", h.cacheSweep)
	cache.Delete("/", h.cacheClearAll)
	cache.Delete("/courses/:id", h.cacheClearCourse)
}
