package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"doccatalog/internal/service"
)

// Pinger reports whether the local store can be reached.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck pings the local store.
//
// @Summary      Readiness
// @Tags         health
// @Produce      json
// @Success      200
// @Failure      503  {object}  errorPayload
// @Router       /health [get]
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db Pinger, svc service.CatalogService, shareBaseURL string) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/documents", ListDocuments(svc))
	app.Post("/documents", UploadDocument(svc))
	// registered before /:id so "recent" is not taken for an id
	app.Get("/documents/recent", RecentDocuments(svc))
	app.Get("/documents/:id", GetDocument(svc))
	app.Get("/documents/:id/download", DownloadDocument(svc))
	app.Get("/documents/:id/share", ShareDocument(svc, shareBaseURL))
	app.Delete("/documents/:id", DeleteDocument(svc))
}
