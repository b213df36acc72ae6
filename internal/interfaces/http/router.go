package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Checks    *check.Service
	JWTSecret string
	Location  *time.Location
	// Metrics registro expuesto en /metrics (nil = sin endpoint).
	Metrics prometheus.Gatherer
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	readers := RequireRole(jwt.RoleAdmin, jwt.RoleViewer)
	admins := RequireRole(jwt.RoleAdmin)

	checks := protected.Group("/checks")
	checkHandler := NewCheckHandler(deps.Checks, deps.Location)
	checks.Post("/", admins, checkHandler.Run)
	checks.Post("/all", admins, checkHandler.RunAll)
	checks.Get("/", readers, checkHandler.List)
	checks.Get("/:id", readers, checkHandler.GetByID)
	checks.Get("/:id/pdf", readers, checkHandler.PDF)
}
