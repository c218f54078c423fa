package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/pkg/health"
	"github.com/electroshop/backend/pkg/middleware"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Auth      *AuthHandler
	AdminAuth *AdminAuthHandler
	Products  *ProductHandler
	Orders    *OrderHandler
	Users     *UserHandler
	Audit     *AuditHandler
	Reports   *ReportHandler
	Guard     *Guard
	Health    *health.Handler
	Logger    *slog.Logger
	CORS      middleware.CORSConfig

	// PprofCIDRs allowlists the debug endpoints. Empty disables them.
	PprofCIDRs []string
}

// NewRouter creates a chi router with all backend routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("backend"))
	r.Use(middleware.Tracing("backend"))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, deps.PprofCIDRs, deps.Logger)

	// Public catalog. Reads are safe to cache briefly.
	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(60))

		r.Get("/api/products", deps.Products.List)
		r.Get("/api/products/slug/{slug}", deps.Products.GetBySlug)
		r.Get("/api/products/{id}", deps.Products.Get)
		r.Get("/api/categories", deps.Products.ListCategories)
	})

	// Customer auth
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", deps.Auth.Register)
		r.Post("/login", deps.Auth.Login)
		r.Post("/refresh", deps.Auth.Refresh)
		r.Post("/logout", deps.Auth.Logout)

		r.With(deps.Guard.AuthUser).Post("/change-password", deps.Auth.ChangePassword)
	})

	// Customer profile and orders
	r.Route("/api/users/me", func(r chi.Router) {
		r.Use(deps.Guard.AuthUser)

		r.Get("/", deps.Users.Me)
		r.With(ContentTypeJSON).Put("/", deps.Users.UpdateProfile)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(deps.Guard.AuthUser)

		r.With(ContentTypeJSON).Post("/", deps.Orders.Place)
		r.Get("/", deps.Orders.ListMine)
		r.Get("/{id}", deps.Orders.GetMine)
	})

	// Admin auth. Registration and login are public; the second-factor
	// management endpoints require an authenticated admin.
	r.Route("/api/admin/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", deps.AdminAuth.Register)
		r.Post("/login", deps.AdminAuth.Login)
		r.Post("/verify-2fa", deps.AdminAuth.VerifyTwoFactor)

		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.AuthAdmin)

			r.Post("/change-password", deps.AdminAuth.ChangePassword)
			r.Post("/2fa/setup", deps.AdminAuth.SetupTwoFactor)
			r.Post("/2fa/enable", deps.AdminAuth.EnableTwoFactor)
			r.Post("/2fa/disable", deps.AdminAuth.DisableTwoFactor)
		})
	})

	// Admin surface, permission-gated per resource.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(deps.Guard.AuthAdmin)

		r.Route("/products", func(r chi.Router) {
			r.Use(deps.Guard.RequirePermission(domain.PermissionProducts))

			r.Get("/", deps.Products.AdminList)
			r.With(ContentTypeJSON).Post("/", deps.Products.Create)
			r.With(ContentTypeJSON).Put("/{id}", deps.Products.Update)
			r.Delete("/{id}", deps.Products.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(deps.Guard.RequirePermission(domain.PermissionOrders))

			r.Get("/", deps.Orders.List)
			r.Get("/{id}", deps.Orders.Get)
			r.With(ContentTypeJSON).Patch("/{id}/status", deps.Orders.UpdateStatus)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(deps.Guard.RequirePermission(domain.PermissionUsers))

			r.Get("/", deps.Users.List)
			r.Get("/{id}", deps.Users.Get)
			r.With(ContentTypeJSON).Put("/{id}/active", deps.Users.SetActive)
			r.Delete("/{id}", deps.Users.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.RequirePermission(domain.PermissionReports))

			r.Get("/dashboard", deps.Reports.Dashboard)
			r.Get("/audit-log", deps.Audit.List)
		})
	})

	return r
}
