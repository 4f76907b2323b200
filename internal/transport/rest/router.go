package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/staffsync/staff-management/internal/account"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/bonus"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/employee"
	"github.com/staffsync/staff-management/internal/planning"
	"github.com/staffsync/staff-management/internal/session"
	"github.com/staffsync/staff-management/internal/settings"
	"github.com/staffsync/staff-management/internal/team"
	"github.com/staffsync/staff-management/internal/training"
	"github.com/staffsync/staff-management/internal/transport/middleware"
	"github.com/staffsync/staff-management/internal/transport/swagger"
)

// Handlers bundles every route handler the REST surface mounts.
type Handlers struct {
	Session  *session.Handler
	Account  *account.Handler
	Employee *employee.Handler
	Team     *team.Handler
	Planning *planning.Handler
	Bonus    *bonus.Handler
	Training *training.Handler
	Settings *settings.Handler
	Audit    *audit.Handler
}

// RegisterAllRoutes mounts the action surface under /api/v1. All entity
// routes require an authenticated session; auth and health stay public.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	store docstore.Store,
	handlers Handlers,
	validator middleware.TokenValidator,
	allowedOrigins []string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db, store)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.SessionAuth(validator))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", handlers.Session.Login)
			sr.Post("/signup", handlers.Session.SignUp)
			sr.Get("/state", handlers.Session.State)

			sr.Group(func(pr chi.Router) {
				pr.Use(middleware.RequireSession)
				pr.Post("/logout", handlers.Session.Logout)
				pr.Post("/resend-verification", handlers.Session.ResendVerification)
			})
		})

		// Entity routes require an authenticated session
		r.Group(func(pr chi.Router) {
			pr.Use(middleware.RequireSession)

			pr.Get("/accounts/me", handlers.Account.Me)
			pr.Route("/accounts", func(ar chi.Router) {
				ar.Get("/", handlers.Account.List)
				ar.Post("/", handlers.Account.Create)
				ar.Get("/{id}", handlers.Account.Get)
				ar.Put("/{id}", handlers.Account.Update)
				ar.Delete("/{id}", handlers.Account.Delete)
			})

			pr.Route("/employees", func(er chi.Router) {
				er.Get("/", handlers.Employee.List)
				er.Post("/", handlers.Employee.Create)
				er.Get("/{id}", handlers.Employee.Get)
				er.Put("/{id}", handlers.Employee.Update)
				er.Delete("/{id}", handlers.Employee.Delete)
			})

			pr.Route("/teams", func(tr chi.Router) {
				tr.Get("/", handlers.Team.List)
				tr.Post("/", handlers.Team.Create)
				tr.Get("/{id}", handlers.Team.Get)
				tr.Put("/{id}", handlers.Team.Update)
				tr.Delete("/{id}", handlers.Team.Delete)
			})

			pr.Route("/trainings", func(tr chi.Router) {
				tr.Get("/", handlers.Training.List)
				tr.Post("/", handlers.Training.Create)
				tr.Get("/{id}", handlers.Training.Get)
				tr.Put("/{id}", handlers.Training.Update)
				tr.Delete("/{id}", handlers.Training.Delete)
			})

			pr.Route("/planning", func(plr chi.Router) {
				plr.Get("/", handlers.Planning.List)
				plr.Post("/", handlers.Planning.Set)
				plr.Delete("/{employeeID}/{date}", handlers.Planning.Clear)
			})

			pr.Route("/bonuses", func(br chi.Router) {
				br.Get("/", handlers.Bonus.List)
				br.Post("/", handlers.Bonus.Set)
			})

			pr.Route("/settings", func(str chi.Router) {
				str.Get("/", handlers.Settings.Get)
				str.Put("/", handlers.Settings.Update)
			})

			pr.Get("/audit", handlers.Audit.ListEntries)
			pr.Route("/notifications", func(nr chi.Router) {
				nr.Get("/", handlers.Audit.ListNotifications)
				nr.Delete("/{id}", handlers.Audit.DismissNotification)
			})
		})
	})
}
