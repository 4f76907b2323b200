package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/account"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/bonus"
	"github.com/staffsync/staff-management/internal/core"
	"github.com/staffsync/staff-management/internal/docstore"
	storepostgres "github.com/staffsync/staff-management/internal/docstore/postgres"
	"github.com/staffsync/staff-management/internal/employee"
	"github.com/staffsync/staff-management/internal/identity/local"
	"github.com/staffsync/staff-management/internal/planning"
	"github.com/staffsync/staff-management/internal/session"
	"github.com/staffsync/staff-management/internal/settings"
	"github.com/staffsync/staff-management/internal/team"
	"github.com/staffsync/staff-management/internal/training"
	"github.com/staffsync/staff-management/internal/transport/rest"
	"github.com/staffsync/staff-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server exposing the staff management API`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB // nil when the memory backend is selected
	Store    docstore.Store
	Provider *local.Provider
	Core     *core.Core
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	deps.Core.Init(context.Background())
	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.Core.Teardown()
		if deps.DB != nil {
			if err := deps.DB.Close(); err != nil {
				slog.Error("Database close error", "error", err)
			}
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	handlers := rest.Handlers{
		Session:  session.NewHandler(deps.Core.Session, deps.Provider),
		Account:  account.NewHandler(deps.Core.AccountService),
		Employee: employee.NewHandler(deps.Core.EmployeeService),
		Team:     team.NewHandler(deps.Core.TeamService),
		Planning: planning.NewHandler(deps.Core.PlanningService),
		Bonus:    bonus.NewHandler(deps.Core.BonusService),
		Training: training.NewHandler(deps.Core.TrainingService),
		Settings: settings.NewHandler(deps.Core.SettingsService),
		Audit:    audit.NewHandler(deps.Core.AuditLog, deps.Core.Notifications),
	}

	origins := strings.Split(deps.Config.Server.AllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	var sqlDB = deps.DB
	if sqlDB != nil {
		rest.RegisterAllRoutes(deps.Router, sqlDB.DB, deps.Store, handlers, deps.Provider, origins, deps.Logger)
		return
	}
	rest.RegisterAllRoutes(deps.Router, nil, deps.Store, handlers, deps.Provider, origins, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Configure(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	store, db, err := initStore(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	provider := local.NewProvider(store, local.Config{
		TokenSecret:     config.Security.TokenSecret,
		TokenTTL:        config.Security.TokenDuration,
		BCryptCost:      config.Security.BCryptCost,
		MinSecretLength: config.Security.MinSecretLength,
		SignUpDisabled:  config.Security.SignUpDisabled,
		AutoVerify:      config.Security.AutoVerify,
		MaxAttempts:     config.Security.MaxAttempts,
		AttemptWindow:   config.Security.AttemptWindow,
	}, lg)

	c := core.New(store, provider, core.Config{
		Session: session.Config{
			ProfileWaitTimeout:   config.Sync.ProfileWaitTimeout,
			BootstrapGuardWindow: config.Sync.BootstrapGuardWindow,
		},
		NotificationTTL: config.Sync.NotificationTTL,
	}, lg)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Store:    store,
		Provider: provider,
		Core:     c,
		Router:   chi.NewRouter(),
		Logger:   lg,
	}, nil
}

// initStore opens the configured document store backend. The memory backend
// needs no SQL connection; sqlite and postgres run through GORM on one
// documents table.
func initStore(cfg internal.DatabaseConfig) (docstore.Store, *sqlx.DB, error) {
	switch cfg.Backend {
	case "memory":
		return docstore.NewMemStore(), nil, nil

	case "sqlite":
		gdb, err := gorm.Open(gormsqlite.Open(cfg.Source), &gorm.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		store := storepostgres.NewStore(gdb)
		if err := store.AutoMigrate(); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate documents table: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		return store, sqlx.NewDb(sqlDB, "sqlite3"), nil

	case "postgres":
		gdb, err := gorm.Open(gormpostgres.Open(cfg.Source), &gorm.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

		if err := sqlDB.Ping(); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return storepostgres.NewStore(gdb), sqlx.NewDb(sqlDB, "pgx"), nil

	default:
		return nil, nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}
