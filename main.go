package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mhs-association/membership-backend/shared/monitoring"
	"github.com/mhs-association/membership-backend/shared/utils"
	v1 "github.com/mhs-association/membership-backend/v1"
	v1handlers "github.com/mhs-association/membership-backend/v1/handlers"
	v1middleware "github.com/mhs-association/membership-backend/v1/middleware"
	"github.com/mhs-association/membership-backend/v1/services"
)

func main() {
	// Load .env file if it exists (optional - fails silently if not found)
	_ = godotenv.Load()

	appConfig := v1.NewAppConfig()

	logLevel := slog.LevelInfo
	if appConfig.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("Starting Membership Backend initialization")

	dbConfig := v1.NewDatabaseConfig()
	gormDB, err := v1.ConnectGormDB(dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := v1.MigrateDB(gormDB); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := v1.EnsureDefaultAdmin(gormDB); err != nil {
		slog.Error("Failed to seed default admin", "error", err)
		os.Exit(1)
	}

	photoService := services.NewPhotoService(appConfig.UploadDir, appConfig.MaxUploadBytes)
	apiHandler := v1handlers.NewAPIHandler(gormDB, photoService)

	// Register routes for metric label normalization before traffic arrives.
	monitoring.RegisterRoutes([]string{
		"/health",
		"/metrics",
		"/api/login",
		"/api/logout",
		"/api/verify",
		"/api/member/profile",
		"/api/member/change-password",
		"/api/scan",
		"/api/scan-qr",
		"/api/member-info/:id",
		"/api/profile-photo/:id",
		"/api/upload-profile-photo",
		"/api/import-excel",
		"/api/admin/import-excel",
		"/api/admin/members",
		"/api/admin/attendance",
		"/api/admin/stats",
		"/api/admin/expiring-members",
		"/api/admin/create-admin",
		"/api/admin/delete-member/:id",
	})

	// Protected API routes sit behind the session middleware.
	apiMux := http.NewServeMux()
	apiHandler.SetupRoutes(apiMux)

	corsMiddleware := v1middleware.NewCORSMiddleware()
	sessionAuth := v1middleware.NewSessionAuthMiddleware(apiHandler.AuthService())

	protectedAPIHandler := corsMiddleware(
		monitoring.HTTPMetricsMiddleware(
			sessionAuth.Authenticate(apiMux),
		),
	)

	// Public routes skip session auth but still get CORS and metrics.
	publicMux := http.NewServeMux()
	apiHandler.SetupPublicRoutes(publicMux)
	publicAPIHandler := corsMiddleware(monitoring.HTTPMetricsMiddleware(publicMux))

	topLevelMux := http.NewServeMux()

	topLevelMux.Handle("/health", utils.PanicRecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type DBHealth struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}
		type HealthStatus struct {
			Status   string   `json:"status"`
			Service  string   `json:"service"`
			Database DBHealth `json:"database"`
		}

		status := HealthStatus{
			Status:   "healthy",
			Service:  "membership-backend",
			Database: DBHealth{Status: "healthy"},
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		sqlDB, err := gormDB.DB()
		if err != nil {
			status.Database = DBHealth{Status: "unhealthy", Error: fmt.Sprintf("failed to get sql.DB: %v", err)}
			status.Status = "unhealthy"
		} else {
			start := time.Now()
			err := sqlDB.PingContext(ctx)
			monitoring.ObserveDatabaseCall("ping", start, err)
			if err != nil {
				status.Database = DBHealth{Status: "unhealthy", Error: err.Error()}
				status.Status = "unhealthy"
			}
		}

		statusCode := http.StatusOK
		if status.Status != "healthy" {
			statusCode = http.StatusServiceUnavailable
		}
		utils.RespondWithJSON(w, statusCode, status)
	})))

	topLevelMux.Handle("/metrics", monitoring.Handler())

	// More specific patterns win, so the public routes are matched before the
	// catch-all protected /api/ prefix.
	topLevelMux.Handle("/api/login", publicAPIHandler)
	topLevelMux.Handle("/api/profile-photo/", publicAPIHandler)
	topLevelMux.Handle("/api/", protectedAPIHandler)

	addr := ":" + appConfig.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      topLevelMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Membership Backend starting", "port", appConfig.Port, "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start Membership Backend", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down Membership Backend...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}

	slog.Info("Membership Backend exited")
}
