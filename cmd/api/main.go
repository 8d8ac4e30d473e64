package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eprison/visitor-management/internal/cache"
	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/http/handlers"
	authmw "github.com/eprison/visitor-management/internal/http/middleware"
	"github.com/eprison/visitor-management/internal/platform/mailer"
	"github.com/eprison/visitor-management/internal/repo/postgres"
	"github.com/eprison/visitor-management/internal/service"
	"github.com/eprison/visitor-management/pkg/config"
	"github.com/eprison/visitor-management/pkg/database"
	"github.com/eprison/visitor-management/pkg/events"
	"github.com/eprison/visitor-management/pkg/logger"
	mw "github.com/eprison/visitor-management/pkg/middleware"
)

func main() {
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Alert poll cache; the API runs without it if Redis is down.
	alertCache, err := cache.NewAlertCache(cfg.Redis, cfg.Alerts.ActiveCacheTTL)
	if err != nil {
		logger.Warn("Redis unavailable, alert polling will hit the database", "error", err)
		alertCache = nil
	} else {
		defer alertCache.Close()
	}

	mailSvc := pickMailer(cfg)

	// Initialize repositories
	userRepo := postgres.NewUserRepo(pool)
	visitRepo := postgres.NewVisitRepo(pool)
	alertRepo := postgres.NewAlertRepo(pool)
	facilityRepo := postgres.NewFacilityRepo(pool)

	// Initialize services
	visitService := service.NewVisitService(visitRepo, userRepo, facilityRepo, eventBus)
	gateService := service.NewGateService(visitRepo, eventBus)
	alertService := service.NewAlertService(alertRepo, userRepo, mailSvc, eventBus, alertCache, cfg.Alerts.FanoutTimeout)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	visitorHandler := handlers.NewVisitorHandler(visitService, userRepo)
	facilityHandler := handlers.NewFacilityHandler(facilityRepo)
	adminHandler := handlers.NewAdminHandler(visitService)
	gateHandler := handlers.NewGateHandler(gateService)
	alertHandler := handlers.NewAlertHandler(alertService, userRepo)

	jwtAuth := authmw.NewAuth(cfg.Auth.JWTSecret)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())

		// Authenticated surface
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.RequireJWT)

			// Alert banner poll, any role
			r.Get("/alerts/active", alertHandler.PollActive)

			// Visitor directory
			r.Group(func(r chi.Router) {
				r.Use(authmw.RequireRole(domain.RoleVisitor, domain.RoleFamily))
				r.Get("/jails", facilityHandler.ListJails)
				r.Get("/prisoners", facilityHandler.SearchPrisoners)
			})

			r.Route("/visitor", func(r chi.Router) {
				r.Use(authmw.RequireRole(domain.RoleVisitor, domain.RoleFamily))
				r.Mount("/", visitorHandler.Routes())
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(authmw.RequireRole(domain.RoleAdmin))
				r.Mount("/", adminHandler.Routes())
			})

			r.Route("/security", func(r chi.Router) {
				r.Use(authmw.RequireRole(domain.RoleSecurity))
				r.Mount("/", gateHandler.Routes())
			})

			// Alert management
			r.Route("/alerts", func(r chi.Router) {
				r.With(authmw.RequireRole(domain.RoleSecurity, domain.RoleAdmin)).Post("/", alertHandler.Trigger)
				r.With(authmw.RequireRole(domain.RoleSecurity, domain.RoleAdmin)).Get("/", alertHandler.List)
				r.With(authmw.RequireRole(domain.RoleAdmin)).Post("/{id}/resolve", alertHandler.Resolve)
				r.With(authmw.RequireRole(domain.RoleAdmin)).Post("/{id}/reactivate", alertHandler.Reactivate)
			})
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down visitor management API...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("API shutdown error", "error", err)
		}
	}()

	logger.Info("Starting visitor management API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}

func pickMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		logger.Info("Email in dev mode, messages go to the log")
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		logger.Info("Email via MailerSend")
		return mailer.NewMailer(cfg.Email.MailerSendKey, "Visitor Management", cfg.Email.SMTPFrom)
	default:
		logger.Info("Email via SMTP", "host", cfg.Email.SMTPHost)
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}
