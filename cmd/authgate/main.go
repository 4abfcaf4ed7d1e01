package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/pchauvet/authgate/internal/config"
	"github.com/pchauvet/authgate/internal/db"
	"github.com/pchauvet/authgate/internal/events"
	"github.com/pchauvet/authgate/internal/httpserver"
	"github.com/pchauvet/authgate/internal/logging"
	"github.com/pchauvet/authgate/internal/middleware"
	"github.com/pchauvet/authgate/internal/repo"
	"github.com/pchauvet/authgate/internal/service"
	"github.com/pchauvet/authgate/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	issuer, err := tokens.NewIssuer([]byte(cfg.SecretKey), cfg.TokenAlgorithm, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.AuthEventsTopic)
	defer producer.Close()

	userRepo := &repo.UserRepo{DB: gdb}
	svc := &service.AuthService{
		Repo:   userRepo,
		Tokens: issuer,
		Events: producer,
	}

	seedFirstAdmin(svc, cfg, logger)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(logging.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowCredentials: true,
	}))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		TestHandler: &httpserver.TestHTTP{Svc: svc, Production: cfg.IsProduction()},
		Auth:        middleware.NewBearerAuth(issuer, userRepo),
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}

// seedFirstAdmin creates the initial admin account on an empty store so
// a fresh deployment can log in at all.
func seedFirstAdmin(svc *service.AuthService, cfg config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := svc.CreateFirstUser(ctx, service.CreateUserInput{
		Username: cfg.FirstAdminUsername,
		Email:    cfg.FirstAdminEmail,
		Password: cfg.FirstAdminPassword,
		IsActive: true,
	})
	switch {
	case errors.Is(err, service.ErrUsersExist):
		logger.Info("database already initialized with users")
	case err != nil:
		log.Fatalf("seed first admin: %v", err)
	default:
		logger.Info("initial admin user created", "user_id", user.ID)
	}
}
