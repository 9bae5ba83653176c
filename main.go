package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/config"
	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/routes"
	"github.com/c14220110/hospital-backend/pkg/cache"
	"github.com/c14220110/hospital-backend/pkg/events"
	"github.com/c14220110/hospital-backend/pkg/logger"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
	"github.com/c14220110/hospital-backend/ws"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET wajib diisi")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mariadb.Connect(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()
	if err := mariadb.EnsureSchema(ctx, db); err != nil {
		log.WithError(err).Fatal("failed to apply schema")
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	var store cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, "hospital:", log)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, running without cache")
		} else {
			defer rc.Close()
			store = rc
		}
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.KafkaBroker != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic, log)
		log.WithFields(logrus.Fields{"broker": cfg.KafkaBroker, "topic": cfg.KafkaTopic}).Info("domain events go to kafka")
	}
	defer publisher.Close()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.ErrorHandler(log)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middlewares.RequestLogger(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, "If-Match"},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))
	e.Use(middleware.BodyLimit("6M"))

	svc := routes.Init(e, routes.Deps{Config: cfg, DB: db, Cache: store, Events: publisher, Hub: hub, Log: log})

	if err := svc.Users.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Error("failed to seed admin account")
	}

	sweeper, err := svc.Tokens.StartSweeper(cfg.TokenSweepSpec)
	if err != nil {
		log.WithError(err).Fatal("invalid TOKEN_SWEEP_SPEC")
	}

	go func() {
		log.Infof("Server berjalan pada port %s...", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sweeper != nil {
		<-sweeper.Stop().Done()
	}
	svc.Tokens.Timer.Stop()
	<-hub.Done()
}
