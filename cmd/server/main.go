package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/naturants/internal/cache"
	"github.com/iliyamo/naturants/internal/config"
	"github.com/iliyamo/naturants/internal/database"
	"github.com/iliyamo/naturants/internal/handler"
	"github.com/iliyamo/naturants/internal/logger"
	"github.com/iliyamo/naturants/internal/middleware"
	"github.com/iliyamo/naturants/internal/queue"
	"github.com/iliyamo/naturants/internal/repository"
	"github.com/iliyamo/naturants/internal/router"
	"github.com/iliyamo/naturants/internal/service"
)

func main() {
	cfg, cfgErr := config.Load()

	log, err := logger.New(cfg.Production())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfgErr != nil {
		log.Fatal("load config", zap.Error(cfgErr))
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = ephemeralSecret()
		log.Warn("JWT_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("migrate database", zap.Error(err))
	}

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable; caching and rate limiting disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		defer rdb.Close()
	}
	store := cache.New(rdb)

	var mailer queue.Mailer = queue.LogMailer{Log: log}
	if cfg.Mail.Host != "" {
		mailer = queue.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	}
	go func() {
		err := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, mailer, log).Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reset-mail consumer stopped", zap.Error(err))
		}
	}()
	publisher := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)

	users := repository.NewUserRepo(db)
	naturantRepo := repository.NewNaturantRepo(db)
	reviewRepo := repository.NewReviewRepo(db)

	auth, err := service.NewAuthService(users, publisher, service.AuthConfig{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
		ResetTTL:   cfg.ResetTokenTTL,
	})
	if err != nil {
		log.Fatal("init auth", zap.Error(err))
	}
	inv := service.Invalidator{
		Cache:        store,
		ResponseKeys: middleware.ResponseKeyPattern(cfg.Cache, "naturants"),
		Log:          log,
	}
	naturants := service.NewNaturantService(naturantRepo, inv, cfg.Cache.DataTTL)
	reviews := service.NewReviewService(reviewRepo, naturantRepo, inv, cfg.Cache.DataTTL)
	accounts := service.NewUserService(users, reviewRepo, naturantRepo, inv)

	e := echo.New()
	api := router.Setup(e, cfg, rdb, log)
	router.RegisterRoutes(e, db)
	router.RegisterUsers(api, handler.NewAuthHandler(auth, accounts, cfg.PublicURL), handler.NewUserHandler(auth, accounts), auth)
	rh := handler.NewReviewHandler(reviews)
	router.RegisterNaturants(api, handler.NewNaturantHandler(naturants), rh, auth,
		middleware.ResponseCache(cfg.Cache, store, "naturants", log))
	router.RegisterReviews(api, rh, auth)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func ephemeralSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
