package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/nisabwisdom/backend/internal/api/rest"
	"github.com/nisabwisdom/backend/internal/config"
	"github.com/nisabwisdom/backend/internal/credstore"
	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/middleware"
	"github.com/nisabwisdom/backend/internal/password"
	"github.com/nisabwisdom/backend/internal/rate"
	"github.com/nisabwisdom/backend/internal/repository/postgres"
	"github.com/nisabwisdom/backend/internal/revoke"
	"github.com/nisabwisdom/backend/internal/service"
	"github.com/nisabwisdom/backend/internal/token"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		// Config errors are fatal at startup, never recovered later.
		logger.New(logger.ParseLevel("info")).Fatal("configuration error", "error", err)
	}

	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A down credential store must not crash startup: the limiter fails
	// open and revocation policy decides the verifier behavior.
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	defer rdb.Close()

	store := credstore.NewRedis(rdb, cfg.Redis.OpTimeout)
	if err := store.Ping(ctx); err != nil {
		log.Error("credential store unreachable at startup, running degraded", "addr", cfg.Redis.Addr, "error", err)
	}

	if err := postgres.RunMigrations(ctx, cfg.Database.DSN); err != nil {
		return err
	}
	pool, err := postgres.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	registry := revoke.NewRegistry(store)

	tokens, err := token.NewManager(token.Config{
		Secret:             []byte(cfg.JWT.Secret),
		AccessTTL:          cfg.JWT.AccessTTL(),
		Leeway:             cfg.JWT.Leeway,
		RevocationFailOpen: cfg.JWT.RevocationFailOpen,
	}, registry)
	if err != nil {
		return err
	}

	limiter := rate.New(store)
	policies := rate.DefaultPolicies(cfg.Rate.DefaultLimit, cfg.Rate.DefaultWindow)
	guard := middleware.NewGuard(tokens, limiter, policies, log)

	hasher := password.NewHasher(password.DefaultConfig())
	users := postgres.NewUserRepository(pool)
	calcs := postgres.NewCalculationRepository(pool)

	authSvc := service.NewAuth(users, hasher, tokens, registry, service.AuthConfig{
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	}, log)

	prices := service.NewPriceClient(service.PriceConfig{
		BaseURL: cfg.Prices.BaseURL,
		APIKey:  cfg.Prices.APIKey,
		Timeout: cfg.Prices.Timeout,
	}, log)
	zakatSvc := service.NewZakat(prices, calcs, log)

	chatSvc := service.NewChat(service.ChatConfig{
		APIKey:      cfg.Chat.APIKey,
		BaseURL:     cfg.Chat.BaseURL,
		Model:       cfg.Chat.Model,
		MaxTokens:   cfg.Chat.MaxTokens,
		Temperature: cfg.Chat.Temperature,
		Timeout:     cfg.Chat.Timeout,
	}, log)

	router := rest.NewRouter(rest.Deps{
		Auth:   authSvc,
		Zakat:  zakatSvc,
		Chat:   chatSvc,
		Guard:  guard,
		Health: rest.NewHealthHandler(store, pool),
		Log:    log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTP.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
