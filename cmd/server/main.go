package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/expense-service/docs"
	"github.com/tazhibayda/expense-service/internal/config"
	api "github.com/tazhibayda/expense-service/internal/http"
	"github.com/tazhibayda/expense-service/internal/log"
	"github.com/tazhibayda/expense-service/internal/metrics"
	"github.com/tazhibayda/expense-service/internal/parser"
	"github.com/tazhibayda/expense-service/internal/queue"
	"github.com/tazhibayda/expense-service/internal/repo"
	"github.com/tazhibayda/expense-service/internal/security"
)

// @title AI Expense Service API
// @version 1.0.0
// @description Parses natural language into structured expense records.
// @BasePath /
func main() {
	cfg := config.Load()

	if _, err := log.Init(os.Getenv("APP_ENV") == "prod"); err != nil {
		panic(err)
	}
	defer log.L().Sync()

	tracer.Start(tracer.WithService("expense-service"))
	defer tracer.Stop()

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Errorf("mongo connect: %v", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		log.Errorf("mongo indexes: %v", err)
		os.Exit(1)
	}

	var rds *repo.Redis
	if cfg.RedisAddr != "" {
		rds = repo.NewRedis(cfg.RedisAddr)
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			log.Errorf("redis ping: %v (rate limiting falls back to in-memory)", err)
			rds = nil
		}
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		p, err := queue.NewRabbit(cfg.RabbitURL, queue.Exchange)
		if err != nil {
			log.Errorf("rabbit connect: %v", err)
			os.Exit(1)
		}
		pub = p
	}
	defer pub.Close()

	verifier := security.NewGoogleVerifier(
		cfg.GoogleJWKSURL,
		cfg.GoogleClientID,
		time.Duration(cfg.JWKSCacheSeconds)*time.Second,
	)
	extractor := parser.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.DefaultCurrency)

	docs.SwaggerInfo.BasePath = "/"

	h := api.NewHandler(store, extractor, verifier, pub)
	r := api.NewRouter(h, api.RouterConfig{
		FrontendOrigin:  cfg.FrontendOrigin,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Redis:           rds,
	})

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	log.Infof("expense-service listening on :%s", cfg.Port)

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Infof("signal: %s, shutting down", s)
	case err := <-srvErr:
		log.Errorf("server error: %v", err)
	}
}
