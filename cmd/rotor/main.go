package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/layer-3/rotor/adapters/events"
	"github.com/layer-3/rotor/adapters/keyset"
	"github.com/layer-3/rotor/adapters/secretstore"
	"github.com/layer-3/rotor/adapters/signingkey"
	"github.com/layer-3/rotor/adapters/tokenizer"
	"github.com/layer-3/rotor/config"
	"github.com/layer-3/rotor/internal/cache"
	"github.com/layer-3/rotor/internal/logger"
	"github.com/layer-3/rotor/ports"
	"github.com/layer-3/rotor/service"
	rotorhttp "github.com/layer-3/rotor/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	lg, err := logger.New(logger.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("rotor stopped", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("starting rotor",
		zap.String("issuer", cfg.IssuerURL),
		zap.String("secret_store", cfg.SecretStore),
		zap.String("route", cfg.RoutePath),
	)

	// Load secret store configuration once, before serving
	store, err := secretstore.New(ctx, cfg.SecretStore, secretstore.VaultConfig{
		Address:   cfg.VaultAddr,
		Token:     cfg.VaultToken,
		Namespace: cfg.VaultNamespace,
		Field:     cfg.VaultField,
	}, lg.Named("secretstore"))
	if err != nil {
		return err
	}
	if err := store.Preload(); err != nil {
		return err
	}

	// Setup metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := events.NewMetrics(reg, cfg.MetricsNamespace, cfg.MetricLabels())
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// Key caches
	signingKeys := signingkey.NewCache(store, cfg.SecretKeyID, lg.Named("signingkey"),
		cache.WithFetchObserver(metrics.CacheObserver("signing_key")))

	fetcherCfg := keyset.DefaultFetcherConfig()
	fetcherCfg.Timeout = cfg.JWKSTimeout
	keySets := keyset.NewCache(keyset.NewFetcher(fetcherCfg, lg.Named("jwks")), lg.Named("keyset"),
		cache.WithFetchObserver(metrics.CacheObserver("jwks")))

	// Event emitters, redis stream only when configured
	emitters := []ports.EventEmitter{metrics, events.NewLogEmitter(lg.Named("events"))}

	if cfg.RedisURL != "" {
		// Parse Redis URL and create client
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		// Initialize Watermill Redis publisher
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			logger.NewWatermillAdapter(lg),
		)
		if err != nil {
			return fmt.Errorf("failed to create redis publisher: %w", err)
		}
		defer publisher.Close()

		emitters = append(emitters, events.NewWatermillEmitter(publisher, cfg.EventsTopic))
		lg.Info("publishing refresh events", zap.String("topic", cfg.EventsTopic))
	}

	// Create refresh service
	svc := service.NewRefreshService(
		tokenizer.NewJWTValidator(keySets),
		tokenizer.NewJWTIssuer(cfg.AccessAudience),
		signingKeys,
		events.NewFanout(lg.Named("events"), emitters...),
		cfg.IssuerURL,
		lg.Named("service"),
	)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := rotorhttp.SetupRouter(svc, rotorhttp.RouterConfig{
		RoutePath: cfg.RoutePath,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, lg.Named("http"))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	lg.Info("shutting down")

	// give in-flight requests a short grace period
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		lg.Warn("http server shutdown failed", zap.Error(err))
	}

	lg.Info("goodbye")
	return nil
}
