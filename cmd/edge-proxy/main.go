package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/kottu/edge-cache/pkg/cache"
	"github.com/kottu/edge-cache/pkg/compress"
	"github.com/kottu/edge-cache/pkg/edge"
	"github.com/kottu/edge-cache/pkg/logging"
	"github.com/kottu/edge-cache/pkg/stats"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	config := defaultProxyConfig()
	if *configPath != "" {
		var err error
		config, err = loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "edge-proxy: %v\n", err)
			os.Exit(1)
		}
	}

	// Environment overrides win over the file for deploy-time knobs.
	config.Redis = getEnv("REDIS_URL", config.Redis)
	config.Origin = getEnv("ORIGIN_URL", config.Origin)
	config.Listen = getEnv("LISTEN_ADDR", config.Listen)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(config.LogLevel),
		Pretty: config.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("edge-proxy")

	originURL, err := url.Parse(config.Origin)
	if err != nil {
		logger.Fatal().Err(err).Str("origin", config.Origin).Msg("invalid origin URL")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: config.Redis,
	})
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("redis", config.Redis).Msg("failed to connect to Redis")
	}
	logger.Info().Str("redis", config.Redis).Msg("connected to Redis")

	store := cache.NewRedisStore(redisClient)

	cacheOrch, err := cache.New(config.cacheOptions(), store)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid cache configuration")
	}
	compressOrch, err := compress.New(config.compressOptions())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid compression configuration")
	}

	collector := stats.New()
	handler := edge.NewHandler(cacheOrch, compressOrch, collector)
	admin := edge.NewAdmin(handler)

	proxy := httputil.NewSingleHostReverseProxy(originURL)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Get("/health", healthHandler)
	router.Get("/ready", readyHandler(redisClient))
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/admin/cache", func(r chi.Router) {
		r.Post("/invalidate", admin.Invalidate)
		r.Post("/clear", admin.Clear)
		r.Get("/stats", admin.Stats)
	})
	router.Handle("/*", handler.Wrap(proxy))

	server := &http.Server{
		Addr:              config.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", config.Listen).
			Str("origin", config.Origin).
			Msg("starting edge proxy")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close failed")
	}
	logger.Info().Msg("edge proxy stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports ready only while the Redis backend answers pings.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
