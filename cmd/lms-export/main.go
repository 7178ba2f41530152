// Command lms-export walks one LMS OData collection and writes the rows to
// stdout as JSON lines. Configuration comes from the environment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/learnfeed/lms-odata-client/pkg/auth"
	"github.com/learnfeed/lms-odata-client/pkg/client"
	"github.com/learnfeed/lms-odata-client/pkg/logging"
	"github.com/learnfeed/lms-odata-client/pkg/odata"
)

func main() {
	// Configuration from environment
	baseURL := getEnv("LMS_BASE_URL", "")
	clientID := getEnv("LMS_CLIENT_ID", "")
	clientSecret := getEnv("LMS_CLIENT_SECRET", "")
	collection := getEnv("LMS_COLLECTION", "/odata/Enrollments?$count=true")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	if baseURL == "" || clientID == "" || clientSecret == "" {
		logger.Fatal().Msg("LMS_BASE_URL, LMS_CLIENT_ID and LMS_CLIENT_SECRET are required")
	}

	// SIGINT/SIGTERM abort the walk; whatever was collected is still written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authCfg := auth.DefaultConfig(baseURL+"/oauth2/token", clientID, clientSecret)

	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		authCfg.Store = auth.NewRedisStore(redisClient)
		logger.Info().Str("redis", redisURL).Msg("Sharing credentials via Redis")
	}

	source, err := auth.New(authCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create token source")
	}

	lmsClient, err := client.New(client.DefaultConfig(baseURL, source))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create LMS client")
	}

	collector := odata.NewCollector(lmsClient)

	if addr := getEnv("METRICS_ADDR", ""); addr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", healthHandler)
		mux.Handle("/metrics", promhttp.Handler())

		go func() {
			logger.Info().Str("addr", addr).Msg("Serving metrics")
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	logger.Info().
		Str("base_url", baseURL).
		Str("collection", collection).
		Msg("Starting export")

	start := time.Now()
	result := collector.CollectAll(ctx, collection)

	enc := json.NewEncoder(os.Stdout)
	for _, item := range result.Items {
		if err := enc.Encode(item); err != nil {
			logger.Fatal().Err(err).Msg("Failed to write output")
		}
	}

	if !result.Complete {
		logger.Warn().
			Err(result.Err).
			Int("items", len(result.Items)).
			Int("pages", result.Pages).
			Msg("Export incomplete, wrote partial data")
		os.Exit(1)
	}

	logger.Info().
		Int("items", len(result.Items)).
		Int("pages", result.Pages).
		Int64("reported_count", result.Count).
		Dur("duration", time.Since(start)).
		Msg("Export complete")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
