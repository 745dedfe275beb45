// main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/inngest/inngestgo"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/repos"
	"github.com/brandbeacon/beacon-workflows/services"
	"github.com/brandbeacon/beacon-workflows/workflows"
)

// connectDatabase opens the Postgres pool, retrying with exponential
// backoff so a deploy does not race the database coming up.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	var db *sqlx.DB
	operation := func() error {
		var err error
		db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
		if err != nil {
			log.Warn().Err(err).Msg("Database not ready, retrying")
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err == nil {
			log.Info().Msg("Loaded dev.env file for local development")
		}
	} else {
		log.Info().Msg("Loaded .env file")
	}

	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.Port).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.Name).
		Msg("Starting beacon-workflows")

	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OpenAI API key not loaded")
	}
	if cfg.AnthropicAPIKey == "" {
		log.Warn().Msg("Anthropic API key not loaded")
	}
	if cfg.PerplexityAPIKey == "" {
		log.Warn().Msg("Perplexity API key not loaded")
	}

	ctx := context.Background()
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Successfully connected to database")

	repoManager := repos.NewRepositoryManager(db)
	log.Info().Msg("Repository manager initialized")

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		log.Info().Msg("Running in development mode - signing key verification disabled")
	}

	// Initialize services with repository manager and proper dependencies
	costService := services.NewCostService()
	variationService := services.NewVariationService(cfg)
	brandService := services.NewBrandService(repoManager.BrandRepo, variationService)
	queryService := services.NewQueryService(repoManager.QueryRepo)
	analyzerService := services.NewAnalyzerService(cfg.Scan)
	scanRunner := services.NewScanRunnerService(cfg.Scan, analyzerService)
	dedupService := services.NewDedupService(repoManager.FingerprintRepo, cfg.Dispatch)
	budgetService := services.NewBudgetService(repoManager.LedgerRepo, costService, cfg.Dispatch)

	// Create Inngest client
	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "beacon-workflows",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Inngest client")
	}

	emitter := services.NewEventEmitter(client)
	pipelineService := services.NewPipelineService(repoManager.ObservationRepo, repoManager.StateRepo, dedupService, budgetService, emitter)

	// Initialize and register workflows
	scanProcessor := workflows.NewScanProcessor(brandService, queryService, scanRunner, pipelineService, budgetService, costService, cfg)
	scanProcessor.SetClient(client)
	scanProcessor.ProcessBrandScan()

	scheduledProcessor := workflows.NewScheduledProcessor(brandService)
	scheduledProcessor.SetClient(client)
	scheduledProcessor.DailyScanScheduler()

	completionProcessor := workflows.NewContentCompletionProcessor(dedupService)
	completionProcessor.SetClient(client)
	completionProcessor.HandleContentCompleted()

	log.Info().Msg("All processors initialized and functions registered")

	// Create and start server
	h := client.Serve()
	mux := http.NewServeMux()
	mux.Handle("/api/inngest", h)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint for ALB health check
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"service":"beacon-workflows","status":"running"}`))
	})

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/test/trigger-scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		brandID := r.URL.Query().Get("brand_id")
		if brandID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"brand_id query parameter is required"}`))
			return
		}
		evt := inngestgo.Event{
			Name: services.EventBrandScan,
			Data: map[string]interface{}{"brand_id": brandID, "triggered_by": "manual_test"},
		}
		result, err := client.Send(r.Context(), evt)
		if err != nil {
			log.Error().Err(err).Msg("Failed to send test event")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"error":"Failed to send event: %v"}`, err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf(`{"status":"success","message":"Scan triggered for brand %s","event_ids":["%s"]}`, brandID, result)))
	})

	// Start server
	log.Info().Str("port", cfg.Port).Msg("Starting beacon-workflows service")
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}
