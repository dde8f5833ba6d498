package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aman-news/searchcore/internal/config"
	"github.com/aman-news/searchcore/internal/embed"
	"github.com/aman-news/searchcore/internal/httpapi"
	"github.com/aman-news/searchcore/internal/ingest"
	"github.com/aman-news/searchcore/internal/logging"
	"github.com/aman-news/searchcore/internal/output"
	"github.com/aman-news/searchcore/internal/projection"
	"github.com/aman-news/searchcore/internal/searchservice"
	"github.com/aman-news/searchcore/internal/store"
	"github.com/aman-news/searchcore/internal/streamconsumer"
	"github.com/aman-news/searchcore/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the search API server and the ingest worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// encoderAdapter narrows an embed.Embedder to the search service's Encoder.
type encoderAdapter struct {
	embedder embed.Embedder
}

func (a encoderAdapter) Encode(ctx context.Context, text string) ([]float32, error) {
	return a.embedder.Embed(ctx, text)
}

// metricsObserver adapts telemetry.QueryMetrics to searchservice.Observer.
type metricsObserver struct {
	metrics *telemetry.QueryMetrics
}

func (o metricsObserver) ObserveSearch(endpoint, searchType, queryText string, resultCount int, elapsed time.Duration) {
	o.metrics.Record(telemetry.QueryEvent{
		Endpoint:    telemetry.Endpoint(endpoint),
		SearchType:  telemetry.SearchType(searchType),
		Query:       queryText,
		ResultCount: resultCount,
		Latency:     elapsed,
		Timestamp:   time.Now(),
	})
}

func runServe(ctx context.Context) error {
	out := output.New(os.Stdout)

	cfg, err := config.Load(configPath)
	if err != nil {
		out.Errorf("loading configuration: %v", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		out.Error(err.Error())
		return err
	}

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		FilePath:      cfg.Logging.FilePath,
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		out.Errorf("setting up logging: %v", err)
		return err
	}
	defer logCleanup()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out.Statusf("⏳", "initializing embedder (%s)", cfg.Embeddings.Provider)
	embedder, err := embed.NewEmbedder(ctx, embed.ParseProvider(cfg.Embeddings.Provider), embed.Options{
		ModelPath:   cfg.Embeddings.ModelPath,
		OllamaHost:  cfg.Embeddings.OllamaHost,
		OllamaModel: cfg.Embeddings.OllamaModel,
		Dimensions:  cfg.Embeddings.Dimensions,
		CacheSize:   cfg.Embeddings.CacheSize,
	})
	if err != nil {
		out.Errorf("initializing embedder: %v", err)
		return err
	}
	defer func() { _ = embedder.Close() }()
	out.Successf("embedder ready: %s (%d dims)", embedder.ModelName(), embedder.Dimensions())

	docStore, err := store.NewESStore(store.ESConfig{
		Addresses:   []string{cfg.Elastic.Host},
		Username:    cfg.Elastic.User,
		Password:    cfg.Elastic.Password,
		CACertPath:  cfg.Elastic.CAPath,
		TLSInsecure: cfg.Elastic.TLSInsecure,
	})
	if err != nil {
		out.Errorf("connecting to document store: %v", err)
		return err
	}
	defer func() { _ = docStore.Close() }()

	for index, mapping := range map[string]store.Mapping{
		store.IndexArticles:     store.ArticlesMapping(),
		store.IndexTopics:       store.TopicsMapping(),
		store.IndexTopicBatches: store.TopicBatchesMapping(),
		store.IndexCategories:   store.CategoriesMapping(),
	} {
		if err := docStore.AssertIndex(ctx, index, mapping); err != nil {
			out.Errorf("asserting index %q: %v", index, err)
			return err
		}
	}
	out.Success("document store ready, indices asserted")

	schema := projection.Build()
	svc := searchservice.New(docStore, schema, encoderAdapter{embedder})

	var metrics *telemetry.QueryMetrics
	if cfg.Telemetry.Enabled {
		db, err := telemetry.Open(cfg.Telemetry.DBPath)
		if err != nil {
			out.Errorf("opening telemetry store: %v", err)
			return err
		}
		defer func() { _ = db.Close() }()

		metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
		if err != nil {
			return err
		}
		metrics = telemetry.NewQueryMetrics(metricsStore)
		defer func() { _ = metrics.Close() }()
		svc.SetObserver(metricsObserver{metrics})
		out.Status("📊", "query telemetry enabled")
	}

	server := httpapi.New(svc, schema, httpapi.ServerConfig{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		CORS: httpapi.CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
		},
	}, logger)

	errCh := make(chan error, 2)

	var redisClient *redis.Client
	if cfg.Ingest.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		defer func() { _ = redisClient.Close() }()

		batchStore := ingest.NewRedisBatchStore(redisClient, cfg.Ingest.BatchKeyPrefix)
		coordinator := ingest.New(docStore, batchStore, logger)

		consumerCfg := streamconsumer.DefaultConfig()
		consumerCfg.Stream = cfg.Ingest.Stream
		consumerCfg.Group = cfg.Ingest.Group
		consumerCfg.Logger = logger
		consumer := streamconsumer.New(redisClient, consumerCfg, coordinator.HandleNotification)

		go func() {
			if err := consumer.Run(ctx); err != nil {
				errCh <- fmt.Errorf("stream consumer: %w", err)
			}
		}()
		out.Statusf("📨", "ingest worker consuming %q as group %q", cfg.Ingest.Stream, cfg.Ingest.Group)
	}

	go func() {
		out.Successf("listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	logger.Info("searchcore started",
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"elastic", cfg.Elastic.Host,
		"ingest", cfg.Ingest.Enabled)

	select {
	case <-ctx.Done():
		out.Newline()
		out.Status("🛑", "shutting down")
	case err := <-errCh:
		out.Errorf("fatal: %v", err)
		stop()
		_ = server.Shutdown(10 * time.Second)
		return err
	}

	// Stop accepting requests, drain in-flight ones, then let the deferred
	// closes drain the embedder, store, telemetry and redis client.
	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	out.Success("shutdown complete")
	return nil
}
