package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aman-news/searchcore/internal/config"
	"github.com/aman-news/searchcore/internal/embed"
	"github.com/aman-news/searchcore/internal/output"
	"github.com/aman-news/searchcore/internal/store"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, store, stream and embedder connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context())
		},
	}
}

// runDoctor probes each collaborator and reports per-check status. It
// keeps going after a failure so one report covers everything; the exit
// code reflects whether all checks passed.
func runDoctor(ctx context.Context) error {
	out := output.New(os.Stdout)
	healthy := true

	cfg, err := config.Load(configPath)
	if err != nil {
		out.Errorf("config: %v", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		out.Errorf("config: %v", err)
		healthy = false
	} else {
		out.Success("config valid")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docStore, err := store.NewESStore(store.ESConfig{
		Addresses:   []string{cfg.Elastic.Host},
		Username:    cfg.Elastic.User,
		Password:    cfg.Elastic.Password,
		CACertPath:  cfg.Elastic.CAPath,
		TLSInsecure: cfg.Elastic.TLSInsecure,
	})
	if err != nil {
		out.Errorf("document store: %v", err)
		healthy = false
	} else {
		defer func() { _ = docStore.Close() }()
		for index, mapping := range map[string]store.Mapping{
			store.IndexArticles:     store.ArticlesMapping(),
			store.IndexTopics:       store.TopicsMapping(),
			store.IndexTopicBatches: store.TopicBatchesMapping(),
			store.IndexCategories:   store.CategoriesMapping(),
		} {
			if err := docStore.AssertIndex(ctx, index, mapping); err != nil {
				out.Errorf("document store: index %q: %v", index, err)
				healthy = false
			} else {
				out.Successf("document store: index %q ok", index)
			}
		}
	}

	if cfg.Ingest.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			out.Errorf("redis (%s): %v", cfg.Redis.Addr(), err)
			healthy = false
		} else {
			out.Successf("redis reachable at %s", cfg.Redis.Addr())
		}
	} else {
		out.Status("", "ingest disabled, skipping redis check")
	}

	embedder, err := embed.NewEmbedder(ctx, embed.ParseProvider(cfg.Embeddings.Provider), embed.Options{
		ModelPath:   cfg.Embeddings.ModelPath,
		OllamaHost:  cfg.Embeddings.OllamaHost,
		OllamaModel: cfg.Embeddings.OllamaModel,
		Dimensions:  cfg.Embeddings.Dimensions,
	})
	if err != nil {
		out.Errorf("embedder: %v", err)
		healthy = false
	} else {
		defer func() { _ = embedder.Close() }()
		out.Successf("embedder ok: %s (%d dims)", embedder.ModelName(), embedder.Dimensions())
	}

	if !healthy {
		out.Newline()
		out.Error("some checks failed")
		return errors.New("doctor: some checks failed")
	}
	out.Newline()
	out.Success("all checks passed")
	return nil
}
