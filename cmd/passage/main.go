package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passage/internal/ai"
	"github.com/xxxsen/passage/internal/cache"
	"github.com/xxxsen/passage/internal/chunker"
	"github.com/xxxsen/passage/internal/config"
	"github.com/xxxsen/passage/internal/db"
	"github.com/xxxsen/passage/internal/embedcache"
	"github.com/xxxsen/passage/internal/job"
	"github.com/xxxsen/passage/internal/repo"
	"github.com/xxxsen/passage/internal/schedule"
	"github.com/xxxsen/passage/internal/service"
)

type app struct {
	cfg       *config.Config
	db        *sql.DB
	cacheMgr  *cache.Manager
	badger    *cache.BadgerTier
	cacheRepo *repo.CacheRepo
	ingest    *service.IngestService
	retrieval *service.RetrievalService
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "passage",
		Short: "passage document retrieval engine",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	var metaPairs []string
	ingestCmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "ingest documents into the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app) error {
				metadata, err := parseMetadata(metaPairs)
				if err != nil {
					return err
				}
				for _, path := range args {
					raw, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read %s: %w", path, err)
					}
					res, err := a.ingest.Ingest(ctx, filepath.Base(path), string(raw), metadata)
					if err != nil {
						return fmt.Errorf("ingest %s: %w", path, err)
					}
					printJSON(res)
				}
				return nil
			})
		},
	}
	ingestCmd.Flags().StringArrayVar(&metaPairs, "meta", nil, "document metadata as key=value, repeatable")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "search the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app) error {
				res, err := a.retrieval.Search(ctx, args[0])
				if err != nil {
					return err
				}
				printJSON(res)
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app) error {
				return a.ingest.Delete(ctx, args[0])
			})
		},
	}

	var topLimit int
	topQueriesCmd := &cobra.Command{
		Use:   "top-queries",
		Short: "list the most frequently cached queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app) error {
				queries, err := a.retrieval.TopQueries(ctx, topLimit)
				if err != nil {
					return err
				}
				printJSON(queries)
				return nil
			})
		},
	}
	topQueriesCmd.Flags().IntVar(&topLimit, "limit", 10, "number of queries to list")

	jobsCmd := &cobra.Command{
		Use:   "run-jobs",
		Short: "run the maintenance job scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, runJobs)
		},
	}

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "embed chunks whose vectors are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app) error {
				n, err := a.ingest.BackfillEmbeddings(ctx, 0)
				if err != nil {
					return err
				}
				logutil.GetLogger(ctx).Info("backfill done", zap.Int("embedded", n))
				return nil
			})
		},
	}

	rootCmd.AddCommand(ingestCmd, searchCmd, deleteCmd, topQueriesCmd, jobsCmd, backfillCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func withApp(configPath string, fn func(ctx context.Context, a *app) error) error {
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	ctx := context.Background()
	logutil.GetLogger(ctx).Info("config loaded", zap.String("config", configPath))

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(ctx, a)
}

func buildApp(cfg *config.Config) (*app, error) {
	dbc, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(dbc); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	cacheRepo := repo.NewCacheRepo(dbc)
	badgerTier, err := cache.NewBadgerTier(cfg.Cache.L2Path, cfg.Cache.L2Path == "", time.Duration(cfg.Cache.L2TTLSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("open badger tier: %w", err)
	}
	cacheMgr := cache.NewManager(
		time.Duration(cfg.Cache.CooldownSeconds)*time.Second,
		cache.NewMemoryTier(cfg.Cache.L1Size, time.Duration(cfg.Cache.L1TTLSeconds)*time.Second),
		badgerTier,
		cache.NewPostgresTier(cacheRepo, time.Duration(cfg.Cache.L3TTLSeconds)*time.Second),
	)

	rawEmbedder, err := buildEmbedder(cfg.AI)
	if err != nil {
		return nil, err
	}
	embedder := embedcache.WrapTieredCacheToEmbedder(rawEmbedder, cacheMgr)

	docRepo := repo.NewDocumentRepo(dbc)
	chunkRepo := repo.NewChunkRepo(dbc)

	ingestSvc, err := service.NewIngestService(
		docRepo, chunkRepo,
		chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		embedder,
		cfg.Ingest.EmbedWorkers, cfg.Ingest.EmbedBatchSize,
	)
	if err != nil {
		return nil, err
	}
	retrievalSvc := service.NewRetrievalService(embedder, chunkRepo, chunkRepo, cfg.Retrieval)
	if cfg.Cache.ResultCacheEnable {
		retrievalSvc.EnableResultCache(cacheMgr, time.Duration(cfg.Cache.L3TTLSeconds)*time.Second)
	}

	return &app{
		cfg:       cfg,
		db:        dbc,
		cacheMgr:  cacheMgr,
		badger:    badgerTier,
		cacheRepo: cacheRepo,
		ingest:    ingestSvc,
		retrieval: retrievalSvc,
	}, nil
}

func buildEmbedder(cfg config.AIConfig) (ai.IEmbedder, error) {
	provider, err := ai.NewEmbedProvider(cfg.Provider, cfg.Args)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	primary := ai.NewEmbedder(provider, cfg.EmbedModel)
	if len(cfg.Fallbacks) == 0 {
		return primary, nil
	}
	entries := []ai.EmbedderEntry{{Name: cfg.Provider, Embedder: primary}}
	for _, ref := range cfg.Fallbacks {
		p, err := ai.NewEmbedProvider(ref.Provider, ref.Args)
		if err != nil {
			return nil, fmt.Errorf("init fallback embed provider %s: %w", ref.Provider, err)
		}
		entries = append(entries, ai.EmbedderEntry{Name: ref.Provider, Embedder: ai.NewEmbedder(p, ref.EmbedModel)})
	}
	return ai.NewGroupEmbedder(entries), nil
}

func (a *app) close(ctx context.Context) {
	a.ingest.Close()
	if err := a.badger.Close(); err != nil {
		logutil.GetLogger(ctx).Warn("close badger tier failed", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		logutil.GetLogger(ctx).Warn("close db failed", zap.Error(err))
	}
}

func runJobs(ctx context.Context, a *app) error {
	sched := schedule.NewCronScheduler()
	if err := sched.AddJob(job.NewCacheCleanupJob(a.cacheRepo), a.cfg.Cache.CleanupSchedule); err != nil {
		return err
	}
	if err := sched.AddJob(job.NewEmbeddingBackfillJob(a.ingest, a.cfg.Ingest.EmbedBatchSize*4), a.cfg.Ingest.BackfillSchedule); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	sched.Start(ctx)
	logutil.GetLogger(ctx).Info("job scheduler running")

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("scheduler stopping...")
	sched.Stop()
	return nil
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata pair: %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
