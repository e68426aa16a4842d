package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estensen/mint-profit-pipeline/internal/aggregator"
	"github.com/estensen/mint-profit-pipeline/internal/api"
	"github.com/estensen/mint-profit-pipeline/internal/config"
	"github.com/estensen/mint-profit-pipeline/internal/database"
	"github.com/estensen/mint-profit-pipeline/internal/loader"
	"github.com/estensen/mint-profit-pipeline/internal/parser"
	"github.com/estensen/mint-profit-pipeline/internal/pipeline"
	"github.com/estensen/mint-profit-pipeline/internal/price"
	"github.com/estensen/mint-profit-pipeline/internal/registry"
	"github.com/estensen/mint-profit-pipeline/internal/report"
	"github.com/estensen/mint-profit-pipeline/internal/storage"
	"github.com/estensen/mint-profit-pipeline/internal/utils"
)

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	serve := flag.Bool("serve", false, "keep serving the report over HTTP after the run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// The logger level lives in the config, so fall back to a default one.
		zap.Must(zap.NewProduction()).Fatal("Error loading config", zap.Error(err))
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.New(cfg.Registry.Bots, cfg.Registry.Others, cfg.Registry.Collections)
	if err != nil {
		logger.Fatal("Error building registry", zap.Error(err))
	}

	var minioStorage *storage.MinIOStorage
	if cfg.Cache.Backend == config.CacheBackendMinIO || cfg.Output.Archive {
		minioStorage, err = storage.NewMinIOStorage(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL, logger)
		if err != nil {
			logger.Fatal("Error setting up MinIO", zap.Error(err))
		}
	}

	var cacheStore storage.Storage = minioStorage
	if cfg.Cache.Backend == config.CacheBackendFile {
		cacheStore, err = storage.NewFileStorage(cfg.Cache.Path)
		if err != nil {
			logger.Fatal("Error setting up cache dir", zap.Error(err))
		}
	}
	txCache := storage.NewTxCache(cacheStore, cfg.Cache.Object)

	var oracle price.Oracle
	switch cfg.Price.Provider {
	case config.PriceProviderCoinGecko:
		oracle = price.NewCoinGeckoAPI(cfg.Price.CoinGeckoURL, logger)
	default:
		oracle = price.NewStaticOracle(cfg.StaticPrice())
	}

	txParser, err := parser.New(parser.DefaultSchema(), reg, logger)
	if err != nil {
		logger.Fatal("Error building parser", zap.Error(err))
	}

	historyLoader := loader.New(
		loader.NewFCDClient(cfg.FCD.URL, cfg.FCD.Timeout),
		loader.NewPageLimiter(cfg.Loader.PageDelay),
		loader.WithPageSize(cfg.Loader.PageSize),
		loader.WithConcurrency(cfg.Loader.Concurrency),
		loader.WithLogger(logger),
	)

	p := pipeline.New(historyLoader, txCache, reg, txParser, aggregator.NewCorrelator(oracle, logger), logger)

	runID := uuid.NewString()
	createdAt := time.Now().UTC()
	logger.Info("starting run", zap.String("run_id", runID), zap.Int("addresses", len(reg.AllAddresses())))

	rep, err := p.Run(ctx)
	if err != nil {
		logger.Fatal("Pipeline failed", zap.Error(err))
	}

	publisherOpts := []report.Option{report.WithLogger(logger)}
	if cfg.Output.Archive {
		publisherOpts = append(publisherOpts, report.WithArchive(minioStorage))
	}

	var collectionStore api.CollectionStore
	if cfg.ClickHouse.Enabled {
		conn, err := database.NewClickHouseConnection(ctx, database.Options{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		}, logger)
		if err != nil {
			logger.Fatal("Error connecting to ClickHouse", zap.Error(err))
		}
		defer conn.Close()

		if err := database.EnsureSchema(ctx, conn); err != nil {
			logger.Fatal("Error preparing ClickHouse tables", zap.Error(err))
		}
		publisherOpts = append(publisherOpts, report.WithSink(database.NewReportSink(conn)))
		collectionStore = &database.CollectionReader{Conn: conn}
	}

	publisher, err := report.NewPublisher(cfg.Output.Path, publisherOpts...)
	if err != nil {
		logger.Fatal("Error setting up report output", zap.Error(err))
	}
	if err := publisher.Publish(ctx, runID, createdAt, rep); err != nil {
		logger.Fatal("Error publishing report", zap.Error(err))
	}

	utils.DisplayReport(os.Stdout, rep)
	logger.Info("Data pipeline completed successfully", zap.String("run_id", runID))

	if !*serve {
		return
	}

	server := api.NewServer(collectionStore, logger)
	server.SetReport(runID, rep)
	if err := api.StartServer(ctx, cfg.API.Addr, server); err != nil {
		logger.Fatal("API server failed", zap.Error(err))
	}
}
