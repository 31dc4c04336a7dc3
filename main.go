package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"

	"github.com/itish2003/guidedpath/config"
	"github.com/itish2003/guidedpath/controller"
	"github.com/itish2003/guidedpath/helper"
	"github.com/itish2003/guidedpath/models"
	"github.com/itish2003/guidedpath/services"
)

func main() {
	cfg, cfgPath, err := config.LoadDefault()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := helper.NewLogger(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)
	if cfgPath == "" {
		logger.Info("No config file found, using defaults")
	} else {
		logger.Info("Loaded configuration", slog.String("path", cfgPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.ConfigurePDFLicense(os.Getenv(cfg.Ingestion.UnidocLicenseEnv)); err != nil {
		logger.Warn("PDF extraction disabled", slog.Any("error", err))
	}

	chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.VectorStore.URL))
	if err != nil {
		logger.Error("Failed to create chroma client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := chromaClient.Close(); err != nil {
			logger.Warn("Failed to close chroma client", slog.Any("error", err))
		}
	}()

	openCtx, cancel := context.WithTimeout(ctx, cfg.VectorStoreTimeout())
	index, err := services.OpenChromaIndex(openCtx, chromaClient, cfg.VectorStore.Collection, logger)
	cancel()
	if err != nil {
		logger.Error("Failed to open collection", slog.String("collection", cfg.VectorStore.Collection), slog.Any("error", err))
		os.Exit(1)
	}

	embedder := services.NewOllamaEmbedder(&http.Client{Timeout: cfg.EmbedderTimeout()}, cfg.Embedder.BaseURL, cfg.Embedder.Model)

	gateway := services.NewModelGateway(logger)
	for _, profile := range models.Profiles {
		p, ok := cfg.Profiles[profile]
		if !ok || p == nil {
			continue
		}
		backend, err := services.NewBackend(ctx, p)
		if err != nil {
			logger.Warn("Model profile unavailable, its queries will get the fallback answer",
				slog.String("profile", string(profile)), slog.Any("error", err))
			continue
		}
		gateway.Register(profile, backend, p.Settings())
		logger.Info("Registered model profile", slog.String("profile", string(profile)),
			slog.String("backend", p.Backend), slog.String("model", p.Model))
	}

	extractor := services.NewEntityExtractor()
	ingester := services.NewIngester(embedder, index, extractor, cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap, logger)
	indexer := services.NewFileIndexingService(ingester, index, cfg.Ingestion.FileExtensions, cfg.Ingestion.BatchSize, logger)

	ragService := services.NewRAGService(services.RAGDeps{
		Extractor: extractor,
		Retriever: services.NewRetriever(embedder, index, extractor, cfg.VectorStoreTimeout(), cfg.Retrieval.MinQuality, logger),
		Ranker:    services.NewEvidenceRanker(),
		Router:    services.NewQueryRouter(extractor),
		Gateway:   gateway,
		Ingester:  ingester,
		Indexer:   indexer,
		Index:     index,
		History:   services.NewConversationHistory(cfg.Controller.HistoryCapacity),
		Logger:    logger,
	}, services.RAGOptions{
		TopK:                  cfg.Retrieval.TopK,
		MinQuality:            cfg.Retrieval.MinQuality,
		PreferredInstitutions: cfg.Retrieval.PreferredInstitutions,
		ContextDocuments:      cfg.Controller.ContextDocuments,
		CitationCount:         cfg.Controller.CitationCount,
		MaxConcurrentQueries:  cfg.Controller.MaxConcurrentQueries,
		IndexTimeout:          cfg.VectorStoreTimeout(),
	})

	if dir := cfg.Ingestion.WatchDir; dir != "" {
		go func() {
			found, processed, _ := indexer.ScanAndIndexDirectory(ctx, dir, cfg.Ingestion.FileExtensions, cfg.Ingestion.BatchSize)
			logger.Info("Initial scan complete", slog.String("directory", dir), slog.Int("found", found), slog.Int("processed", processed))
			indexer.WatchDirectory(ctx, dir)
		}()
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS for browser clients
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "GuidedPath medical RAG API",
			"version": "1.0.0",
		})
	})
	controller.NewRAGController(ragService).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting", slog.String("addr", "http://localhost:"+cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
	}
	ragService.ClearHistory()
}
