package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"lexhub/api/internal/app"
	"lexhub/api/internal/bookmarks"
	"lexhub/api/internal/cache"
	"lexhub/api/internal/config"
	"lexhub/api/internal/dict"
	"lexhub/api/internal/email"
	"lexhub/api/internal/export"
	"lexhub/api/internal/search"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	client := dict.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout)

	var bookmarkStore app.BookmarkStore
	var taxonomyCache app.TaxonomyCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid redis url: %v", err)
		}
		redisClient := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis connection failed: %v", err)
		}
		cancel()
		defer redisClient.Close()
		bookmarkStore = bookmarks.NewRedisStoreWithClient(redisClient)
		taxonomyCache = cache.NewRedisCache(redisClient, cfg.TaxonomyTTL)
	} else {
		log.Printf("WARNING: no Redis configured, bookmarks and taxonomy caching are disabled")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewMemory())

	var artifactStore *export.ArtifactStore
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		store, err := export.NewArtifactStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("WARNING: object storage unavailable, export downloads are inline only: %v", err)
		} else {
			artifactStore = store
		}
	}
	exportService := export.NewService(artifactStore)

	var emailService *email.Service
	if strings.TrimSpace(cfg.SMTPHost) != "" {
		emailService = email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
	}

	service := app.NewService(client, bookmarkStore, taxonomyCache, searchService, exportService, emailService)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: search bootstrap failed (index fills on the next approval): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("LexHub API listening on %s (upstream %s)", cfg.Addr, cfg.UpstreamURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
