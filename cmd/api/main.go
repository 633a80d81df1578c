package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"commongames-api/internal/cache"
	"commongames-api/internal/config"
	"commongames-api/internal/handler"
	"commongames-api/internal/igdb"
	"commongames-api/internal/repository"
	"commongames-api/internal/router"
	"commongames-api/internal/service"
	"commongames-api/internal/steam"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting CommonGames API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	if cfg.Steam.APIKey == "" {
		log.Fatal("STEAM_API_KEY is required")
	}
	if cfg.IGDB.ClientID == "" || cfg.IGDB.ClientSecret == "" {
		log.Fatal("IGDB_CLIENT_ID and IGDB_CLIENT_SECRET are required")
	}

	// Initialize game cache repository based on config
	var gameCache repository.GameCacheRepository
	switch cfg.GameCache.Type {
	case "mysql":
		mysqlCache, err := repository.NewMySQLGameCache(cfg.GameCache.DSN(), cfg.GameCache.TTL)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL game cache: %v", err)
		}
		defer mysqlCache.Close()
		gameCache = mysqlCache
		log.Println("MySQL game cache initialized")
	default: // sqlite
		sqliteCache, err := repository.NewSQLiteGameCache(cfg.GameCache.Path, cfg.GameCache.TTL)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite game cache: %v", err)
		}
		defer sqliteCache.Close()
		gameCache = sqliteCache
		log.Println("SQLite game cache initialized")
	}

	// Initialize profile cache (optional; the service works without one)
	var profileCache cache.Cache
	switch cfg.ProfileCache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.ProfileCache.RedisAddress(),
			Password: cfg.ProfileCache.RedisPassword,
			DB:       cfg.ProfileCache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, profile caching disabled: %v", err)
		} else {
			defer redisCache.Close()
			profileCache = redisCache
			log.Println("Redis profile cache initialized")
		}
	default: // memory
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		profileCache = memCache
		log.Println("In-memory profile cache initialized")
	}

	// Initialize upstream clients
	steamClient := steam.NewClient(steam.Config{
		APIKey:         cfg.Steam.APIKey,
		ConnectTimeout: cfg.Steam.ConnectTimeout,
		ReadTimeout:    cfg.Steam.ReadTimeout,
	})

	tokens := igdb.NewTokenSource(igdb.TokenConfig{
		ClientID:       cfg.IGDB.ClientID,
		ClientSecret:   cfg.IGDB.ClientSecret,
		TokenPath:      cfg.IGDB.TokenPath,
		ConnectTimeout: cfg.IGDB.ConnectTimeout,
		ReadTimeout:    cfg.IGDB.ReadTimeout,
	})
	igdbClient := igdb.NewClient(igdb.Config{
		ClientID:       cfg.IGDB.ClientID,
		ConnectTimeout: cfg.IGDB.ConnectTimeout,
		ReadTimeout:    cfg.IGDB.ReadTimeout,
	}, tokens)

	// Initialize services
	gameService := service.NewGameService(steamClient, igdbClient, gameCache)
	userService := service.NewUserService(steamClient, profileCache, cfg.ProfileCache.TTL)

	// Start the cache cleanup scheduler
	var cleanupScheduler *service.CleanupScheduler
	if cfg.GameCache.CleanupInterval > 0 {
		cleanupScheduler = service.NewCleanupScheduler(gameCache, service.CleanupConfig{
			CleanupInterval: cfg.GameCache.CleanupInterval,
		})
		cleanupScheduler.Start()
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, func() error {
		_, err := gameCache.GetMany(context.Background(), []uint64{0})
		return err
	})
	gamesHandler := handler.NewGamesHandler(gameService, cfg.App.Debug)
	usersHandler := handler.NewUsersHandler(userService)

	// Create router
	r := router.New(router.Config{
		Handler:      healthHandler,
		GamesHandler: gamesHandler,
		UsersHandler: usersHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if cleanupScheduler != nil {
		cleanupScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
