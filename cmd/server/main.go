package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/lyricwave/api/internal/client"
	"github.com/lyricwave/api/internal/config"
	"github.com/lyricwave/api/internal/handler"
	"github.com/lyricwave/api/internal/middleware"
	"github.com/lyricwave/api/internal/pipeline"
	"github.com/lyricwave/api/internal/service"
	"github.com/lyricwave/api/internal/store"
	"github.com/lyricwave/api/internal/worker"
	ws "github.com/lyricwave/api/internal/websocket"
)

// defaultStyles seeds the style catalog on first boot so that song
// creation works before anyone calls PUT /music_styles.
var defaultStyles = []string{"Pop", "Rock", "Jazz", "Classical", "Electronic", "Hip-Hop"}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize generation clients (each falls back to a local
	// synthesizer when no upstream endpoint is configured)
	melodyClient := client.NewMelodyClient(&cfg.Melody)
	voiceClient := client.NewVoiceClient(&cfg.Voice)
	coverClient := client.NewCoverClient(&cfg.Cover)

	// Initialize object storage (optional - falls back to in-memory)
	var blobStore client.BlobStore
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		s3Client, err := client.NewS3Client(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			log.Printf("Warning: could not ensure bucket: %v", err)
		}
		blobStore = s3Client
	} else {
		log.Println("Info: object storage not configured, using in-memory store")
		blobStore = client.NewMemoryStore()
	}

	// Initialize stores
	songStore := store.NewSongStore(redisClient)
	styleStore := store.NewStyleStore(redisClient)
	searchIndex := store.NewSearchIndex(redisClient)
	logStore := store.NewLogStore(redisClient)

	seedStyles(ctx, styleStore)

	// Initialize services
	songService := service.NewSongService(songStore, styleStore, searchIndex, asynqClient, cfg.Pipeline.Queue, cfg.Server.PublicURL)
	styleService := service.NewStyleService(styleStore)

	// Initialize handlers
	songHandler := handler.NewSongHandler(songService, validate)
	styleHandler := handler.NewStyleHandler(styleService, validate)
	streamHandler := handler.NewStreamHandler(songStore, blobStore)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   redisClient.Ping(c.Context()).Err() == nil,
				"storage": blobStore != nil,
				"melody":  melodyClient.IsConfigured(),
				"voice":   voiceClient.IsConfigured(),
				"cover":   coverClient.IsConfigured(),
			},
		})
	})

	// Song routes
	app.Post("/generate_song", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), songHandler.Generate)
	app.Get("/songs", songHandler.List)
	app.Get("/songs/:id", songHandler.Get)
	app.Delete("/songs/:id", songHandler.Delete)
	app.Get("/search_songs", songHandler.Search)

	// Music style routes
	app.Get("/music_styles", styleHandler.List)
	app.Put("/music_styles", styleHandler.Replace)

	// Artifact streaming routes
	app.Get("/stream_melody/:id", streamHandler.StreamMelody)
	app.Get("/stream_voice/:id", streamHandler.StreamVoice)
	app.Get("/stream_song/:id", streamHandler.StreamSong)
	app.Get("/show_image/:id", streamHandler.ShowImage)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:songId", websocket.New(func(c *websocket.Conn) {
		songID := c.Params("songId")
		hub.HandleConnection(c, songID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, songStore, styleStore, searchIndex, logStore, blobStore, melodyClient, voiceClient, coverClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func seedStyles(ctx context.Context, styles *store.StyleStore) {
	existing, err := styles.List(ctx)
	if err != nil {
		log.Printf("Warning: could not read style catalog: %v", err)
		return
	}
	if len(existing) > 0 {
		return
	}
	if _, err := styles.Replace(ctx, defaultStyles); err != nil {
		log.Printf("Warning: could not seed style catalog: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	songStore *store.SongStore,
	styleStore *store.StyleStore,
	searchIndex *store.SearchIndex,
	logStore *store.LogStore,
	blobStore client.BlobStore,
	melodyClient *client.MelodyClient,
	voiceClient *client.VoiceClient,
	coverClient *client.CoverClient,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Pipeline.Concurrency,
			Queues: map[string]int{
				cfg.Pipeline.Queue: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	runner := pipeline.NewRunner(&pipeline.Deps{
		Songs:  songStore,
		Styles: styleStore,
		Blobs:  blobStore,
		Search: searchIndex,
		Logs:   logStore,
		Melody: melodyClient,
		Voice:  voiceClient,
		Cover:  coverClient,
	})
	pipelineWorker := worker.NewPipelineWorker(runner, songStore, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypePipeline, pipelineWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"code":    code,
		"message": message,
		"data":    nil,
	})
}
