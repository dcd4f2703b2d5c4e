package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/lyricwave/api/internal/client"
	"github.com/lyricwave/api/internal/handler"
	"github.com/lyricwave/api/internal/middleware"
	"github.com/lyricwave/api/internal/service"
	"github.com/lyricwave/api/internal/store"
)

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	songs   *store.SongStore
	search  *store.SearchIndex
	blobs   client.BlobStore
	styleID string
}

// setupApp creates a Fiber app identical to main.go but with an
// in-memory blob store and no upstream model endpoints, so all
// generation falls back to the local synthesizers.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost — must be running)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	// Stores
	songStore := store.NewSongStore(redisClient)
	styleStore := store.NewStyleStore(redisClient)
	searchIndex := store.NewSearchIndex(redisClient)
	blobStore := client.NewMemoryStore()

	// Seed a fresh style catalog for this run
	ctx := context.Background()
	styles, err := styleStore.Replace(ctx, []string{"Pop", "Rock", "Jazz"})
	if err != nil {
		t.Fatalf("failed to seed styles: %v", err)
	}

	// Services
	songService := service.NewSongService(songStore, styleStore, searchIndex, asynqClient, "pipeline", "http://localhost:8000")
	styleService := service.NewStyleService(styleStore)

	// Handlers
	songHandler := handler.NewSongHandler(songService, validate)
	styleHandler := handler.NewStyleHandler(styleService, validate)
	streamHandler := handler.NewStreamHandler(songStore, blobStore)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New()

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": time.Now().Unix()})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   redisClient.Ping(c.Context()).Err() == nil,
				"storage": true,
				"melody":  false,
				"voice":   false,
				"cover":   false,
			},
		})
	})

	// Use a very high rate limit so tests don't get blocked
	app.Post("/generate_song", rateLimiter.GenerateLimit(100000), songHandler.Generate)
	app.Get("/songs", songHandler.List)
	app.Get("/songs/:id", songHandler.Get)
	app.Delete("/songs/:id", songHandler.Delete)
	app.Get("/search_songs", songHandler.Search)

	app.Get("/music_styles", styleHandler.List)
	app.Put("/music_styles", styleHandler.Replace)

	app.Get("/stream_melody/:id", streamHandler.StreamMelody)
	app.Get("/stream_voice/:id", streamHandler.StreamVoice)
	app.Get("/stream_song/:id", streamHandler.StreamSong)
	app.Get("/show_image/:id", streamHandler.ShowImage)

	return &testApp{
		app:     app,
		songs:   songStore,
		search:  searchIndex,
		blobs:   blobStore,
		styleID: styles[0].ID,
	}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// envelopeData extracts the data object from a response envelope.
func envelopeData(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'data' object in envelope, got %v", result["data"])
	}
	return data
}
