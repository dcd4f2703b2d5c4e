package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Melody    ModelConfig
	Voice     ModelConfig
	Cover     ModelConfig
	RateLimit RateLimitConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	PublicURL string // base used when deriving stream URLs
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig points at an S3-compatible object store (MinIO, R2).
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// ModelConfig describes one external generation endpoint.
type ModelConfig struct {
	BaseURL string
	APIKey  string
	Timeout int // seconds
}

type RateLimitConfig struct {
	GeneratePerHour int
}

type PipelineConfig struct {
	Queue       string
	Concurrency int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")
	readSecret("MELODY_API_KEY")
	readSecret("VOICE_API_KEY")
	readSecret("COVER_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.public_url", "PUBLIC_URL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.region", "STORAGE_REGION")
	_ = viper.BindEnv("storage.use_ssl", "STORAGE_USE_SSL")
	_ = viper.BindEnv("melody.base_url", "MELODY_BASE_URL")
	_ = viper.BindEnv("melody.api_key", "MELODY_API_KEY")
	_ = viper.BindEnv("melody.timeout", "MELODY_TIMEOUT")
	_ = viper.BindEnv("voice.base_url", "VOICE_BASE_URL")
	_ = viper.BindEnv("voice.api_key", "VOICE_API_KEY")
	_ = viper.BindEnv("voice.timeout", "VOICE_TIMEOUT")
	_ = viper.BindEnv("cover.base_url", "COVER_BASE_URL")
	_ = viper.BindEnv("cover.api_key", "COVER_API_KEY")
	_ = viper.BindEnv("cover.timeout", "COVER_TIMEOUT")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "RATELIMIT_GENERATE_PER_HOUR")
	_ = viper.BindEnv("pipeline.queue", "PIPELINE_QUEUE")
	_ = viper.BindEnv("pipeline.concurrency", "PIPELINE_CONCURRENCY")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.public_url", "")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.bucket_name", "lyricwave")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.use_ssl", false)
	viper.SetDefault("melody.timeout", 300)
	viper.SetDefault("voice.timeout", 120)
	viper.SetDefault("cover.timeout", 180)
	viper.SetDefault("ratelimit.generate_per_hour", 20)
	viper.SetDefault("pipeline.queue", "pipeline")
	viper.SetDefault("pipeline.concurrency", 4)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			PublicURL: viper.GetString("server.public_url"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Endpoint:        viper.GetString("storage.endpoint"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			Region:          viper.GetString("storage.region"),
			UseSSL:          viper.GetBool("storage.use_ssl"),
		},
		Melody: ModelConfig{
			BaseURL: viper.GetString("melody.base_url"),
			APIKey:  viper.GetString("melody.api_key"),
			Timeout: viper.GetInt("melody.timeout"),
		},
		Voice: ModelConfig{
			BaseURL: viper.GetString("voice.base_url"),
			APIKey:  viper.GetString("voice.api_key"),
			Timeout: viper.GetInt("voice.timeout"),
		},
		Cover: ModelConfig{
			BaseURL: viper.GetString("cover.base_url"),
			APIKey:  viper.GetString("cover.api_key"),
			Timeout: viper.GetInt("cover.timeout"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
		},
		Pipeline: PipelineConfig{
			Queue:       viper.GetString("pipeline.queue"),
			Concurrency: viper.GetInt("pipeline.concurrency"),
		},
	}

	return cfg, nil
}
