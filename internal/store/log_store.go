package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lyricwave/api/internal/model"
)

const executionLogKey = "pipeline:execution_logs"

// LogStore appends pipeline execution log entries to a Redis list. The
// entries are an operator-facing side channel; nothing in the pipeline
// reads them back.
type LogStore struct {
	redis *redis.Client
}

func NewLogStore(redisClient *redis.Client) *LogStore {
	return &LogStore{redis: redisClient}
}

// Append records a log entry. Failures are reported on the process log
// but never fail the calling stage.
func (s *LogStore) Append(ctx context.Context, taskID string, level model.LogLevel, message string) {
	entry := model.LogEntry{
		TaskID:    taskID,
		Level:     level,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Message:   message,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}
	if err := s.redis.RPush(ctx, executionLogKey, data).Err(); err != nil {
		log.Printf("failed to write log entry: %v", err)
	}
}
