package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lyricwave/api/internal/model"
)

var ErrStyleNotFound = errors.New("music style not found")

const (
	styleKeyPrefix = "style:"
	styleSetKey    = "styles:all"
)

// StyleStore keeps the music style reference data in Redis. Styles are
// immutable after creation except via Replace.
type StyleStore struct {
	redis *redis.Client
}

func NewStyleStore(redisClient *redis.Client) *StyleStore {
	return &StyleStore{redis: redisClient}
}

func styleKey(id string) string { return styleKeyPrefix + id }

func (s *StyleStore) FindByID(ctx context.Context, id string) (*model.MusicStyle, error) {
	data, err := s.redis.Get(ctx, styleKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrStyleNotFound
		}
		return nil, fmt.Errorf("failed to load style: %w", err)
	}

	var style model.MusicStyle
	if err := json.Unmarshal(data, &style); err != nil {
		return nil, fmt.Errorf("failed to unmarshal style: %w", err)
	}
	return &style, nil
}

func (s *StyleStore) List(ctx context.Context) ([]*model.MusicStyle, error) {
	ids, err := s.redis.SMembers(ctx, styleSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list styles: %w", err)
	}

	styles := make([]*model.MusicStyle, 0, len(ids))
	for _, id := range ids {
		style, err := s.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrStyleNotFound) {
				continue
			}
			return nil, err
		}
		styles = append(styles, style)
	}
	return styles, nil
}

// Replace removes every existing style and inserts the given names as
// fresh documents, returning the new styles in insertion order.
func (s *StyleStore) Replace(ctx context.Context, names []string) ([]*model.MusicStyle, error) {
	existing, err := s.redis.SMembers(ctx, styleSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load existing styles: %w", err)
	}

	pipe := s.redis.TxPipeline()
	for _, id := range existing {
		pipe.Del(ctx, styleKey(id))
	}
	pipe.Del(ctx, styleSetKey)

	styles := make([]*model.MusicStyle, 0, len(names))
	for _, name := range names {
		style := &model.MusicStyle{ID: uuid.New().String(), Name: name}
		data, err := json.Marshal(style)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal style: %w", err)
		}
		pipe.Set(ctx, styleKey(style.ID), data, 0)
		pipe.SAdd(ctx, styleSetKey, style.ID)
		styles = append(styles, style)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to replace styles: %w", err)
	}
	return styles, nil
}
