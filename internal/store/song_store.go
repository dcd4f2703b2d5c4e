package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/lyricwave/api/internal/model"
)

var (
	ErrSongNotFound   = errors.New("song not found")
	ErrDuplicateTitle = errors.New("a song with the same title already exists")
)

const (
	songKeyPrefix  = "song:"
	titleKeyPrefix = "song:title:"
	createdZSetKey = "songs:created"
)

// SongStore keeps one JSON document per song in Redis, plus a creation-time
// sorted set for pagination and per-title keys for duplicate detection.
// Updates are whole-document last-write-wins; the pipeline guarantees at
// most one writer per song at a time.
type SongStore struct {
	redis *redis.Client
}

func NewSongStore(redisClient *redis.Client) *SongStore {
	return &SongStore{redis: redisClient}
}

func songKey(id string) string { return songKeyPrefix + id }

func titleKey(title string) string {
	return titleKeyPrefix + strings.ToLower(strings.TrimSpace(title))
}

// Insert persists a new song record. Fails with ErrDuplicateTitle if a
// song with the same title (case-insensitive) already exists.
func (s *SongStore) Insert(ctx context.Context, song *model.Song) error {
	ok, err := s.redis.SetNX(ctx, titleKey(song.Title), song.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve title: %w", err)
	}
	if !ok {
		return ErrDuplicateTitle
	}

	data, err := json.Marshal(song)
	if err != nil {
		return fmt.Errorf("failed to marshal song: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, songKey(song.ID), data, 0)
	pipe.ZAdd(ctx, createdZSetKey, redis.Z{
		Score:  float64(song.CreatedAt.UnixNano()),
		Member: song.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		// Release the title reservation so a retry is possible.
		s.redis.Del(ctx, titleKey(song.Title))
		return fmt.Errorf("failed to save song: %w", err)
	}
	return nil
}

func (s *SongStore) FindByID(ctx context.Context, id string) (*model.Song, error) {
	data, err := s.redis.Get(ctx, songKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("failed to load song: %w", err)
	}

	var song model.Song
	if err := json.Unmarshal(data, &song); err != nil {
		return nil, fmt.Errorf("failed to unmarshal song: %w", err)
	}
	return &song, nil
}

// Update overwrites the stored document for an existing song.
func (s *SongStore) Update(ctx context.Context, song *model.Song) error {
	exists, err := s.redis.Exists(ctx, songKey(song.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check song existence: %w", err)
	}
	if exists == 0 {
		return ErrSongNotFound
	}

	data, err := json.Marshal(song)
	if err != nil {
		return fmt.Errorf("failed to marshal song: %w", err)
	}
	if err := s.redis.Set(ctx, songKey(song.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}
	return nil
}

// List returns songs in descending creation order. Pages are 1-based.
func (s *SongStore) List(ctx context.Context, page, perPage int) ([]*model.Song, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	start := int64((page - 1) * perPage)
	stop := start + int64(perPage) - 1

	ids, err := s.redis.ZRevRange(ctx, createdZSetKey, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	songs := make([]*model.Song, 0, len(ids))
	for _, id := range ids {
		song, err := s.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSongNotFound) {
				continue // deleted between range and get
			}
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, nil
}

// Delete removes the song document together with its title reservation
// and pagination entry. Artifacts in the blob store are left in place.
func (s *SongStore) Delete(ctx context.Context, id string) error {
	song, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, songKey(id))
	pipe.Del(ctx, titleKey(song.Title))
	pipe.ZRem(ctx, createdZSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	return nil
}
