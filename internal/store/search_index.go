package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/redis/go-redis/v9"
)

const termKeyPrefix = "search:term:"

// SearchIndex is an inverted index over lyric-text tokens, kept in Redis
// sets. Index is called by the terminal pipeline stage; Search resolves a
// free-text query to the ids of songs whose lyric text contains any of
// the query's tokens.
type SearchIndex struct {
	redis *redis.Client
}

func NewSearchIndex(redisClient *redis.Client) *SearchIndex {
	return &SearchIndex{redis: redisClient}
}

// Tokenize lowercases the text and splits it on any non-letter,
// non-digit rune, dropping empty tokens and duplicates.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}

func (s *SearchIndex) Index(ctx context.Context, songID, text string) error {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	pipe := s.redis.TxPipeline()
	for _, tok := range tokens {
		pipe.SAdd(ctx, termKeyPrefix+tok, songID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index song text: %w", err)
	}
	return nil
}

// Search returns the ids of songs matching any token of the query.
func (s *SearchIndex) Search(ctx context.Context, query string) ([]string, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	keys := make([]string, len(tokens))
	for i, tok := range tokens {
		keys[i] = termKeyPrefix + tok
	}

	ids, err := s.redis.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	return ids, nil
}
