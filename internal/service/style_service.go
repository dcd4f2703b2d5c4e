package service

import (
	"context"

	"github.com/lyricwave/api/internal/model"
	"github.com/lyricwave/api/internal/store"
)

// StyleService handles music style reference data.
type StyleService struct {
	styles *store.StyleStore
}

func NewStyleService(styles *store.StyleStore) *StyleService {
	return &StyleService{styles: styles}
}

func (s *StyleService) ListStyles(ctx context.Context) ([]*model.MusicStyle, error) {
	return s.styles.List(ctx)
}

// ReplaceStyles swaps the whole style set for the given names.
func (s *StyleService) ReplaceStyles(ctx context.Context, names []string) ([]*model.MusicStyle, error) {
	return s.styles.Replace(ctx, names)
}
