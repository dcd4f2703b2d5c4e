package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/lyricwave/api/internal/model"
	"github.com/lyricwave/api/internal/store"
)

// TaskTypePipeline names the asynq task that runs the generation
// pipeline for one song.
const TaskTypePipeline = "pipeline:run"

var ErrTextTooLong = errors.New("song text exceeds the maximum allowed length (200 characters)")

// PipelineTaskPayload is the asynq payload for a pipeline run.
type PipelineTaskPayload struct {
	SongID string `json:"songId"`
}

// SongRepository is the slice of the song store the service uses.
type SongRepository interface {
	Insert(ctx context.Context, song *model.Song) error
	FindByID(ctx context.Context, id string) (*model.Song, error)
	Update(ctx context.Context, song *model.Song) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, perPage int) ([]*model.Song, error)
}

// StyleFinder resolves music style ids.
type StyleFinder interface {
	FindByID(ctx context.Context, id string) (*model.MusicStyle, error)
}

// SearchStore resolves lyric-text queries to song ids.
type SearchStore interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SongService handles song creation and retrieval. Creating a song
// persists its record and triggers the pipeline via the task queue.
type SongService struct {
	songs       SongRepository
	styles      StyleFinder
	search      SearchStore
	asynqClient TaskEnqueuer
	queue       string
	publicURL   string
}

func NewSongService(
	songs SongRepository,
	styles StyleFinder,
	search SearchStore,
	asynqClient TaskEnqueuer,
	queue string,
	publicURL string,
) *SongService {
	return &SongService{
		songs:       songs,
		styles:      styles,
		search:      search,
		asynqClient: asynqClient,
		queue:       queue,
		publicURL:   publicURL,
	}
}

// CreateSong validates the request, persists a new song record and
// enqueues the pipeline run. If the enqueue itself fails the record is
// rolled back so no orphaned "planned" song remains.
func (s *SongService) CreateSong(ctx context.Context, req *model.GenerateSongRequest) (*model.SongInfo, error) {
	if utf8.RuneCountInString(req.Text) > model.MaxSongTextLength {
		return nil, ErrTextTooLong
	}

	// The style must exist before anything is written.
	if _, err := s.styles.FindByID(ctx, req.MusicStyleID); err != nil {
		return nil, err
	}

	// The planned flags are written with the initial insert, before the
	// enqueue. Once the task is queued the worker owns the record; a
	// facade write landing after the first stage would erase its
	// artifact reference. On enqueue failure the record is deleted, so a
	// planned-but-never-queued song is never observable.
	now := time.Now()
	song := &model.Song{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Text:         req.Text,
		Description:  req.Description,
		Keywords:     req.Keywords,
		MusicStyleID: req.MusicStyleID,
		Status:       model.SongStatusCreated,
		CreatedAt:    now,
		Planned:      true,
		PlannedAt:    &now,
	}

	if err := s.songs.Insert(ctx, song); err != nil {
		return nil, err
	}

	task, err := newPipelineTask(song.ID)
	if err != nil {
		s.rollback(ctx, song.ID)
		return nil, fmt.Errorf("failed to create pipeline task: %w", err)
	}

	// MaxRetry 0: a failed stage is not retried automatically, re-running
	// the pipeline is an explicit re-submission.
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(s.queue),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		s.rollback(ctx, song.ID)
		return nil, fmt.Errorf("failed to trigger pipeline: %w", err)
	}

	return s.hydrate(ctx, song), nil
}

func (s *SongService) rollback(ctx context.Context, songID string) {
	if err := s.songs.Delete(ctx, songID); err != nil {
		log.Printf("failed to roll back song %s: %v", songID, err)
	}
}

// GetSong returns one song with derived stream URLs.
func (s *SongService) GetSong(ctx context.Context, id string) (*model.SongInfo, error) {
	song, err := s.songs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, song), nil
}

// ListSongs returns songs paginated descending by creation time.
func (s *SongService) ListSongs(ctx context.Context, page, perPage int) ([]*model.SongInfo, error) {
	songs, err := s.songs.List(ctx, page, perPage)
	if err != nil {
		return nil, err
	}

	infos := make([]*model.SongInfo, 0, len(songs))
	for _, song := range songs {
		infos = append(infos, s.hydrate(ctx, song))
	}
	return infos, nil
}

// DeleteSong removes the song record and returns the deleted song's
// info. Blobs and search entries are left in place.
func (s *SongService) DeleteSong(ctx context.Context, id string) (*model.SongInfo, error) {
	song, err := s.songs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.songs.Delete(ctx, id); err != nil {
		return nil, err
	}
	return s.hydrate(ctx, song), nil
}

// SearchSongs resolves a lyric-text query through the search index and
// rehydrates the matching records. Ids whose record no longer exists
// are skipped.
func (s *SongService) SearchSongs(ctx context.Context, query string) ([]*model.SongInfo, error) {
	ids, err := s.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	matches := make([]*model.SongInfo, 0, len(ids))
	for _, id := range ids {
		song, err := s.songs.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrSongNotFound) {
				continue
			}
			return nil, err
		}
		matches = append(matches, s.hydrate(ctx, song))
	}
	return matches, nil
}

func (s *SongService) hydrate(ctx context.Context, song *model.Song) *model.SongInfo {
	styleName := "Unknown"
	if style, err := s.styles.FindByID(ctx, song.MusicStyleID); err == nil {
		styleName = style.Name
	}

	return &model.SongInfo{
		SongInfoID:  song.ID,
		SongTitle:   song.Title,
		SongText:    song.Text,
		Description: song.Description,
		Keywords:    song.Keywords,
		Status:      song.Status,
		CreatedAt:   song.CreatedAt,
		MusicStyle:  styleName,
		MelodyURL:   fmt.Sprintf("%s/stream_melody/%s", s.publicURL, song.ID),
		VoiceURL:    fmt.Sprintf("%s/stream_voice/%s", s.publicURL, song.ID),
		SongURL:     fmt.Sprintf("%s/stream_song/%s", s.publicURL, song.ID),
		ImageURL:    fmt.Sprintf("%s/show_image/%s", s.publicURL, song.ID),
	}
}

func newPipelineTask(songID string) (*asynq.Task, error) {
	data, err := json.Marshal(PipelineTaskPayload{SongID: songID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePipeline, data), nil
}
