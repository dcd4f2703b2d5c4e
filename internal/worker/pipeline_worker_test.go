package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyricwave/api/internal/audio"
	"github.com/lyricwave/api/internal/model"
	"github.com/lyricwave/api/internal/pipeline"
	"github.com/lyricwave/api/internal/service"
)

type memSongStore struct {
	songs map[string]*model.Song
}

func (m *memSongStore) FindByID(ctx context.Context, id string) (*model.Song, error) {
	song, ok := m.songs[id]
	if !ok {
		return nil, errors.New("song not found")
	}
	copied := *song
	return &copied, nil
}

func (m *memSongStore) Update(ctx context.Context, song *model.Song) error {
	copied := *song
	m.songs[song.ID] = &copied
	return nil
}

type memStyleStore struct{}

func (m *memStyleStore) FindByID(ctx context.Context, id string) (*model.MusicStyle, error) {
	return &model.MusicStyle{ID: id, Name: "Pop"}, nil
}

type memBlobStore struct {
	blobs map[string][]byte
}

func (m *memBlobStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.blobs[key] = data
	return nil
}

func (m *memBlobStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type memSearchIndex struct{}

func (m *memSearchIndex) Index(ctx context.Context, songID, text string) error {
	return nil
}

type stubMelody struct{ err error }

func (s *stubMelody) GenerateMelody(ctx context.Context, text, style string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return audio.EncodeWAV(audio.NewTone(440, 32000, 1, 100*time.Millisecond)), nil
}

type stubVoice struct{ err error }

func (s *stubVoice) GenerateVoice(ctx context.Context, text string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return audio.EncodeWAV(audio.NewTone(220, 24000, 1, 80*time.Millisecond)), nil
}

type stubCover struct{}

func (s *stubCover) GenerateCover(ctx context.Context, text string) ([]byte, error) {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

func newWorkerFixture(voiceErr error) (*PipelineWorker, *memSongStore) {
	songs := &memSongStore{songs: map[string]*model.Song{
		"song-1": {
			ID:           "song-1",
			Title:        "Evening Rain",
			Text:         "soft rain over quiet streets",
			MusicStyleID: "style-1",
			Status:       model.SongStatusCreated,
			CreatedAt:    time.Now(),
		},
	}}
	runner := pipeline.NewRunner(&pipeline.Deps{
		Songs:  songs,
		Styles: &memStyleStore{},
		Blobs:  &memBlobStore{blobs: make(map[string][]byte)},
		Search: &memSearchIndex{},
		Melody: &stubMelody{},
		Voice:  &stubVoice{err: voiceErr},
		Cover:  &stubCover{},
	})
	return NewPipelineWorker(runner, songs, nil), songs
}

func pipelineTask(t *testing.T, songID string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(service.PipelineTaskPayload{SongID: songID})
	require.NoError(t, err)
	return asynq.NewTask(service.TaskTypePipeline, payload)
}

func TestProcessTask_RecordsRunError(t *testing.T) {
	w, songs := newWorkerFixture(errors.New("tts unavailable"))

	err := w.ProcessTask(context.Background(), pipelineTask(t, "song-1"))
	require.Error(t, err)

	song := songs.songs["song-1"]
	require.NotNil(t, song.Error)
	assert.Contains(t, *song.Error, "tts unavailable")

	// The status stays at the last completed stage.
	assert.Equal(t, model.SongStatusMelodyGenerated, song.Status)
	assert.NotEmpty(t, song.MelodyFileName)
}

func TestProcessTask_SuccessLeavesNoError(t *testing.T) {
	w, songs := newWorkerFixture(nil)

	err := w.ProcessTask(context.Background(), pipelineTask(t, "song-1"))
	require.NoError(t, err)

	song := songs.songs["song-1"]
	assert.Nil(t, song.Error)
	assert.Equal(t, model.SongStatusIndexed, song.Status)
}

func TestProcessTask_BadPayload(t *testing.T) {
	w, _ := newWorkerFixture(nil)

	err := w.ProcessTask(context.Background(), asynq.NewTask(service.TaskTypePipeline, []byte("{")))
	assert.Error(t, err)
}
