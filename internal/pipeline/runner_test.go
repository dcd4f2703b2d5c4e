package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyricwave/api/internal/audio"
	"github.com/lyricwave/api/internal/model"
)

type fakeSongStore struct {
	songs map[string]*model.Song
}

func (f *fakeSongStore) FindByID(ctx context.Context, id string) (*model.Song, error) {
	song, ok := f.songs[id]
	if !ok {
		return nil, errors.New("song not found")
	}
	copied := *song
	return &copied, nil
}

func (f *fakeSongStore) Update(ctx context.Context, song *model.Song) error {
	copied := *song
	f.songs[song.ID] = &copied
	return nil
}

type fakeStyleStore struct {
	styles map[string]*model.MusicStyle
}

func (f *fakeStyleStore) FindByID(ctx context.Context, id string) (*model.MusicStyle, error) {
	style, ok := f.styles[id]
	if !ok {
		return nil, errors.New("style not found")
	}
	return style, nil
}

type fakeBlobStore struct {
	blobs map[string][]byte
}

func (f *fakeBlobStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeBlobStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeSearchIndex struct {
	indexed map[string]string
	err     error
}

func (f *fakeSearchIndex) Index(ctx context.Context, songID, text string) error {
	if f.err != nil {
		return f.err
	}
	f.indexed[songID] = text
	return nil
}

type fakeMelody struct{ err error }

func (f *fakeMelody) GenerateMelody(ctx context.Context, text, style string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return audio.EncodeWAV(audio.NewTone(440, 32000, 1, 200*time.Millisecond)), nil
}

type fakeVoice struct{ err error }

func (f *fakeVoice) GenerateVoice(ctx context.Context, text string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return audio.EncodeWAV(audio.NewTone(220, 24000, 1, 100*time.Millisecond)), nil
}

type fakeCover struct{ err error }

func (f *fakeCover) GenerateCover(ctx context.Context, text string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

func newTestDeps() (*Deps, *fakeSongStore, *fakeBlobStore, *fakeSearchIndex) {
	songs := &fakeSongStore{songs: make(map[string]*model.Song)}
	blobs := &fakeBlobStore{blobs: make(map[string][]byte)}
	search := &fakeSearchIndex{indexed: make(map[string]string)}
	deps := &Deps{
		Songs:  songs,
		Styles: &fakeStyleStore{styles: map[string]*model.MusicStyle{"style-1": {ID: "style-1", Name: "Pop"}}},
		Blobs:  blobs,
		Search: search,
		Melody: &fakeMelody{},
		Voice:  &fakeVoice{},
		Cover:  &fakeCover{},
	}
	return deps, songs, blobs, search
}

func seedSong(songs *fakeSongStore) *model.Song {
	song := &model.Song{
		ID:           "song-1",
		Title:        "Evening Rain",
		Text:         "soft rain over quiet streets",
		MusicStyleID: "style-1",
		Status:       model.SongStatusCreated,
		CreatedAt:    time.Now(),
	}
	songs.songs[song.ID] = song
	return song
}

func TestRunner_HappyPath(t *testing.T) {
	deps, songs, blobs, search := newTestDeps()
	seedSong(songs)

	var stagesSeen []string
	progress := func(stage string, status model.SongStatus, pct int) {
		stagesSeen = append(stagesSeen, stage)
	}

	err := NewRunner(deps).Run(context.Background(), "song-1", progress)
	require.NoError(t, err)

	final := songs.songs["song-1"]
	assert.Equal(t, model.SongStatusIndexed, final.Status)
	assert.Equal(t, "song-1_melody.wav", final.MelodyFileName)
	assert.Equal(t, "song-1_voice.wav", final.VoiceFileName)
	assert.Equal(t, "song-1_song.wav", final.FinalSongName)
	assert.Equal(t, "song-1_cover.jpg", final.SongCoverName)
	assert.NotNil(t, final.SongIndexedAt)

	// Every artifact landed in the blob store
	for _, key := range []string{"song-1_melody.wav", "song-1_voice.wav", "song-1_song.wav", "song-1_cover.jpg"} {
		assert.NotEmpty(t, blobs.blobs[key], "artifact %s", key)
	}

	// The combined track decodes and carries the melody's format
	combined, err := audio.DecodeWAV(blobs.blobs["song-1_song.wav"])
	require.NoError(t, err)
	assert.Equal(t, 32000, combined.SampleRate)
	assert.Equal(t, 1, combined.Channels)

	// Lyrics reached the search index
	assert.Equal(t, "soft rain over quiet streets", search.indexed["song-1"])

	// Progress fired once per stage plus the final completion call
	assert.Equal(t, []string{"generate_melody", "generate_voice", "combine_audio", "generate_cover", "index_song", ""}, stagesSeen)
}

func TestRunner_StageFailureStopsRun(t *testing.T) {
	deps, songs, blobs, _ := newTestDeps()
	seedSong(songs)
	deps.Voice = &fakeVoice{err: errors.New("tts unavailable")}

	err := NewRunner(deps).Run(context.Background(), "song-1", nil)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "generate_voice", stageErr.Stage)

	// The record keeps the last successful stage's status
	final := songs.songs["song-1"]
	assert.Equal(t, model.SongStatusMelodyGenerated, final.Status)
	assert.NotEmpty(t, final.MelodyFileName)
	assert.Empty(t, final.VoiceFileName)

	// Later stages never produced artifacts
	assert.Empty(t, blobs.blobs["song-1_voice.wav"])
	assert.Empty(t, blobs.blobs["song-1_song.wav"])
	assert.Empty(t, blobs.blobs["song-1_cover.jpg"])
}

func TestRunner_FirstStageFailureLeavesRecordUntouched(t *testing.T) {
	deps, songs, _, _ := newTestDeps()
	seedSong(songs)
	deps.Melody = &fakeMelody{err: errors.New("model offline")}

	err := NewRunner(deps).Run(context.Background(), "song-1", nil)
	require.Error(t, err)

	final := songs.songs["song-1"]
	assert.Equal(t, model.SongStatusCreated, final.Status)
	assert.Empty(t, final.MelodyFileName)
}

func TestRunner_IndexFailureKeepsCoverStatus(t *testing.T) {
	deps, songs, _, search := newTestDeps()
	seedSong(songs)
	search.err = errors.New("index write refused")

	err := NewRunner(deps).Run(context.Background(), "song-1", nil)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "index_song", stageErr.Stage)

	final := songs.songs["song-1"]
	assert.Equal(t, model.SongStatusCoverGenerated, final.Status)
	assert.Nil(t, final.SongIndexedAt)
}

func TestRunner_MissingSong(t *testing.T) {
	deps, _, _, _ := newTestDeps()

	err := NewRunner(deps).Run(context.Background(), "no-such-song", nil)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "generate_melody", stageErr.Stage)
}

func TestRunner_MissingPrecedentArtifact(t *testing.T) {
	deps, songs, _, _ := newTestDeps()

	// A record that claims voice was generated but never stored a melody
	song := &model.Song{
		ID:     "song-2",
		Text:   "lost artifacts",
		Status: model.SongStatusVoiceGenerated,
	}
	songs.songs[song.ID] = song

	def := Stages()[2] // combine_audio
	_, err := NewRunner(deps).runStage(context.Background(), def, "song-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing precedent artifact")
}

func TestRunner_DeletedStyleDoesNotFailMelody(t *testing.T) {
	deps, songs, _, _ := newTestDeps()
	song := seedSong(songs)
	song.MusicStyleID = "gone-style"

	err := NewRunner(deps).Run(context.Background(), "song-1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SongStatusIndexed, songs.songs["song-1"].Status)
}
