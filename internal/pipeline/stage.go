// Package pipeline implements the song generation pipeline: a fixed
// sequence of stages that each read prior-stage outputs through the
// song record, call one generation or transform function, write one new
// artifact to the blob store and advance the record's status.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lyricwave/api/internal/model"
)

// SongStore is the slice of the document store a stage needs.
type SongStore interface {
	FindByID(ctx context.Context, id string) (*model.Song, error)
	Update(ctx context.Context, song *model.Song) error
}

// StyleStore resolves style reference data for the melody prompt.
type StyleStore interface {
	FindByID(ctx context.Context, id string) (*model.MusicStyle, error)
}

// BlobStore is the slice of object storage a stage needs.
type BlobStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// SearchIndexer receives the terminal stage's document.
type SearchIndexer interface {
	Index(ctx context.Context, songID, text string) error
}

// ExecutionLogger records the append-only stage log side channel.
type ExecutionLogger interface {
	Append(ctx context.Context, taskID string, level model.LogLevel, message string)
}

// MelodyGenerator, VoiceGenerator and CoverGenerator mirror the client
// interfaces so stages can be exercised against fakes.
type MelodyGenerator interface {
	GenerateMelody(ctx context.Context, text, style string) ([]byte, error)
}

type VoiceGenerator interface {
	GenerateVoice(ctx context.Context, text string) ([]byte, error)
}

type CoverGenerator interface {
	GenerateCover(ctx context.Context, text string) ([]byte, error)
}

// Deps carries every collaborator a stage may touch, injected at
// construction. Stages hold no global state.
type Deps struct {
	Songs  SongStore
	Styles StyleStore
	Blobs  BlobStore
	Search SearchIndexer
	Logs   ExecutionLogger
	Melody MelodyGenerator
	Voice  VoiceGenerator
	Cover  CoverGenerator
}

// Artifact names a blob-reference field on the song record.
type Artifact string

const (
	ArtifactNone   Artifact = ""
	ArtifactMelody Artifact = "melody_file_name"
	ArtifactVoice  Artifact = "voice_file_name"
	ArtifactSong   Artifact = "final_song_name"
	ArtifactCover  Artifact = "song_cover_name"
)

// TransformFunc performs a stage's single generation or transform call.
// inputs holds the downloaded bytes of every required artifact. The
// returned bytes become the produced artifact; stages that produce no
// artifact (indexing) return nil.
type TransformFunc func(ctx context.Context, d *Deps, song *model.Song, inputs map[Artifact][]byte) ([]byte, error)

// Definition describes one stage: its prerequisites, the artifact it
// produces and the transform that bridges them. All five stages share
// this shape.
type Definition struct {
	Name        string
	Requires    []Artifact
	Produces    Artifact
	KeySuffix   string
	ContentType string
	Status      model.SongStatus
	Transform   TransformFunc
}

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func artifactRef(song *model.Song, a Artifact) string {
	switch a {
	case ArtifactMelody:
		return song.MelodyFileName
	case ArtifactVoice:
		return song.VoiceFileName
	case ArtifactSong:
		return song.FinalSongName
	case ArtifactCover:
		return song.SongCoverName
	}
	return ""
}

func setArtifactRef(song *model.Song, a Artifact, key string, now time.Time) {
	switch a {
	case ArtifactMelody:
		song.MelodyFileName = key
		song.MelodyGeneratedAt = &now
	case ArtifactVoice:
		song.VoiceFileName = key
		song.VoiceGeneratedAt = &now
	case ArtifactSong:
		song.FinalSongName = key
		song.SongCombinedAt = &now
	case ArtifactCover:
		song.SongCoverName = key
		song.CoverGeneratedAt = &now
	}
}
