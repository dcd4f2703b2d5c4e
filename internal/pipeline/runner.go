package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lyricwave/api/internal/model"
)

// ProgressFunc is called once per stage as the runner reaches it.
// progress is a percentage over the whole sequence.
type ProgressFunc func(stage string, status model.SongStatus, progress int)

// Runner executes the stage sequence for one song. Stages run strictly
// in order; the first failure stops the run and later stages are never
// invoked. The runner does not retry; re-submission is an external
// decision.
type Runner struct {
	deps   *Deps
	stages []Definition
}

func NewRunner(deps *Deps) *Runner {
	return &Runner{deps: deps, stages: Stages()}
}

// Run drives the song through every stage, propagating the song id from
// one stage to the next. On failure the song record keeps the status
// written by the last successful stage.
func (r *Runner) Run(ctx context.Context, songID string, progress ProgressFunc) error {
	id := songID
	for i, def := range r.stages {
		if progress != nil {
			progress(def.Name, def.Status, i*100/len(r.stages))
		}

		next, err := r.runStage(ctx, def, id)
		if err != nil {
			r.log(ctx, def, model.LogLevelError, fmt.Sprintf("stage failed for song %s: %v", id, err))
			return &StageError{Stage: def.Name, Err: err}
		}
		id = next
	}

	if progress != nil {
		progress("", model.SongStatusIndexed, 100)
	}
	return nil
}

// runStage executes one stage and returns the song id for the next
// stage to consume. The song record is only written after the transform
// and artifact upload both succeeded, so a failed stage leaves the
// record exactly as the previous stage left it.
func (r *Runner) runStage(ctx context.Context, def Definition, songID string) (string, error) {
	d := r.deps
	r.log(ctx, def, model.LogLevelInfo, fmt.Sprintf("starting for song %s", songID))

	song, err := d.Songs.FindByID(ctx, songID)
	if err != nil {
		return "", err
	}

	inputs := make(map[Artifact][]byte, len(def.Requires))
	for _, a := range def.Requires {
		key := artifactRef(song, a)
		if key == "" {
			return "", fmt.Errorf("missing precedent artifact %s", a)
		}
		data, err := r.fetchArtifact(ctx, key)
		if err != nil {
			return "", err
		}
		inputs[a] = data
	}

	output, err := def.Transform(ctx, d, song, inputs)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if def.Produces != ArtifactNone {
		key := song.ID + def.KeySuffix
		if err := d.Blobs.Upload(ctx, key, bytes.NewReader(output), int64(len(output)), def.ContentType); err != nil {
			return "", fmt.Errorf("failed to store artifact %s: %w", key, err)
		}
		setArtifactRef(song, def.Produces, key, now)
		r.log(ctx, def, model.LogLevelInfo, fmt.Sprintf("stored artifact %s (%d bytes)", key, len(output)))
	} else {
		song.SongIndexedAt = &now
	}

	song.Status = def.Status
	if err := d.Songs.Update(ctx, song); err != nil {
		return "", fmt.Errorf("failed to update song record: %w", err)
	}

	r.log(ctx, def, model.LogLevelInfo, fmt.Sprintf("completed for song %s, status %s", songID, def.Status))
	return song.ID, nil
}

func (r *Runner) fetchArtifact(ctx context.Context, key string) ([]byte, error) {
	rc, err := r.deps.Blobs.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", key, err)
	}
	return data, nil
}

func (r *Runner) log(ctx context.Context, def Definition, level model.LogLevel, message string) {
	if r.deps.Logs == nil {
		return
	}
	r.deps.Logs.Append(ctx, "music_generation_pipeline."+def.Name, level, message)
}
