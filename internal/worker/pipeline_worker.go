package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/lyricwave/api/internal/model"
	"github.com/lyricwave/api/internal/pipeline"
	"github.com/lyricwave/api/internal/service"
	"github.com/lyricwave/api/internal/websocket"
)

// PipelineWorker consumes pipeline tasks and drives the stage runner.
type PipelineWorker struct {
	runner *pipeline.Runner
	songs  pipeline.SongStore
	hub    *websocket.Hub
}

// NewPipelineWorker creates a new pipeline worker
func NewPipelineWorker(runner *pipeline.Runner, songs pipeline.SongStore, hub *websocket.Hub) *PipelineWorker {
	return &PipelineWorker{
		runner: runner,
		songs:  songs,
		hub:    hub,
	}
}

// ProcessTask handles one pipeline run task
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.PipelineTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal pipeline payload: %w", err)
	}

	songID := payload.SongID
	log.Printf("Starting pipeline for song %s", songID)

	err := w.runner.Run(ctx, songID, func(stage string, status model.SongStatus, progress int) {
		if w.hub != nil && stage != "" {
			w.hub.BroadcastProgress(songID, stage, status, progress)
		}
	})
	if err != nil {
		var stageErr *pipeline.StageError
		stage := ""
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		w.recordFailure(ctx, songID, err)
		if w.hub != nil {
			w.hub.BroadcastError(songID, stage, err.Error())
		}
		log.Printf("Pipeline failed for song %s: %v", songID, err)
		return err
	}

	if w.hub != nil {
		w.hub.BroadcastComplete(songID)
	}
	log.Printf("Pipeline completed for song %s", songID)
	return nil
}

// recordFailure stores the run error on the song record. The status is
// left at the last completed stage so a re-submission can resume from
// there.
func (w *PipelineWorker) recordFailure(ctx context.Context, songID string, runErr error) {
	if w.songs == nil {
		return
	}
	song, err := w.songs.FindByID(ctx, songID)
	if err != nil {
		log.Printf("Failed to load song %s for failure record: %v", songID, err)
		return
	}
	msg := runErr.Error()
	song.Error = &msg
	if err := w.songs.Update(ctx, song); err != nil {
		log.Printf("Failed to record pipeline error for song %s: %v", songID, err)
	}
}
