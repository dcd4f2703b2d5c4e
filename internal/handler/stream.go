package handler

import (
	"bufio"
	"errors"
	"io"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/lyricwave/api/internal/client"
	"github.com/lyricwave/api/internal/model"
	"github.com/lyricwave/api/internal/store"
	"github.com/lyricwave/api/pkg/response"
)

// streamChunkSize bounds per-request memory while proxying blob bytes.
const streamChunkSize = 1024

// StreamHandler proxies stored artifacts to HTTP clients.
type StreamHandler struct {
	songs *store.SongStore
	blobs client.BlobStore
}

func NewStreamHandler(songs *store.SongStore, blobs client.BlobStore) *StreamHandler {
	return &StreamHandler{
		songs: songs,
		blobs: blobs,
	}
}

// StreamMelody handles GET /stream_melody/:id
func (h *StreamHandler) StreamMelody(c *fiber.Ctx) error {
	return h.streamArtifact(c, func(song *model.Song) string {
		return song.MelodyFileName
	}, "audio/wav", "melody.wav")
}

// StreamVoice handles GET /stream_voice/:id
func (h *StreamHandler) StreamVoice(c *fiber.Ctx) error {
	return h.streamArtifact(c, func(song *model.Song) string {
		return song.VoiceFileName
	}, "audio/wav", "voice.wav")
}

// StreamSong handles GET /stream_song/:id
func (h *StreamHandler) StreamSong(c *fiber.Ctx) error {
	return h.streamArtifact(c, func(song *model.Song) string {
		return song.FinalSongName
	}, "audio/wav", "song.wav")
}

// ShowImage handles GET /show_image/:id
func (h *StreamHandler) ShowImage(c *fiber.Ctx) error {
	return h.streamArtifact(c, func(song *model.Song) string {
		return song.SongCoverName
	}, "image/jpeg", "cover.jpg")
}

// streamArtifact resolves the song, looks up the artifact reference the
// selector picks and forwards the blob in fixed-size chunks. A song
// whose stage has not completed yet answers 404 like a missing song.
func (h *StreamHandler) streamArtifact(c *fiber.Ctx, pick func(*model.Song) string, contentType, filename string) error {
	songID := c.Params("id")
	if songID == "" {
		return response.ValidationError(c, "Song ID is required")
	}

	song, err := h.songs.FindByID(c.Context(), songID)
	if err != nil {
		if errors.Is(err, store.ErrSongNotFound) {
			return response.NotFound(c, "Song not found")
		}
		return response.ServiceError(c)
	}

	key := pick(song)
	if key == "" {
		return response.NotFound(c, "Artifact not generated yet")
	}

	body, err := h.blobs.Download(c.Context(), key)
	if err != nil {
		// A reference whose blob is gone answers like one never written.
		if errors.Is(err, client.ErrBlobNotFound) {
			return response.NotFound(c, "Artifact not found")
		}
		return response.ServiceError(c)
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set("Accept-Ranges", "none")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer body.Close()
		buf := make([]byte, streamChunkSize)
		if _, err := io.CopyBuffer(w, body, buf); err != nil {
			log.Printf("artifact stream interrupted for song %s: %v", songID, err)
		}
	}))
	return nil
}
