package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/lyricwave/api/internal/model"
	"github.com/lyricwave/api/internal/service"
	"github.com/lyricwave/api/internal/store"
	"github.com/lyricwave/api/pkg/response"
)

type SongHandler struct {
	service   *service.SongService
	validator *validator.Validate
}

func NewSongHandler(svc *service.SongService, v *validator.Validate) *SongHandler {
	return &SongHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /generate_song: validates the request, persists
// the song record and triggers the pipeline.
func (h *SongHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateSongRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Missing title or text parameters: "+formatValidationErrors(err))
	}

	result, err := h.service.CreateSong(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTextTooLong):
			return response.ValidationError(c, err.Error())
		case errors.Is(err, store.ErrStyleNotFound):
			return response.ValidationError(c, "Invalid music style ID. The specified style does not exist.")
		case errors.Is(err, store.ErrDuplicateTitle):
			return response.Conflict(c, err.Error())
		}
		return response.ServiceError(c)
	}

	return response.Success(c, "Song generated and scheduled successfully.", fiber.Map{"song_info": result})
}

// Get handles GET /songs/:id
func (h *SongHandler) Get(c *fiber.Ctx) error {
	songID := c.Params("id")
	if songID == "" {
		return response.ValidationError(c, "Song ID is required")
	}

	result, err := h.service.GetSong(c.Context(), songID)
	if err != nil {
		if errors.Is(err, store.ErrSongNotFound) {
			return response.NotFound(c, "Song not found")
		}
		return response.ServiceError(c)
	}

	return response.Success(c, "Song retrieved successfully", result)
}

// List handles GET /songs with page/per_page pagination, newest first.
func (h *SongHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 10)

	songs, err := h.service.ListSongs(c.Context(), page, perPage)
	if err != nil {
		return response.ServiceError(c)
	}

	return response.Success(c, "Songs retrieved successfully.", fiber.Map{"songs": songs})
}

// Delete handles DELETE /songs/:id
func (h *SongHandler) Delete(c *fiber.Ctx) error {
	songID := c.Params("id")
	if songID == "" {
		return response.ValidationError(c, "Song ID is required")
	}

	result, err := h.service.DeleteSong(c.Context(), songID)
	if err != nil {
		if errors.Is(err, store.ErrSongNotFound) {
			return response.NotFound(c, "Song not found")
		}
		return response.ServiceError(c)
	}

	return response.Success(c, "Song deleted successfully", fiber.Map{"song_info": result})
}

// Search handles GET /search_songs?q=
func (h *SongHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return response.ValidationError(c, "Missing 'q' parameter in the request.")
	}

	matches, err := h.service.SearchSongs(c.Context(), query)
	if err != nil {
		return response.ServiceError(c)
	}

	return response.Success(c, "Songs retrieved successfully", fiber.Map{"matching_songs": matches})
}

// formatValidationErrors flattens validator errors into one line.
func formatValidationErrors(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}

	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fe.Field()+" failed on "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
