package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/lyricwave/api/internal/model"
	"github.com/lyricwave/api/internal/service"
	"github.com/lyricwave/api/pkg/response"
)

type StyleHandler struct {
	service   *service.StyleService
	validator *validator.Validate
}

func NewStyleHandler(svc *service.StyleService, v *validator.Validate) *StyleHandler {
	return &StyleHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /music_styles
func (h *StyleHandler) List(c *fiber.Ctx) error {
	styles, err := h.service.ListStyles(c.Context())
	if err != nil {
		return response.ServiceError(c)
	}

	message := "Music styles retrieved successfully."
	if len(styles) == 0 {
		message = "No music styles found."
	}
	return response.Success(c, message, fiber.Map{"music_styles": styles})
}

// Replace handles PUT /music_styles, swapping the whole style set.
func (h *StyleHandler) Replace(c *fiber.Ctx) error {
	var req model.UpdateStylesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid or missing 'styles' parameter in the request")
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Invalid or missing 'styles' parameter in the request")
	}

	styles, err := h.service.ReplaceStyles(c.Context(), req.Styles)
	if err != nil {
		return response.ServiceError(c)
	}

	ids := make([]string, 0, len(styles))
	for _, style := range styles {
		ids = append(ids, style.ID)
	}
	return response.Success(c, "Music styles updated successfully", fiber.Map{"inserted_ids": ids})
}
