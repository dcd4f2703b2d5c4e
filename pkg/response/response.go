package response

import "github.com/gofiber/fiber/v2"

// Envelope is the body returned by every non-streaming endpoint.
type Envelope struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func write(c *fiber.Ctx, status string, code int, message string, data interface{}) error {
	return c.Status(code).JSON(Envelope{
		Status:  status,
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return write(c, "success", fiber.StatusOK, message, data)
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return write(c, "success", fiber.StatusCreated, message, data)
}

func ValidationError(c *fiber.Ctx, message string) error {
	return write(c, "error", fiber.StatusBadRequest, message, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	return write(c, "error", fiber.StatusNotFound, message, nil)
}

func Conflict(c *fiber.Ctx, message string) error {
	return write(c, "error", fiber.StatusConflict, message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return write(c, "error", fiber.StatusTooManyRequests, "Rate limit exceeded", nil)
}

// ServiceError reports an upstream or internal failure without leaking
// the underlying error to the client.
func ServiceError(c *fiber.Ctx) error {
	return write(c, "error", fiber.StatusInternalServerError, "An internal server error occurred", nil)
}

func UpstreamError(c *fiber.Ctx, message string) error {
	return write(c, "error", fiber.StatusBadGateway, message, nil)
}
