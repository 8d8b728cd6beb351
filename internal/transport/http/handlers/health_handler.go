package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	subscribers func() int
}

func NewHealthHandler(subscribers func() int) *HealthHandler {
	return &HealthHandler{subscribers: subscribers}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"subscribers": h.subscribers(),
	})
}
