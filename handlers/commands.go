package handlers

import (
	"context"
	"metafactory-twin/models"

	"github.com/gofiber/fiber/v2"
)

// HandleCommand - 운영자 명령 (ManualMove, AMRPause ...)
func HandleCommand(c *fiber.Ctx) error {
	if Commands == nil {
		return unavailable(c, "Command service")
	}

	var req models.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "잘못된 요청 형식",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	result, err := Commands.Dispatch(ctx, req)
	return commandResponse(c, result, err)
}
