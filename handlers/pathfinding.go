package handlers

import (
	"errors"
	"log"
	"metafactory-twin/models"
	"metafactory-twin/services"

	"github.com/gofiber/fiber/v2"
)

// PathfindingRequest - AMR 경로 미리보기 요청
type PathfindingRequest struct {
	AMRID  string           `json:"amr_id"`
	Target models.PathPoint `json:"target"` // mm
}

type PathfindingResponse struct {
	Success bool               `json:"success"`
	AMRID   string             `json:"amr_id,omitempty"`
	Path    []models.PathPoint `json:"path,omitempty"`
	Message string             `json:"message,omitempty"`
}

// HandlePathfinding - 다른 AMR 을 피하는 경로 미리보기
func HandlePathfinding(c *fiber.Ctx) error {
	if Dashboard == nil || Planner == nil {
		return unavailable(c, "Path planner")
	}

	var req PathfindingRequest
	if err := c.BodyParser(&req); err != nil || req.AMRID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(PathfindingResponse{
			Success: false,
			Message: "잘못된 요청 형식입니다",
		})
	}

	log.Printf("📍 경로 탐색 요청: AMR %s → (%.1f, %.1f)", req.AMRID, req.Target.X, req.Target.Y)

	path, err := Planner.Plan(Dashboard.AMRs(), req.AMRID, req.Target)
	switch {
	case errors.Is(err, services.ErrNoPosition):
		return c.Status(fiber.StatusNotFound).JSON(PathfindingResponse{
			Success: false,
			AMRID:   req.AMRID,
			Message: "AMR 위치를 알 수 없습니다",
		})
	case errors.Is(err, services.ErrNoRoute):
		log.Printf("❌ 경로를 찾을 수 없습니다")
		return c.JSON(PathfindingResponse{
			Success: false,
			AMRID:   req.AMRID,
			Message: "경로를 찾을 수 없습니다",
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(PathfindingResponse{Message: err.Error()})
	}

	log.Printf("✅ 경로 탐색 성공: %d개 웨이포인트", len(path))
	return c.JSON(PathfindingResponse{
		Success: true,
		AMRID:   req.AMRID,
		Path:    path,
		Message: "경로 탐색 성공",
	})
}
