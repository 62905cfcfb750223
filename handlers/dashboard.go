package handlers

import (
	"context"
	"errors"
	"log"
	"metafactory-twin/models"
	"metafactory-twin/services"
	"time"

	"github.com/gofiber/fiber/v2"
)

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " 가 초기화되지 않았습니다",
	})
}

// HandleHealth - 서버 상태
func HandleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":  "OK",
		"clients": Manager.GetClientCount(),
		"time":    time.Now().Format(time.RFC3339),
	}
	if TwinAPI != nil {
		resp["operation_server"] = fiber.Map{
			"url":     TwinAPI.BaseURL(),
			"alive":   TwinAPI.IsAlive(),
			"running": TwinAPI.Running(),
		}
	}
	return c.JSON(resp)
}

// HandleDashboard - 상태 패널 요약
func HandleDashboard(c *fiber.Ctx) error {
	if Dashboard == nil {
		return unavailable(c, "Dashboard")
	}
	return c.JSON(Dashboard.Snapshot())
}

// HandleAMRs - AMR 카드 목록
func HandleAMRs(c *fiber.Ctx) error {
	if Dashboard == nil {
		return unavailable(c, "Dashboard")
	}
	amrs := Dashboard.AMRs()
	return c.JSON(fiber.Map{
		"count": len(amrs),
		"ids":   Dashboard.AMRIDs(),
		"amrs":  amrs,
	})
}

// HandleAMR - AMR 카드 한 건
func HandleAMR(c *fiber.Ctx) error {
	if Dashboard == nil {
		return unavailable(c, "Dashboard")
	}
	id := c.Params("id")
	v, ok := Dashboard.AMR(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "AMR not found: " + id,
		})
	}
	return c.JSON(v)
}

// HandleContainers - 컨테이너 목록 (?model=&status= 필터)
func HandleContainers(c *fiber.Ctx) error {
	if Dashboard == nil {
		return unavailable(c, "Dashboard")
	}
	return c.JSON(Dashboard.Containers(c.Query("model"), c.Query("status")))
}

// HandleMissions - 미션 리스트 (작업/대기/예약)
func HandleMissions(c *fiber.Ctx) error {
	if Dashboard == nil {
		return unavailable(c, "Dashboard")
	}
	return c.JSON(fiber.Map{
		"summary":  Dashboard.Snapshot().Missions,
		"missions": Dashboard.Missions(),
	})
}

// HandleMissionCancel - 미션 리스트 한 줄 취소
func HandleMissionCancel(c *fiber.Ctx) error {
	if Dashboard == nil || Commands == nil {
		return unavailable(c, "Command service")
	}

	var req models.MissionCancelRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "잘못된 요청 형식 (key 필요)",
		})
	}

	row, ok := Dashboard.MissionRow(req.Key)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "mission not found: " + req.Key,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	result, err := Commands.CancelMissionRow(ctx, row)
	return commandResponse(c, result, err)
}

// HandleScene - 현재 씬 스냅샷
func HandleScene(c *fiber.Ctx) error {
	if Stage == nil {
		return unavailable(c, "Stage")
	}
	return c.JSON(Stage.Snapshot())
}

// commandResponse - 명령 결과 → HTTP 상태
func commandResponse(c *fiber.Ctx, result models.CommandResult, err error) error {
	switch {
	case err == nil:
		return c.JSON(result)
	case errors.Is(err, services.ErrUnknownCommand), errors.Is(err, services.ErrMissingField):
		return c.Status(fiber.StatusBadRequest).JSON(result)
	default:
		log.Printf("❌ 명령 실패: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(result)
	}
}
