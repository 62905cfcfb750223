package handlers

import (
	"context"
	"log"
	"metafactory-twin/models"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleChat - 챗봇 질문 (HTTP POST)
func HandleChat(c *fiber.Ctx) error {
	if Chatbot == nil {
		return unavailable(c, "Chatbot")
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "잘못된 요청 형식",
		})
	}

	log.Printf("💬 채팅 수신: %s", req.Message)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	reply, err := Chatbot.Send(ctx, req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// 다른 뷰어에게도 공유
	Manager.Broadcast(models.MessageTypeChatResponse, models.ChatResponseData{
		Message:   reply,
		Timestamp: time.Now().UnixMilli(),
	})

	return c.JSON(fiber.Map{
		"success":  true,
		"response": reply,
	})
}

// HandleChatHistory - 대화 기록
func HandleChatHistory(c *fiber.Ctx) error {
	if Chatbot == nil {
		return unavailable(c, "Chatbot")
	}
	history := Chatbot.History()
	return c.JSON(fiber.Map{
		"count":    len(history),
		"modes":    models.ChatModes,
		"messages": history,
	})
}

// HandleChatClear - 기록 비우기 (?server=true 면 챗봇 서버도)
func HandleChatClear(c *fiber.Ctx) error {
	if Chatbot == nil {
		return unavailable(c, "Chatbot")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := Chatbot.Clear(ctx, c.QueryBool("server", true)); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleChatSave - 대화 기록 HTML 저장
func HandleChatSave(c *fiber.Ctx) error {
	if Chatbot == nil {
		return unavailable(c, "Chatbot")
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "path 가 필요합니다",
		})
	}

	if err := Chatbot.SaveHTML(req.Path); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "저장 완료: " + req.Path,
	})
}
