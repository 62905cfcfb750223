package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"metafactory-twin/models"
	"time"

	"github.com/gofiber/websocket/v2"
)

// commandTimeout - 뷰어 명령 한 건 처리 제한 시간
const commandTimeout = 10 * time.Second

// HandleViewerWebSocket - 뷰어 WebSocket (씬/대시보드 수신 + 명령 송신)
func HandleViewerWebSocket(c *websocket.Conn) {
	client := &Client{Conn: c, ConnectedAt: time.Now()}

	// 등록 전에 보내야 브로드캐스트와 쓰기가 겹치지 않는다
	_ = client.Send(welcomeMessage())
	if Stage != nil {
		_ = client.Send(models.WebSocketMessage{
			Type:      models.MessageTypeSceneFrame,
			Data:      Stage.Snapshot(),
			Timestamp: time.Now().UnixMilli(),
		})
	}
	if Dashboard != nil {
		_ = client.Send(models.WebSocketMessage{
			Type:      models.MessageTypeDashboard,
			Data:      Dashboard.Snapshot(),
			Timestamp: time.Now().UnixMilli(),
		})
	}

	Manager.register <- client
	defer func() {
		Manager.unregister <- c
	}()

	for {
		var msg models.WebSocketMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Printf("뷰어 메시지 읽기 종료: %v", err)
			break
		}
		if reply, ok := handleViewerMessage(msg); ok {
			if err := client.Send(reply); err != nil {
				log.Printf("⚠️ 응답 전송 실패: %v", err)
				break
			}
		}
	}
}

func welcomeMessage() models.WebSocketMessage {
	info := models.SystemInfo{
		Message:     "뷰어 연결됨",
		ConnectedAt: time.Now().Format(time.RFC3339),
	}
	if Stage != nil {
		info.StageID = Stage.ID()
	}
	if TwinAPI != nil {
		info.MapCode = TwinAPI.MapCode()
	}
	return models.WebSocketMessage{
		Type:      models.MessageTypeSystemInfo,
		Data:      info,
		Timestamp: time.Now().UnixMilli(),
	}
}

// handleViewerMessage - 뷰어 메시지 처리, 보낸 뷰어에게 줄 응답 반환
func handleViewerMessage(msg models.WebSocketMessage) (models.WebSocketMessage, bool) {
	switch msg.Type {
	case models.MessageTypeCommand:
		var req models.CommandRequest
		if err := decodeData(msg.Data, &req); err != nil {
			return commandReply(models.CommandResult{Message: err.Error()}), true
		}
		if Commands == nil {
			return commandReply(models.CommandResult{DataType: req.DataType, Message: "command service unavailable"}), true
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		result, _ := Commands.Dispatch(ctx, req)
		return commandReply(result), true

	case models.MessageTypeChat:
		var req models.ChatRequest
		if err := decodeData(msg.Data, &req); err != nil || Chatbot == nil {
			return models.WebSocketMessage{}, false
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			reply, err := Chatbot.Send(ctx, req)
			if err != nil {
				log.Printf("❌ 챗봇 오류: %v", err)
				return
			}
			Manager.Broadcast(models.MessageTypeChatResponse, models.ChatResponseData{
				Message:   reply,
				Timestamp: time.Now().UnixMilli(),
			})
		}()
		return models.WebSocketMessage{}, false

	default:
		log.Printf("알 수 없는 메시지 타입: %s", msg.Type)
		return models.WebSocketMessage{}, false
	}
}

func commandReply(result models.CommandResult) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      models.MessageTypeCommandResult,
		Data:      result,
		Timestamp: time.Now().UnixMilli(),
	}
}

// decodeData - interface{} 로 받은 data 를 구조체로
func decodeData(data interface{}, out interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("잘못된 data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("잘못된 data: %w", err)
	}
	return nil
}
