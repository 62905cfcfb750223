package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"metafactory-twin/models"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	chatPath   = "/chat"
	staticPath = "/static/"
	clearPath  = "/clear"

	imageReplyPrefix = "[image]"
)

// ChatbotService - 외부 챗봇 서버 중계 + 대화 기록
type ChatbotService struct {
	BaseURL  string
	CacheDir string

	client *http.Client

	mu      sync.RWMutex
	history []models.ChatMessage
}

// NewChatbotService - 챗봇 서비스 생성 (verifySSL=false 면 인증서 검증 생략)
func NewChatbotService(baseURL, cacheDir string, verifySSL bool) *ChatbotService {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !verifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	log.Printf("✅ ChatbotService 초기화 (baseURL=%s, verifySSL=%v)", baseURL, verifySSL)

	return &ChatbotService{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		CacheDir: cacheDir,
		client:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

// ChatPayload - 모드 인덱스에 따라 요청 본문 구성
func ChatPayload(message string, mode int) map[string]interface{} {
	if mode <= 0 || mode >= len(models.ChatModes) {
		return map[string]interface{}{"message": message}
	}
	return map[string]interface{}{"message": message, "mode": models.ChatModes[mode]}
}

// Send - 질문 전송 후 봇 응답을 기록에 추가하고 반환
func (s *ChatbotService) Send(ctx context.Context, req models.ChatRequest) (models.ChatMessage, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return models.ChatMessage{}, fmt.Errorf("메시지가 비어있습니다")
	}

	s.appendHistory(newChatMessage(models.ChatRoleUser, models.ChatKindText, text))
	LogChat(models.ChatRoleUser, text)

	start := time.Now()
	reply := s.post(ctx, s.BaseURL+chatPath, ChatPayload(text, req.Mode))
	log.Printf("⏱️ 챗봇 응답 시간: %.2f초", time.Since(start).Seconds())

	var msg models.ChatMessage
	if strings.HasPrefix(reply, imageReplyPrefix) {
		name := strings.TrimSpace(strings.TrimPrefix(reply, imageReplyPrefix))
		msg = s.downloadImage(ctx, name)
	} else {
		msg = newChatMessage(models.ChatRoleBot, models.ChatKindText, reply)
	}

	s.appendHistory(msg)
	LogChat(models.ChatRoleBot, reply)
	return msg, nil
}

// post - JSON POST 후 "message" 추출 (실패도 메시지 문자열로 돌려준다)
func (s *ChatbotService) post(ctx context.Context, url string, payload map[string]interface{}) string {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("[HTTP error] %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("[HTTP error] %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Sprintf("[HTTP error] %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("[HTTP error] %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Sprintf("[HTTP %d] %s", resp.StatusCode, string(raw))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		// JSON 이 아니면 본문 자체가 답변
		return string(raw)
	}
	return toString(result["message"])
}

// downloadImage - /static/<name> 을 받아 캐시에 저장
func (s *ChatbotService) downloadImage(ctx context.Context, name string) models.ChatMessage {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+staticPath+name, nil)
	if err != nil {
		return newChatMessage(models.ChatRoleBot, models.ChatKindText, "(이미지 다운로드 실패) "+err.Error())
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return newChatMessage(models.ChatRoleBot, models.ChatKindText, "(이미지 다운로드 실패) "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newChatMessage(models.ChatRoleBot, models.ChatKindText,
			fmt.Sprintf("(이미지 다운로드 실패) HTTP %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newChatMessage(models.ChatRoleBot, models.ChatKindText, "(이미지 다운로드 실패) "+err.Error())
	}

	msg := newChatMessage(models.ChatRoleBot, models.ChatKindImage, "")
	msg.ImageName = name
	msg.ImageBytes = data

	if s.CacheDir != "" {
		safe := strings.NewReplacer("/", "_", "\\", "_").Replace(name)
		path := filepath.Join(s.CacheDir, safe)
		if err := os.MkdirAll(s.CacheDir, 0o755); err != nil {
			return newChatMessage(models.ChatRoleBot, models.ChatKindText, "(이미지 저장 실패) "+err.Error())
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return newChatMessage(models.ChatRoleBot, models.ChatKindText, "(이미지 저장 실패) "+err.Error())
		}
		msg.ImagePath = path
	}
	return msg
}

// Clear - 기록 비우기 (sendServer=true 면 서버 /clear 도 호출)
func (s *ChatbotService) Clear(ctx context.Context, sendServer bool) error {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()

	if !sendServer {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+clearPath, strings.NewReader("{}"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.appendHistory(newChatMessage(models.ChatRoleBot, models.ChatKindText, "(clear 실패) "+err.Error()))
		return fmt.Errorf("clear 요청 실패: %w", err)
	}
	resp.Body.Close()
	return nil
}

// History - 대화 기록 복사본
func (s *ChatbotService) History() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// RenderHTML - 대화 기록을 HTML 문서로
func (s *ChatbotService) RenderHTML() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset='utf-8'>")
	b.WriteString("<style>.user{color:blue;font-weight:bold;margin-bottom:10px}")
	b.WriteString(".bot{color:black;margin-bottom:30px}img{max-width:800px;max-height:400px;margin-bottom:30px}</style></head><body>")

	for _, m := range s.History() {
		switch m.Kind {
		case models.ChatKindText:
			cls, prefix := "bot", "답변:<br>"
			if m.Role == models.ChatRoleUser {
				cls, prefix = "user", "질문: "
			}
			safe := strings.ReplaceAll(html.EscapeString(m.Text), "\n", "<br>")
			fmt.Fprintf(&b, "<div class='%s'>%s%s</div>\n", cls, prefix, safe)
		case models.ChatKindImage:
			if len(m.ImageBytes) > 0 {
				fmt.Fprintf(&b, "<img src='data:image/png;base64,%s' />\n", base64.StdEncoding.EncodeToString(m.ImageBytes))
			} else {
				fmt.Fprintf(&b, "<div class='bot'>(이미지 없음) %s</div>\n", html.EscapeString(m.ImageName))
			}
		}
	}
	b.WriteString("</body></html>")
	return b.String()
}

// SaveHTML - RenderHTML 결과를 파일로 저장
func (s *ChatbotService) SaveHTML(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("디렉터리 생성 실패: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(s.RenderHTML()), 0o644); err != nil {
		return fmt.Errorf("HTML 저장 실패: %w", err)
	}
	log.Printf("💾 채팅 기록 저장: %s", path)
	return nil
}

func (s *ChatbotService) appendHistory(m models.ChatMessage) {
	s.mu.Lock()
	s.history = append(s.history, m)
	s.mu.Unlock()
}

func newChatMessage(role, kind, text string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Kind:      kind,
		Text:      text,
		Timestamp: time.Now(),
	}
}
