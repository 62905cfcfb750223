package models

import "time"

// 채팅 역할 / 종류
const (
	ChatRoleUser = "user"
	ChatRoleBot  = "bot"

	ChatKindText  = "text"
	ChatKindImage = "image"
)

// ChatModes - 챗봇 모드 드롭다운 항목
var ChatModes = []string{"(None)", "SQL Query", "Function Call", "RAG Response"}

// ChatMessage - 챗봇 대화 기록 한 건
type ChatMessage struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"` // "user" | "bot"
	Kind       string    `json:"kind"` // "text" | "image"
	Text       string    `json:"text,omitempty"`
	ImageName  string    `json:"image_name,omitempty"`
	ImagePath  string    `json:"image_path,omitempty"`
	ImageBytes []byte    `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
}

// ChatRequest - 채팅 요청
type ChatRequest struct {
	Message string `json:"message"`
	Mode    int    `json:"mode"` // ChatModes 인덱스
}

// ChatResponseData - 채팅 응답 브로드캐스트
type ChatResponseData struct {
	Message   ChatMessage `json:"message"`
	Timestamp int64       `json:"timestamp"`
}
