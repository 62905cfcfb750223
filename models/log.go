package models

import (
	"time"
)

// TwinLog - 디지털 트윈 운영 이벤트 로그
type TwinLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	EventType string    `gorm:"index;size:64" json:"event_type"` // "alive_change", "server_error", "command", "amr_snapshot", "chat"
	Source    string    `gorm:"size:64" json:"source"`           // "Operation Server", "viewer", ...
	DataType  string    `gorm:"size:64" json:"data_type"`

	// AMR 정보
	AMRID    string  `gorm:"size:64;index" json:"amr_id"`
	AMRCount int     `json:"amr_count"`
	PosXMM   float64 `json:"pos_x_mm"`
	PosYMM   float64 `json:"pos_y_mm"`
	YawDeg   float64 `json:"yaw_deg"`

	// 상태 / 메시지
	Alive     bool   `json:"alive"`
	Message   string `gorm:"size:1024" json:"message"`
	RequestID string `gorm:"size:64" json:"request_id"`

	// 메타데이터
	DataJSON string `gorm:"type:text" json:"data_json"` // 원본 페이로드 JSON
}

// 이벤트 타입
const (
	EventAliveChange = "alive_change"
	EventServerError = "server_error"
	EventCommand     = "command"
	EventAMRSnapshot = "amr_snapshot"
	EventChat        = "chat"
)
