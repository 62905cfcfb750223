package models

import "encoding/json"

// ========================================
// 메시지 타입 상수
// ========================================
const (
	// Server → Viewer
	MessageTypeSceneFrame  = "scene_frame"  // 씬 프림 스냅샷
	MessageTypeDashboard   = "dashboard"    // 대시보드 요약
	MessageTypeAliveChange = "alive_change" // 서버 연결 상태 변경
	MessageTypeErrorLog    = "error_log"    // 에러 로그 갱신
	MessageTypeSystemInfo  = "system_info"  // 시스템 정보

	// Viewer → Server
	MessageTypeCommand       = "command"        // 운영자 명령 (ManualMove 등)
	MessageTypeCommandResult = "command_result" // 명령 처리 결과

	// 채팅
	MessageTypeChat         = "chat"
	MessageTypeChatResponse = "chat_response"
)

// ========================================
// 공통 WebSocket 메시지 형식
// ========================================
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix timestamp (ms)
}

// ========================================
// 오퍼레이션 서버 DataType
// ========================================
const (
	DataTypeConnectionInfo  = "ConnectionInfo"
	DataTypeAMRInfo         = "AMRInfo"
	DataTypeContainerInfo   = "ContainerInfo"
	DataTypeWorkingInfo     = "WorkingInfo"
	DataTypeMissionInfo     = "MissionInfo"
	DataTypeReservationInfo = "ReservationInfo"

	// 운영자 명령 (폴링 대상 아님)
	DataTypeManualMove     = "ManualMove"
	DataTypeManualRackMove = "ManualRackMove"
	DataTypeAMRPause       = "AMRPause"
	DataTypeAMRResume      = "AMRResume"
	DataTypeMissionCancel  = "MissionCancel"
)

// CommonResponse - /DigitalTwin 응답 본문 {success, message, data}
type CommonResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ========================================
// 시스템 정보
// ========================================
type SystemInfo struct {
	Message     string `json:"message"`
	ConnectedAt string `json:"connected_at"`
	StageID     string `json:"stage_id"`
	MapCode     string `json:"map_code"`
}

// AliveChangeData - 연결 상태 변경 알림
type AliveChangeData struct {
	Target string `json:"target"` // "Operation Server", "Fleet Server" ...
	Alive  bool   `json:"alive"`
}
