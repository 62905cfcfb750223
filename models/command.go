package models

// ========================================
// 운영자 명령
// ========================================

// CommandRequest - 뷰어/REST 에서 받은 명령 (필드는 서버 키 그대로)
type CommandRequest struct {
	DataType string                 `json:"dataType"`
	Fields   map[string]interface{} `json:"fields"`
}

// CommandResult - 명령 처리 결과
type CommandResult struct {
	RequestID     string                 `json:"request_id"`
	DataType      string                 `json:"dataType"`
	Payload       map[string]interface{} `json:"payload"`        // 실제 전송된 본문
	DroppedFields []string               `json:"dropped_fields"` // 허용 목록 밖이거나 빈 값이라 제거된 필드
	Success       bool                   `json:"success"`
	Message       string                 `json:"message"`
}

// MissionCancelRequest - 미션 리스트의 Cancel 버튼
type MissionCancelRequest struct {
	Key string `json:"key"` // MissionRow.Key
}
