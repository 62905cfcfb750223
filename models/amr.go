package models

// ========================================
// AMR 상태 코드 (오퍼레이션 서버 기준)
// ========================================
const (
	AMRStatusUnknown   = 0
	AMRStatusExit      = 1
	AMRStatusOffline   = 2
	AMRStatusIdle      = 3 // 대기
	AMRStatusInTask    = 4 // 작업 중
	AMRStatusCharging  = 5 // 충전 중
	AMRStatusUpdating  = 6
	AMRStatusException = 7
)

// AMRStatusNames - 상태 코드 → 표시 문자열
var AMRStatusNames = map[int]string{
	AMRStatusExit:      "EXIT",
	AMRStatusOffline:   "OFFLINE",
	AMRStatusIdle:      "IDLE",
	AMRStatusInTask:    "INTASK",
	AMRStatusCharging:  "CHARGING",
	AMRStatusUpdating:  "UPDATING",
	AMRStatusException: "EXCEPTION",
}

// ========================================
// AMR 카드/상세 패널용 정규화 데이터
// ========================================
type AMRView struct {
	ID          string   `json:"id"`
	StatusCode  int      `json:"status_code"`
	Status      string   `json:"status"`       // "IDLE", "INTASK" ...
	Lift        string   `json:"lift"`         // "Up" | "Down" | "-"
	Rack        string   `json:"rack"`         // 적재 컨테이너
	WorkingType string   `json:"working_type"` // 작업 유형
	Mission     string   `json:"mission"`
	NodeCode    string   `json:"node_code"`
	Battery     float64  `json:"battery"` // 0.0 ~ 1.0
	XMM         *float64 `json:"x_mm,omitempty"`
	YMM         *float64 `json:"y_mm,omitempty"`
	YawDeg      *float64 `json:"yaw_deg,omitempty"`
	Position    string   `json:"position"` // "(x, y)  θ=..°"
}

// AMRSummary - 상태 패널 AMR 집계
type AMRSummary struct {
	Total    int `json:"total"`
	Working  int `json:"working"`
	Waiting  int `json:"waiting"`
	Charging int `json:"charging"`
}

// ConnectionInfo - ConnectionInfo 응답에서 뽑은 상태
type ConnectionInfo struct {
	KMReSStatus   bool `json:"kmres_status"`
	OPCUAStatus   bool `json:"opcua_status"`
	StorageStatus bool `json:"storage_status"`
}
