package models

// 컨테이너 운반 상태
const (
	CarryStationary = "stationary"
	CarryInHandling = "in_handling"
)

// ContainerModelNames - 모델 enum → 표기 문자열
var ContainerModelNames = map[int]string{
	1: "LR",
	2: "LF",
	3: "AR",
	4: "AC",
	5: "AF",
	6: "P",
}

// ========================================
// 컨테이너(팔레트) 정규화 데이터
// ========================================
type Container struct {
	Code        string                 `json:"containerCode"`
	ModelCode   string                 `json:"containerModelCode"`
	InMapStatus bool                   `json:"inMapStatus"`
	NodeCode    string                 `json:"nodeCode"`
	CarryKind   string                 `json:"carryKind"`
	Raw         map[string]interface{} `json:"raw,omitempty"`
}

// ContainerSummary - 상태 패널 팔레트 집계
type ContainerSummary struct {
	Total      int `json:"total"`
	OffMap     int `json:"off_map"`
	Stationary int `json:"stationary"`
	InHandling int `json:"in_handling"`
}

// 컨테이너 목록 상태 필터
const (
	ContainerFilterAll    = "All"
	ContainerFilterOnMap  = "On Map"
	ContainerFilterOffMap = "Off Map"
)
