package models

import "time"

// 상태 점 라벨
const (
	StatusOperationServer = "Operation Server"
	StatusFleetServer     = "Fleet Server"
	StatusOPCUA           = "OPC UA"
	StatusStorageIO       = "Storage I/O"
)

// StatusLabels - 상태 패널 표시 순서
var StatusLabels = []string{StatusOperationServer, StatusFleetServer, StatusOPCUA, StatusStorageIO}

// DashboardSnapshot - 상태 패널 전체 (REST / WebSocket 공용)
type DashboardSnapshot struct {
	AMR       AMRSummary       `json:"amr"`
	Pallets   ContainerSummary `json:"pallets"`
	Missions  MissionSummary   `json:"missions"`
	Status    map[string]bool  `json:"status"`
	Errors    []string         `json:"errors"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ContainerListing - 컨테이너 패널 응답
type ContainerListing struct {
	Items         []Container `json:"items"`
	ModelOptions  []string    `json:"model_options"`
	StatusOptions []string    `json:"status_options"`
}
