package models

// 미션 상태
const (
	MissionStatusWorking     = "working"
	MissionStatusWaiting     = "waiting"
	MissionStatusReservation = "reservation"
)

// MissionRow - 미션 리스트 한 줄
type MissionRow struct {
	Key           string `json:"key"` // "R:<process>" | "M:<missionCode>"
	MissionStatus string `json:"missionStatus"`
	Process       string `json:"process"`
	MissionCode   string `json:"missionCode"`
	AMRID         string `json:"amrId"`
	TargetNode    string `json:"targetNode"`
}

// MissionBoard - 섹션별 미션 목록
type MissionBoard struct {
	Working  []MissionRow `json:"working"`
	Waiting  []MissionRow `json:"waiting"`
	Reserved []MissionRow `json:"reserved"`
}

// MissionSummary - 상태 패널 미션 집계
type MissionSummary struct {
	InProgress int `json:"in_progress"`
	Reserved   int `json:"reserved"`
}
