package models

import "time"

// Vec3 - 3D 벡터 (translate / rotateXYZ / scale)
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ProxyTransform - 씬 프록시에 기록할 변환
type ProxyTransform struct {
	Translate Vec3 `json:"translate"`
	RotateXYZ Vec3 `json:"rotate_xyz"` // 도 단위 오일러
}

// 프림 종류
const (
	PrimKindGroup   = "group"
	PrimKindAMR     = "amr"
	PrimKindLineCar = "linecar"
)

// Prim - 리테인드 씬의 변환 가능한 오브젝트
type Prim struct {
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entity_id,omitempty"` // AMR ID 등
	Translate Vec3      `json:"translate"`
	RotateXYZ Vec3      `json:"rotate_xyz"`
	Scale     Vec3      `json:"scale"`
	Color     *Vec3     `json:"color,omitempty"` // RGB 0~1
	UpdatedAt time.Time `json:"updated_at"`
}

// SceneFrame - 뷰어로 브로드캐스트하는 씬 스냅샷
type SceneFrame struct {
	StageID string `json:"stage_id"`
	Version uint64 `json:"version"`
	ZUp     bool   `json:"z_up"`
	Prims   []Prim `json:"prims"`
}

// PathPoint - 경로 탐색 결과 좌표 (mm)
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
