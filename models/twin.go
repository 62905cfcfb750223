package models

// ========================================
// 엔티티 스냅샷 (폴링마다 서버에서 수신)
// ========================================
type EntitySnapshot struct {
	ID     string  `json:"id"`
	XMM    float64 `json:"x_mm"`    // X 좌표 (mm)
	YMM    float64 `json:"y_mm"`    // Y 좌표 (mm)
	YawDeg float64 `json:"yaw_deg"` // 방향 (도)
}

// ========================================
// 추적 포즈 (Synchronizer 내부 상태)
// ========================================
type TrackedPose struct {
	ID            string  `json:"id"`
	CurrentU      float64 `json:"current_u"`
	CurrentV      float64 `json:"current_v"`
	CurrentYawDeg float64 `json:"current_yaw_deg"`
	TargetU       float64 `json:"target_u"`
	TargetV       float64 `json:"target_v"`
	TargetYawDeg  float64 `json:"target_yaw_deg"`
}

// AxisCorrection - 서버 2D 좌표계 ↔ 씬 좌표계 보정값
type AxisCorrection struct {
	TiltXDeg     float64 `json:"tilt_x_deg"`     // X축 틸트 (Z-up 스테이지면 90)
	YawSign      float64 `json:"yaw_sign"`       // 방향 부호
	YawOffsetDeg float64 `json:"yaw_offset_deg"` // 방향 오프셋
	SignV        float64 `json:"sign_v"`         // V축 부호
	ScaleCorr    float64 `json:"scale_corr"`     // 추가 스케일
	OffsetU      float64 `json:"offset_u"`
	OffsetV      float64 `json:"offset_v"`
	ZUp          bool    `json:"z_up"` // 스테이지 up 축
}

// MotionConfig - 보간 이동 파라미터
type MotionConfig struct {
	UnitsPerMM      float64        `json:"units_per_mm"`
	MoveSpeed       float64        `json:"move_speed"`       // units/s
	YawSpeed        float64        `json:"yaw_speed"`        // deg/s
	PositionEpsilon float64        `json:"position_epsilon"` // units
	YawEpsilon      float64        `json:"yaw_epsilon"`      // deg
	Axis            AxisCorrection `json:"axis"`
}

// DefaultAxisCorrection - 보정 없음 (Y-up)
func DefaultAxisCorrection() AxisCorrection {
	return AxisCorrection{
		YawSign:   1,
		SignV:     1,
		ScaleCorr: 1,
	}
}

// NewMotionConfig - mm 단위 설정값을 씬 단위로 변환
//
// metersPerUnit 은 스테이지 단위 (기본 0.01 = cm).
func NewMotionConfig(metersPerUnit, moveSpeedMMPerSec, yawSpeedDegPerSec, posEpsMM, yawEpsDeg float64, zUp bool) MotionConfig {
	if metersPerUnit <= 0 {
		metersPerUnit = 0.01
	}
	unitsPerMM := (1.0 / metersPerUnit) / 1000.0

	axis := DefaultAxisCorrection()
	axis.ZUp = zUp
	if zUp {
		axis.TiltXDeg = 90
	}

	return MotionConfig{
		UnitsPerMM:      unitsPerMM,
		MoveSpeed:       moveSpeedMMPerSec * unitsPerMM,
		YawSpeed:        yawSpeedDegPerSec,
		PositionEpsilon: posEpsMM * unitsPerMM,
		YawEpsilon:      yawEpsDeg,
		Axis:            axis,
	}
}
