package services

import (
	"fmt"
	"log"
	"math"
	"metafactory-twin/models"
	"time"
)

// maxTickDelta - 자동 dt 계산 시 상한 (디버거 정지, GC 등으로 큰 점프 방지)
const maxTickDelta = 100 * time.Millisecond

// Scene - 씬 프록시 생성/갱신/삭제 인터페이스
type Scene interface {
	CreateProxy(id string, xf models.ProxyTransform) error
	UpdateProxy(id string, xf models.ProxyTransform) error
	DeleteProxy(id string) error
}

// Synchronizer - 서버 좌표를 목표로 삼아 매 프레임 부드럽게 보간 이동
//
// Sync 는 목표만 갱신하고, Update/Tick 이 현재 포즈를 목표 쪽으로 전진시킨다.
// 프레임 고루틴 하나에서만 호출해야 한다.
type Synchronizer struct {
	scene Scene
	cfg   models.MotionConfig

	poses map[string]*models.TrackedPose
	order []string // 생성 순서 (로그/스냅샷 정렬용)

	now      func() time.Time
	lastTick time.Time
}

// NewSynchronizer - Synchronizer 생성
func NewSynchronizer(scene Scene, cfg models.MotionConfig) *Synchronizer {
	s := &Synchronizer{
		scene: scene,
		poses: make(map[string]*models.TrackedPose),
		now:   time.Now,
	}
	s.Configure(cfg)
	s.lastTick = s.now()
	return s
}

// Configure - 단위/속도/보정 설정 (값 검증 없음)
func (s *Synchronizer) Configure(cfg models.MotionConfig) {
	if cfg.Axis.YawSign == 0 {
		cfg.Axis.YawSign = 1
	}
	if cfg.Axis.SignV == 0 {
		cfg.Axis.SignV = 1
	}
	if cfg.Axis.ScaleCorr == 0 {
		cfg.Axis.ScaleCorr = 1
	}
	s.cfg = cfg
}

// Config - 현재 설정
func (s *Synchronizer) Config() models.MotionConfig {
	return s.cfg
}

// ========================================
// data → targets
// ========================================

// Sync - 스냅샷 목록으로 목표 갱신 + 사라진 엔티티 제거
func (s *Synchronizer) Sync(items []models.EntitySnapshot) {
	// 중복 ID는 마지막 항목이 이긴다
	latest := make(map[string]models.EntitySnapshot, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, dup := latest[it.ID]; !dup {
			ids = append(ids, it.ID)
		}
		latest[it.ID] = it
	}

	for _, id := range ids {
		it := latest[id]
		s.guard(id, "sync", func() error {
			return s.syncOne(it)
		})
	}

	// 두 번째 패스: 이번 목록에 없는 엔티티 제거
	kept := s.order[:0]
	for _, id := range s.order {
		if _, seen := latest[id]; seen {
			kept = append(kept, id)
			continue
		}
		delete(s.poses, id)
		s.guard(id, "remove", func() error {
			return s.scene.DeleteProxy(id)
		})
		log.Printf("[Sync] AMR removed: %s", id)
	}
	s.order = kept
}

func (s *Synchronizer) syncOne(it models.EntitySnapshot) error {
	tu, tv := s.mapToUnits(it.XMM, it.YMM)
	tyaw := NormalizeDeg(s.cfg.Axis.YawSign*finiteOrZero(it.YawDeg) + s.cfg.Axis.YawOffsetDeg)

	if pose, exists := s.poses[it.ID]; exists {
		// 목표만 갱신 (현재 위치는 Update 에서 보간)
		pose.TargetU, pose.TargetV, pose.TargetYawDeg = tu, tv, tyaw
		return nil
	}

	// 처음 등장: 현재 = 목표 (미끄러짐 없이 바로 배치)
	pose := &models.TrackedPose{
		ID:            it.ID,
		CurrentU:      tu,
		CurrentV:      tv,
		CurrentYawDeg: tyaw,
		TargetU:       tu,
		TargetV:       tv,
		TargetYawDeg:  tyaw,
	}
	if err := s.scene.CreateProxy(it.ID, s.compose(pose)); err != nil {
		return fmt.Errorf("프록시 생성 실패: %w", err)
	}
	s.poses[it.ID] = pose
	s.order = append(s.order, it.ID)
	log.Printf("[Sync] AMR added: %s (u=%.2f, v=%.2f, yaw=%.1f)", it.ID, tu, tv, tyaw)
	return nil
}

// ========================================
// per-frame update
// ========================================

// Tick - 직전 호출 이후 경과 시간으로 Update
func (s *Synchronizer) Tick() {
	now := s.now()
	dt := now.Sub(s.lastTick)
	s.lastTick = now

	if len(s.poses) == 0 {
		return
	}
	if dt < 0 {
		dt = 0
	}
	if dt > maxTickDelta {
		dt = maxTickDelta
	}
	s.Update(dt.Seconds())
}

// Update - 모든 포즈를 목표 쪽으로 최대 속도*dt 만큼 전진
func (s *Synchronizer) Update(dt float64) {
	if dt < 0 {
		dt = 0
	}
	stepPos := s.cfg.MoveSpeed * dt
	stepYaw := s.cfg.YawSpeed * dt

	for _, id := range s.order {
		pose, ok := s.poses[id]
		if !ok {
			continue
		}
		s.guard(id, "update", func() error {
			s.advance(pose, stepPos, stepYaw)
			return s.scene.UpdateProxy(id, s.compose(pose))
		})
	}
}

// advance - MoveTowards 방식 위치/회전 보간
func (s *Synchronizer) advance(p *models.TrackedPose, stepPos, stepYaw float64) {
	// --- 위치 ---
	du := p.TargetU - p.CurrentU
	dv := p.TargetV - p.CurrentV
	dist := math.Hypot(du, dv)
	if dist <= s.cfg.PositionEpsilon || dist <= stepPos {
		p.CurrentU, p.CurrentV = p.TargetU, p.TargetV
	} else {
		p.CurrentU += du / dist * stepPos
		p.CurrentV += dv / dist * stepPos
	}

	// --- 회전 (짧은 쪽으로) ---
	diff := NormalizeDeg(p.TargetYawDeg - p.CurrentYawDeg)
	if math.Abs(diff) <= s.cfg.YawEpsilon || math.Abs(diff) <= stepYaw {
		p.CurrentYawDeg = p.TargetYawDeg
	} else {
		p.CurrentYawDeg = NormalizeDeg(p.CurrentYawDeg + math.Copysign(stepYaw, diff))
	}
}

// ========================================
// 조회
// ========================================

// Pose - 특정 엔티티 포즈 복사본
func (s *Synchronizer) Pose(id string) (models.TrackedPose, bool) {
	p, ok := s.poses[id]
	if !ok {
		return models.TrackedPose{}, false
	}
	return *p, true
}

// Poses - 전체 포즈 (생성 순서)
func (s *Synchronizer) Poses() []models.TrackedPose {
	out := make([]models.TrackedPose, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.poses[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Count - 추적 중인 엔티티 수
func (s *Synchronizer) Count() int {
	return len(s.poses)
}

// ========================================
// 헬퍼
// ========================================

func (s *Synchronizer) mapToUnits(xMM, yMM float64) (float64, float64) {
	a := s.cfg.Axis
	u := finiteOrZero(xMM)*s.cfg.UnitsPerMM*a.ScaleCorr + a.OffsetU
	v := finiteOrZero(yMM) * s.cfg.UnitsPerMM * a.ScaleCorr
	v = v*a.SignV + a.OffsetV
	return u, v
}

// compose - 스테이지 up 축에 맞춰 translate/rotate 구성
func (s *Synchronizer) compose(p *models.TrackedPose) models.ProxyTransform {
	a := s.cfg.Axis
	if a.ZUp {
		return models.ProxyTransform{
			Translate: models.Vec3{X: p.CurrentU, Y: p.CurrentV, Z: 0},
			RotateXYZ: models.Vec3{X: a.TiltXDeg, Y: 0, Z: p.CurrentYawDeg},
		}
	}
	return models.ProxyTransform{
		Translate: models.Vec3{X: p.CurrentU, Y: 0, Z: p.CurrentV},
		RotateXYZ: models.Vec3{X: a.TiltXDeg, Y: p.CurrentYawDeg, Z: 0},
	}
}

// guard - 엔티티 단위 장애 격리 (에러/패닉 로그 후 계속)
func (s *Synchronizer) guard(id, op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [Sync] %s panic (id=%s): %v", op, id, r)
		}
	}()
	if err := fn(); err != nil {
		log.Printf("⚠️ [Sync] %s 실패 (id=%s): %v", op, id, err)
	}
}

// NormalizeDeg - 각도를 (-180, 180] 로 정규화
func NormalizeDeg(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	if deg > -180 && deg <= 180 {
		return deg
	}
	r := math.Mod(deg+180, 360)
	if r < 0 {
		r += 360
	}
	r -= 180
	if r == -180 {
		return 180
	}
	return r
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
