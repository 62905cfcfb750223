package services

import (
	"fmt"
	"log"
	"math/rand"
	"metafactory-twin/models"
	"strings"
	"time"
)

// 라인카 이동 모드
const (
	LineCarModeLoop    = "loop"
	LineCarModeRespawn = "respawn"

	LineCarGroupPath = "/World/LineCars"
)

// lineCarColors - 검/파/빨/흰/노
var lineCarColors = []models.Vec3{
	{X: 0, Y: 0, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: 1, Y: 0, Z: 0},
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: 0},
}

// LineCarConfig - 라인카 배치/이동 설정 (좌표는 스테이지 단위)
type LineCarConfig struct {
	StartX       float64
	EndX         float64
	LaneY        float64
	LaneZ        float64
	Speed        float64 // units/s
	Count        int
	Spacing      float64
	Mode         string // "loop" | "respawn"
	RespawnDelay time.Duration
	RotateXYZ    models.Vec3
	Scale        float64
	Colorize     bool
}

// DefaultLineCarConfig - 공장 라인 기본 배치
func DefaultLineCarConfig() LineCarConfig {
	return LineCarConfig{
		StartX:    -4200,
		EndX:      6550,
		LaneY:     2738,
		LaneZ:     0,
		Speed:     200,
		Count:     19,
		Spacing:   600,
		Mode:      LineCarModeLoop,
		RotateXYZ: models.Vec3{X: 0, Y: 0, Z: 90},
		Scale:     1,
		Colorize:  true,
	}
}

type lineCar struct {
	path      string
	x         float64
	deadUntil time.Time
}

// LineCarSpawner - 조립 라인 위를 일정 속도로 흐르는 차량 프림 관리
//
// 프레임 고루틴에서만 호출한다.
type LineCarSpawner struct {
	stage *Stage
	cfg   LineCarConfig
	dir   float64
	rng   *rand.Rand

	cars  map[string]*lineCar
	names []string
}

// NewLineCarSpawner - 스포너 생성 (부모 그룹 프림 보장)
func NewLineCarSpawner(stage *Stage, cfg LineCarConfig) *LineCarSpawner {
	if cfg.Count < 1 {
		cfg.Count = 1
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode != LineCarModeRespawn {
		cfg.Mode = LineCarModeLoop
	}

	dir := 1.0
	if cfg.EndX < cfg.StartX {
		dir = -1.0
	}

	stage.DefinePrim(LineCarGroupPath, models.PrimKindGroup, "")
	return &LineCarSpawner{
		stage: stage,
		cfg:   cfg,
		dir:   dir,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cars:  make(map[string]*lineCar),
	}
}

// SpawnAll - 기존 차량을 지우고 Count 대를 Spacing 간격으로 배치
func (s *LineCarSpawner) SpawnAll() {
	s.stage.RemoveChildren(LineCarGroupPath)
	s.cars = make(map[string]*lineCar)
	s.names = s.names[:0]

	for i := 0; i < s.cfg.Count; i++ {
		x0 := s.cfg.StartX - s.dir*s.cfg.Spacing*float64(i)
		s.spawnOne(fmt.Sprintf("Car_%03d", i+1), x0)
	}
	log.Printf("🚗 [LineCar] %d대 배치 (mode=%s, spacing=%.0f)", s.cfg.Count, s.cfg.Mode, s.cfg.Spacing)
}

func (s *LineCarSpawner) spawnOne(name string, x0 float64) {
	path := LineCarGroupPath + "/" + name
	s.stage.RemovePrim(path)
	s.stage.DefinePrim(path, models.PrimKindLineCar, name)
	_ = s.stage.SetScale(path, models.Vec3{X: s.cfg.Scale, Y: s.cfg.Scale, Z: s.cfg.Scale})
	_ = s.stage.SetTransform(path, models.Vec3{X: x0, Y: s.cfg.LaneY, Z: s.cfg.LaneZ}, s.cfg.RotateXYZ)
	if s.cfg.Colorize {
		_ = s.stage.SetColor(path, lineCarColors[s.rng.Intn(len(lineCarColors))])
	}

	s.cars[name] = &lineCar{path: path, x: x0}
	s.names = append(s.names, name)
}

// Step - 모든 차량을 dt 만큼 전진
func (s *LineCarSpawner) Step(dt float64, now time.Time) {
	kept := s.names[:0]
	for _, name := range s.names {
		if s.stepCar(name, dt, now) {
			kept = append(kept, name)
		} else {
			delete(s.cars, name)
			log.Printf("⚠️ [LineCar] 사라진 차량 제거: %s", name)
		}
	}
	s.names = kept
}

// stepCar - 차량 하나 이동, 프림이 없어졌으면 false
func (s *LineCarSpawner) stepCar(name string, dt float64, now time.Time) bool {
	car := s.cars[name]
	if car == nil || !s.stage.HasPrim(car.path) {
		return false
	}
	if s.cfg.Mode == LineCarModeRespawn && now.Before(car.deadUntil) {
		return true
	}

	car.x += s.cfg.Speed * s.dir * dt

	reached := car.x >= s.cfg.EndX
	if s.dir < 0 {
		reached = car.x <= s.cfg.EndX
	}
	if reached {
		if s.cfg.Mode == LineCarModeLoop {
			car.x = s.cfg.StartX - s.dir*s.cfg.Spacing
		} else {
			if s.cfg.RespawnDelay > 0 {
				car.deadUntil = now.Add(s.cfg.RespawnDelay)
			}
			car.x = s.cfg.StartX
		}
	}

	pos := models.Vec3{X: car.x, Y: s.cfg.LaneY, Z: s.cfg.LaneZ}
	return s.stage.SetTransform(car.path, pos, s.cfg.RotateXYZ) == nil
}

// Count - 관리 중인 차량 수
func (s *LineCarSpawner) Count() int {
	return len(s.cars)
}

// Position - 차량 X 좌표
func (s *LineCarSpawner) Position(name string) (float64, bool) {
	car, ok := s.cars[name]
	if !ok {
		return 0, false
	}
	return car.x, true
}
