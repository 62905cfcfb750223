package services

import (
	"errors"
	"math"
	"metafactory-twin/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScene struct {
	proxies map[string]models.ProxyTransform
	created []string
	deleted []string
	updates int

	failCreate  map[string]bool
	panicUpdate map[string]bool
}

func newFakeScene() *fakeScene {
	return &fakeScene{
		proxies:     make(map[string]models.ProxyTransform),
		failCreate:  make(map[string]bool),
		panicUpdate: make(map[string]bool),
	}
}

func (f *fakeScene) CreateProxy(id string, xf models.ProxyTransform) error {
	if f.failCreate[id] {
		return errors.New("create refused")
	}
	f.proxies[id] = xf
	f.created = append(f.created, id)
	return nil
}

func (f *fakeScene) UpdateProxy(id string, xf models.ProxyTransform) error {
	if f.panicUpdate[id] {
		panic("boom")
	}
	f.proxies[id] = xf
	f.updates++
	return nil
}

func (f *fakeScene) DeleteProxy(id string) error {
	delete(f.proxies, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// 1 mm = 1 unit, Y-up
func unitConfig(move, yaw float64) models.MotionConfig {
	return models.MotionConfig{
		UnitsPerMM:      1,
		MoveSpeed:       move,
		YawSpeed:        yaw,
		PositionEpsilon: 0.001,
		YawEpsilon:      0.001,
		Axis:            models.DefaultAxisCorrection(),
	}
}

func TestSyncNewEntityPlacedAtTarget(t *testing.T) {
	scene := newFakeScene()
	s := NewSynchronizer(scene, unitConfig(100, 180))

	s.Sync([]models.EntitySnapshot{{ID: "1", XMM: 500, YMM: 250, YawDeg: 45}})

	p, ok := s.Pose("1")
	require.True(t, ok)
	assert.Equal(t, 500.0, p.CurrentU)
	assert.Equal(t, 250.0, p.CurrentV)
	assert.Equal(t, 45.0, p.CurrentYawDeg)
	assert.Equal(t, []string{"1"}, scene.created)
	assert.Equal(t, models.Vec3{X: 500, Y: 0, Z: 250}, scene.proxies["1"].Translate)
}

func TestUpdateScenarioR1(t *testing.T) {
	scene := newFakeScene()
	s := NewSynchronizer(scene, unitConfig(100, 180))

	s.Sync([]models.EntitySnapshot{{ID: "R1", XMM: 0, YMM: 0, YawDeg: 0}})
	s.Sync([]models.EntitySnapshot{{ID: "R1", XMM: 1000, YMM: 0, YawDeg: 90}})
	s.Update(1.0)

	p, _ := s.Pose("R1")
	assert.InDelta(t, 100.0, p.CurrentU, 1e-9)
	assert.InDelta(t, 0.0, p.CurrentV, 1e-9)
	assert.InDelta(t, 90.0, p.CurrentYawDeg, 1e-9)
}

func TestSyncReplacesVanishedEntity(t *testing.T) {
	scene := newFakeScene()
	s := NewSynchronizer(scene, unitConfig(100, 180))

	s.Sync([]models.EntitySnapshot{{ID: "A", XMM: 10, YMM: 20}})
	s.Sync([]models.EntitySnapshot{{ID: "B", XMM: 300, YMM: 400, YawDeg: -30}})

	_, okA := s.Pose("A")
	assert.False(t, okA)
	assert.Equal(t, []string{"A"}, scene.deleted)
	_, exists := scene.proxies["A"]
	assert.False(t, exists)

	b, okB := s.Pose("B")
	require.True(t, okB)
	assert.Equal(t, 300.0, b.CurrentU)
	assert.Equal(t, 400.0, b.CurrentV)
	assert.Equal(t, -30.0, b.CurrentYawDeg)
	assert.Equal(t, 1, s.Count())
}

func TestYawTakesShortArc(t *testing.T) {
	s := NewSynchronizer(newFakeScene(), unitConfig(100, 10))

	s.Sync([]models.EntitySnapshot{{ID: "1", YawDeg: 170}})
	s.Sync([]models.EntitySnapshot{{ID: "1", YawDeg: -170}})

	s.Update(1.0)
	p, _ := s.Pose("1")
	assert.InDelta(t, 180.0, p.CurrentYawDeg, 1e-9)

	s.Update(1.0)
	p, _ = s.Pose("1")
	assert.InDelta(t, -170.0, p.CurrentYawDeg, 1e-9)
}

func TestUpdateConvergesWithoutOvershoot(t *testing.T) {
	s := NewSynchronizer(newFakeScene(), unitConfig(30, 45))

	s.Sync([]models.EntitySnapshot{{ID: "1"}})
	s.Sync([]models.EntitySnapshot{{ID: "1", XMM: 300, YMM: 400, YawDeg: 100}})

	prevDist := 500.0
	for i := 0; i < 100; i++ {
		s.Update(0.5)
		p, _ := s.Pose("1")
		dist := math.Hypot(p.TargetU-p.CurrentU, p.TargetV-p.CurrentV)
		assert.LessOrEqual(t, dist, prevDist)
		assert.LessOrEqual(t, p.CurrentU, 300.0)
		assert.LessOrEqual(t, p.CurrentV, 400.0)
		assert.LessOrEqual(t, p.CurrentYawDeg, 100.0)
		prevDist = dist
	}

	p, _ := s.Pose("1")
	assert.Equal(t, p.TargetU, p.CurrentU)
	assert.Equal(t, p.TargetV, p.CurrentV)
	assert.Equal(t, p.TargetYawDeg, p.CurrentYawDeg)
}

func TestEpsilonSnapping(t *testing.T) {
	cfg := unitConfig(0, 0) // 속도 0 이어도 epsilon 이내면 스냅
	cfg.PositionEpsilon = 10
	cfg.YawEpsilon = 0.5
	s := NewSynchronizer(newFakeScene(), cfg)

	s.Sync([]models.EntitySnapshot{{ID: "1"}})
	s.Sync([]models.EntitySnapshot{{ID: "1", XMM: 6, YMM: 8, YawDeg: 0.4}})
	s.Update(0.016)

	p, _ := s.Pose("1")
	assert.Equal(t, 6.0, p.CurrentU)
	assert.Equal(t, 8.0, p.CurrentV)
	assert.Equal(t, 0.4, p.CurrentYawDeg)

	s.Sync([]models.EntitySnapshot{{ID: "1", XMM: 100, YMM: 8}})
	s.Update(1.0)
	p, _ = s.Pose("1")
	assert.Equal(t, 6.0, p.CurrentU, "zero speed never moves beyond epsilon")
}

func TestSyncIdempotentNoProxyChurn(t *testing.T) {
	scene := newFakeScene()
	s := NewSynchronizer(scene, unitConfig(100, 180))
	items := []models.EntitySnapshot{{ID: "1", XMM: 5}, {ID: "2", XMM: 7}}

	s.Sync(items)
	s.Sync(items)
	s.Sync(items)

	assert.Equal(t, []string{"1", "2"}, scene.created)
	assert.Empty(t, scene.deleted)

	before, _ := s.Pose("1")
	s.Update(1.0)
	after, _ := s.Pose("1")
	assert.Equal(t, before, after)
}

func TestSyncEmptyRemovesAll(t *testing.T) {
	scene := newFakeScene()
	s := NewSynchronizer(scene, unitConfig(100, 180))

	s.Sync([]models.EntitySnapshot{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	s.Sync(nil)

	assert.Equal(t, 0, s.Count())
	assert.Empty(t, scene.proxies)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, scene.deleted)
}

func TestSyncDuplicateIDLastWins(t *testing.T) {
	scene := newFakeScene()
	s := NewSynchronizer(scene, unitConfig(100, 180))

	s.Sync([]models.EntitySnapshot{
		{ID: "1", XMM: 10},
		{ID: "2", XMM: 20},
		{ID: "1", XMM: 99},
	})

	p, _ := s.Pose("1")
	assert.Equal(t, 99.0, p.CurrentU)
	assert.Equal(t, []string{"1", "2"}, scene.created)
}

func TestSyncNonFiniteBecomesZero(t *testing.T) {
	s := NewSynchronizer(newFakeScene(), unitConfig(100, 180))

	s.Sync([]models.EntitySnapshot{{ID: "1", XMM: math.NaN(), YMM: math.Inf(1), YawDeg: math.Inf(-1)}})

	p, _ := s.Pose("1")
	assert.Equal(t, 0.0, p.CurrentU)
	assert.Equal(t, 0.0, p.CurrentV)
	assert.Equal(t, 0.0, p.CurrentYawDeg)
}

func TestAxisCorrectionZUp(t *testing.T) {
	scene := newFakeScene()
	cfg := models.NewMotionConfig(0.01, 900, 110, 10, 0.5, true)
	cfg.Axis.SignV = -1
	cfg.Axis.YawOffsetDeg = 90
	s := NewSynchronizer(scene, cfg)

	s.Sync([]models.EntitySnapshot{{ID: "1", XMM: 1000, YMM: 2000, YawDeg: 0}})

	xf := scene.proxies["1"]
	assert.InDelta(t, 100.0, xf.Translate.X, 1e-9)
	assert.InDelta(t, -200.0, xf.Translate.Y, 1e-9)
	assert.Equal(t, 0.0, xf.Translate.Z)
	assert.Equal(t, models.Vec3{X: 90, Y: 0, Z: 90}, xf.RotateXYZ)
}

func TestFaultIsolationPerEntity(t *testing.T) {
	scene := newFakeScene()
	scene.failCreate["bad"] = true
	scene.panicUpdate["boom"] = true
	s := NewSynchronizer(scene, unitConfig(100, 180))

	assert.NotPanics(t, func() {
		s.Sync([]models.EntitySnapshot{{ID: "bad"}, {ID: "boom"}, {ID: "ok"}})
	})
	_, tracked := s.Pose("bad")
	assert.False(t, tracked)
	assert.Equal(t, 2, s.Count())

	s.Sync([]models.EntitySnapshot{{ID: "boom", XMM: 1000}, {ID: "ok", XMM: 1000}})
	assert.NotPanics(t, func() { s.Update(1.0) })

	ok, _ := s.Pose("ok")
	assert.InDelta(t, 100.0, ok.CurrentU, 1e-9)
	assert.Equal(t, 100.0, scene.proxies["ok"].Translate.X)
}

func TestTickClampsDelta(t *testing.T) {
	scene := newFakeScene()
	s := NewSynchronizer(scene, unitConfig(1000, 180))
	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time { return clock }
	s.lastTick = clock

	s.Sync([]models.EntitySnapshot{{ID: "1"}})
	s.Sync([]models.EntitySnapshot{{ID: "1", XMM: 10000}})

	clock = clock.Add(5 * time.Second)
	s.Tick()
	p, _ := s.Pose("1")
	assert.InDelta(t, 100.0, p.CurrentU, 1e-9, "dt clamped to 100ms")

	clock = clock.Add(-time.Second)
	s.Tick()
	p, _ = s.Pose("1")
	assert.InDelta(t, 100.0, p.CurrentU, 1e-9, "negative dt ignored")

	clock = clock.Add(50 * time.Millisecond)
	s.Tick()
	p, _ = s.Pose("1")
	assert.InDelta(t, 150.0, p.CurrentU, 1e-9)
}

func TestNormalizeDeg(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  180,
		-180: 180,
		190:  -170,
		-190: 170,
		540:  180,
		720:  0,
		-45:  -45,
	}
	for in, want := range cases {
		assert.InDelta(t, want, NormalizeDeg(in), 1e-9, "in=%v", in)
	}
	assert.Equal(t, 0.0, NormalizeDeg(math.NaN()))

	// 범위 안의 값은 그대로
	for _, in := range []float64{0.4, -0.1, 179.9, 33.3} {
		assert.Equal(t, in, NormalizeDeg(in))
	}
}
