package services

import (
	"fmt"
	"metafactory-twin/models"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 스테이지 기본 경로
const (
	WorldPath    = "/World"
	AMRGroupPath = "/World/AMRs"
)

// Stage - 리테인드 씬 문서 (프림 경로 → 변환)
//
// 쓰기는 프레임 고루틴에서만, 읽기는 HTTP/WebSocket 핸들러에서 한다.
type Stage struct {
	mu      sync.RWMutex
	id      string
	zUp     bool
	prims   map[string]*models.Prim
	version uint64
}

// NewStage - 빈 스테이지 생성 (/World 기본 프림 포함)
func NewStage(zUp bool) *Stage {
	st := &Stage{
		id:    uuid.New().String(),
		zUp:   zUp,
		prims: make(map[string]*models.Prim),
	}
	st.DefinePrim(WorldPath, models.PrimKindGroup, "")
	return st
}

// ID - 스테이지 문서 ID
func (st *Stage) ID() string {
	return st.id
}

// ZUp - 스테이지 up 축이 Z 인지
func (st *Stage) ZUp() bool {
	return st.zUp
}

// DefinePrim - 프림 정의 (이미 있으면 그대로 반환)
func (st *Stage) DefinePrim(path, kind, entityID string) *models.Prim {
	st.mu.Lock()
	defer st.mu.Unlock()

	if p, ok := st.prims[path]; ok {
		return p
	}
	p := &models.Prim{
		Path:      path,
		Kind:      kind,
		EntityID:  entityID,
		Scale:     models.Vec3{X: 1, Y: 1, Z: 1},
		UpdatedAt: time.Now(),
	}
	st.prims[path] = p
	st.version++
	return p
}

// HasPrim - 프림 존재 여부
func (st *Stage) HasPrim(path string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.prims[path]
	return ok
}

// GetPrim - 프림 복사본 조회
func (st *Stage) GetPrim(path string) (models.Prim, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	p, ok := st.prims[path]
	if !ok {
		return models.Prim{}, false
	}
	return *p, true
}

// SetTransform - translate / rotate 갱신
func (st *Stage) SetTransform(path string, translate, rotate models.Vec3) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.prims[path]
	if !ok {
		return fmt.Errorf("prim not found: %s", path)
	}
	if p.Translate == translate && p.RotateXYZ == rotate {
		return nil
	}
	p.Translate = translate
	p.RotateXYZ = rotate
	p.UpdatedAt = time.Now()
	st.version++
	return nil
}

// SetScale - 균등/비균등 스케일 설정
func (st *Stage) SetScale(path string, scale models.Vec3) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.prims[path]
	if !ok {
		return fmt.Errorf("prim not found: %s", path)
	}
	p.Scale = scale
	st.version++
	return nil
}

// SetColor - 표시 색상 설정
func (st *Stage) SetColor(path string, rgb models.Vec3) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.prims[path]
	if !ok {
		return fmt.Errorf("prim not found: %s", path)
	}
	c := rgb
	p.Color = &c
	st.version++
	return nil
}

// RemovePrim - 프림과 하위 프림 제거
func (st *Stage) RemovePrim(path string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := false
	prefix := path + "/"
	for p := range st.prims {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(st.prims, p)
			removed = true
		}
	}
	if removed {
		st.version++
	}
	return removed
}

// RemoveChildren - 부모는 남기고 자식만 제거
func (st *Stage) RemoveChildren(parent string) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	count := 0
	prefix := parent + "/"
	for p := range st.prims {
		if strings.HasPrefix(p, prefix) {
			delete(st.prims, p)
			count++
		}
	}
	if count > 0 {
		st.version++
	}
	return count
}

// Children - 직계 자식 경로 목록
func (st *Stage) Children(parent string) []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	prefix := parent + "/"
	var out []string
	for p := range st.prims {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Version - 변경 카운터
func (st *Stage) Version() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.version
}

// Snapshot - 뷰어 전송용 씬 프레임
func (st *Stage) Snapshot() models.SceneFrame {
	st.mu.RLock()
	defer st.mu.RUnlock()

	prims := make([]models.Prim, 0, len(st.prims))
	for _, p := range st.prims {
		prims = append(prims, *p)
	}
	sort.Slice(prims, func(i, j int) bool { return prims[i].Path < prims[j].Path })

	return models.SceneFrame{
		StageID: st.id,
		Version: st.version,
		ZUp:     st.zUp,
		Prims:   prims,
	}
}

// ========================================
// AMR 프록시 (Synchronizer Scene 구현)
// ========================================

// AMRScene - /World/AMRs 하위에 AMR 프록시를 관리
// 정리된 이름이 겹치는 ID 는 _2, _3 ... 접미사로 구분한다 (ID 하나당 프림 하나)
type AMRScene struct {
	stage *Stage
	scale float64

	mu    sync.Mutex
	paths map[string]string // ID → 프림 경로
	owner map[string]string // 프림 경로 → ID
}

// NewAMRScene - AMR 그룹 프림 보장 후 생성
func NewAMRScene(stage *Stage, scale float64) *AMRScene {
	if scale <= 0 {
		scale = 0.2
	}
	stage.DefinePrim(AMRGroupPath, models.PrimKindGroup, "")
	return &AMRScene{
		stage: stage,
		scale: scale,
		paths: make(map[string]string),
		owner: make(map[string]string),
	}
}

// PathOf - ID 에 할당된 프림 경로
func (a *AMRScene) PathOf(id string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	path, ok := a.paths[id]
	return path, ok
}

// assign - ID 에 충돌 없는 프림 경로 할당
func (a *AMRScene) assign(id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if path, ok := a.paths[id]; ok {
		return path
	}
	base := AMRPrimPath(id)
	path := base
	for n := 2; ; n++ {
		if _, taken := a.owner[path]; !taken && !a.stage.HasPrim(path) {
			break
		}
		path = fmt.Sprintf("%s_%d", base, n)
	}
	a.paths[id] = path
	a.owner[path] = id
	return path
}

// release - ID 의 경로 할당 해제
func (a *AMRScene) release(id string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	path, ok := a.paths[id]
	if ok {
		delete(a.paths, id)
		delete(a.owner, path)
	}
	return path, ok
}

// CreateProxy - AMR 프림 생성 + 초기 변환
func (a *AMRScene) CreateProxy(id string, xf models.ProxyTransform) error {
	path := a.assign(id)
	a.stage.DefinePrim(path, models.PrimKindAMR, id)
	if err := a.stage.SetScale(path, models.Vec3{X: a.scale, Y: a.scale, Z: a.scale}); err != nil {
		return err
	}
	return a.stage.SetTransform(path, xf.Translate, xf.RotateXYZ)
}

// UpdateProxy - AMR 프림 변환 갱신
func (a *AMRScene) UpdateProxy(id string, xf models.ProxyTransform) error {
	path, ok := a.PathOf(id)
	if !ok {
		return fmt.Errorf("proxy not found: %s", id)
	}
	return a.stage.SetTransform(path, xf.Translate, xf.RotateXYZ)
}

// DeleteProxy - AMR 프림 제거
func (a *AMRScene) DeleteProxy(id string) error {
	path, ok := a.release(id)
	if !ok {
		return fmt.Errorf("proxy not found: %s", id)
	}
	if !a.stage.RemovePrim(path) {
		return fmt.Errorf("prim not found: %s", path)
	}
	return nil
}

// AMRPrimPath - AMR ID → 프림 경로 (영숫자/_ 이외 문자는 _ 로 치환)
func AMRPrimPath(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	rid := b.String()
	if rid != "" && rid[0] >= '0' && rid[0] <= '9' {
		rid = "_" + rid
	}
	return AMRGroupPath + "/AMR_" + rid
}
