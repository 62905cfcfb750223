package services

import (
	"fmt"
	"log"
	"metafactory-twin/models"
	"sync"
	"time"
)

// ========================================
// 에러 로그 (하단 바)
// ========================================

const (
	errorLogLines    = 5
	errorMergeWindow = 20 * time.Second
	errorMaxRepeat   = 5
)

// ErrorLog - 최근 에러 5줄 FIFO
//
// 같은 문구가 20초 안에 반복되면 새 줄 대신 마지막 줄에 (xN) 을 붙인다 (N 은 최대 5).
type ErrorLog struct {
	mu        sync.Mutex
	lines     []string
	last      string
	lastTime  time.Time
	lastCount int
	now       func() time.Time
}

// NewErrorLog - 빈 에러 로그
func NewErrorLog() *ErrorLog {
	return &ErrorLog{now: time.Now}
}

// Append - 에러 한 줄 추가
func (e *ErrorLog) Append(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if text == e.last && now.Sub(e.lastTime) < errorMergeWindow && len(e.lines) > 0 {
		e.lastTime = now
		if e.lastCount < errorMaxRepeat {
			e.lastCount++
		}
		e.lines[len(e.lines)-1] = fmt.Sprintf("[Error] %s (x%d)", text, e.lastCount)
		return
	}

	e.last = text
	e.lastTime = now
	e.lastCount = 1

	e.lines = append(e.lines, "[Error] "+text)
	if len(e.lines) > errorLogLines {
		e.lines = e.lines[len(e.lines)-errorLogLines:]
	}
}

// Lines - 현재 표시 줄 (오래된 것부터)
func (e *ErrorLog) Lines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.lines...)
}

// ========================================
// 대시보드 상태
// ========================================

// NotifyFunc - 상태 변경 브로드캐스트 (WebSocket)
type NotifyFunc func(msgType string, data interface{})

// Dashboard - 상태 패널 / AMR 카드 / 컨테이너 / 미션 리스트 상태
//
// 쓰기는 메일박스 작업(프레임 고루틴)에서, 읽기는 HTTP 핸들러에서 한다.
type Dashboard struct {
	mu sync.RWMutex

	amrs       []models.AMRView
	amrSummary models.AMRSummary

	containers     []models.Container
	palletSummary  models.ContainerSummary
	working        []models.MissionRow
	waiting        []models.MissionRow
	reserved       []models.MissionRow
	missionSummary models.MissionSummary

	status    map[string]bool
	updatedAt time.Time

	errors *ErrorLog
	notify NotifyFunc
}

// NewDashboard - 모든 상태 점은 빨강(false)으로 시작
func NewDashboard() *Dashboard {
	status := make(map[string]bool, len(models.StatusLabels))
	for _, l := range models.StatusLabels {
		status[l] = false
	}
	return &Dashboard{
		status:    status,
		errors:    NewErrorLog(),
		updatedAt: time.Now(),
	}
}

// SetNotifier - 변경 알림 함수 설정
func (d *Dashboard) SetNotifier(fn NotifyFunc) {
	d.mu.Lock()
	d.notify = fn
	d.mu.Unlock()
}

func (d *Dashboard) emit(msgType string, data interface{}) {
	d.mu.RLock()
	fn := d.notify
	d.mu.RUnlock()
	if fn != nil {
		fn(msgType, data)
	}
}

// Attach - 폴링 클라이언트 콜백을 메일박스 작업으로 연결
//
// 파싱은 폴링 고루틴에서, 적용(대시보드 갱신 + Synchronizer.Sync)은 프레임 고루틴에서 한다.
func (d *Dashboard) Attach(client *DigitalTwinClient, mailbox *Mailbox, syncer *Synchronizer) {
	// 콜백 시점의 세대를 기록하고, 적용 전에 Stop/Start 가 있었으면 버린다
	post := func(job func()) {
		gen := client.Generation()
		mailbox.Post(func() {
			if client.Generation() != gen {
				return
			}
			job()
		})
	}

	client.OnAliveChange(func(alive bool) {
		LogAliveChange(models.StatusOperationServer, alive)
		post(func() { d.SetOperationAlive(alive) })
	})

	client.OnError(func(err error, endpoint string, payload map[string]interface{}) {
		label := endpoint
		if dt, ok := payload["dataType"].(string); ok && dt != "" {
			label = dt
		}
		msg := fmt.Sprintf("%s: %v", label, err)
		LogServerError(label, msg)
		post(func() { d.AppendError(msg) })
	})

	client.OnResponse(func(endpoint string, payload map[string]interface{}, res *models.CommonResponse) {
		dataType, _ := payload["dataType"].(string)
		if res == nil || !res.Success {
			msg := "Unknown error"
			if res != nil && res.Message != "" {
				msg = res.Message
			}
			LogServerError(dataType, msg)
			post(func() { d.AppendError("[Server] " + msg) })
			return
		}
		d.handleResponse(dataType, res, post, syncer)
	})
}

func (d *Dashboard) handleResponse(dataType string, res *models.CommonResponse, post func(func()), syncer *Synchronizer) {
	switch dataType {
	case models.DataTypeConnectionInfo:
		info := ParseConnectionInfo(res.Data)
		post(func() { d.ApplyConnectionInfo(info) })

	case models.DataTypeAMRInfo:
		views := ParseAMRs(res.Data)
		snaps := ParseSnapshots(res.Data)
		LogAMRSnapshot(snaps)
		post(func() {
			d.ApplyAMRs(views)
			if syncer != nil {
				syncer.Sync(snaps)
			}
		})

	case models.DataTypeContainerInfo:
		items := ParseContainers(res.Data)
		post(func() { d.ApplyContainers(items) })

	case models.DataTypeWorkingInfo:
		rows := ParseMissionRows(res.Data, false)
		inProgress := CountInProgress(res.Data)
		post(func() { d.ApplyWorking(rows, inProgress) })

	case models.DataTypeMissionInfo:
		n := CountItems(res.Data)
		post(func() { d.ApplyMissionCount(n) })

	case models.DataTypeReservationInfo:
		rows := ParseMissionRows(res.Data, true)
		post(func() { d.ApplyReservations(rows) })
	}
}

// ========================================
// 적용 (프레임 고루틴)
// ========================================

// SetOperationAlive - 서버 연결 상태, 끊기면 OPC UA / Storage I/O 도 빨강
func (d *Dashboard) SetOperationAlive(alive bool) {
	d.mu.Lock()
	d.status[models.StatusOperationServer] = alive
	if !alive {
		d.status[models.StatusOPCUA] = false
		d.status[models.StatusStorageIO] = false
	}
	d.touch()
	d.mu.Unlock()

	d.emit(models.MessageTypeAliveChange, models.AliveChangeData{Target: models.StatusOperationServer, Alive: alive})
	d.emit(models.MessageTypeDashboard, d.Snapshot())
}

// SetStatus - 임의 상태 점 갱신 (Fleet Server 등)
func (d *Dashboard) SetStatus(label string, ok bool) {
	d.mu.Lock()
	changed := d.status[label] != ok
	d.status[label] = ok
	d.touch()
	d.mu.Unlock()

	if changed {
		d.emit(models.MessageTypeAliveChange, models.AliveChangeData{Target: label, Alive: ok})
	}
	d.emit(models.MessageTypeDashboard, d.Snapshot())
}

// ApplyConnectionInfo - OPC UA / Storage I/O 상태
func (d *Dashboard) ApplyConnectionInfo(info models.ConnectionInfo) {
	d.mu.Lock()
	d.status[models.StatusOPCUA] = info.OPCUAStatus
	d.status[models.StatusStorageIO] = info.StorageStatus
	d.touch()
	d.mu.Unlock()
	d.emit(models.MessageTypeDashboard, d.Snapshot())
}

// ApplyAMRs - AMR 카드 목록 교체 (ID 정렬)
func (d *Dashboard) ApplyAMRs(views []models.AMRView) {
	byID := make(map[string]models.AMRView, len(views))
	ids := make([]string, 0, len(views))
	for _, v := range views {
		if _, dup := byID[v.ID]; !dup {
			ids = append(ids, v.ID)
		}
		byID[v.ID] = v
	}
	SortIDs(ids)
	sorted := make([]models.AMRView, 0, len(ids))
	for _, id := range ids {
		sorted = append(sorted, byID[id])
	}

	d.mu.Lock()
	d.amrs = sorted
	d.amrSummary = SummarizeAMRs(views)
	d.touch()
	d.mu.Unlock()
	d.emit(models.MessageTypeDashboard, d.Snapshot())
}

// ApplyContainers - 컨테이너 캐시 교체
func (d *Dashboard) ApplyContainers(items []models.Container) {
	d.mu.Lock()
	d.containers = items
	d.palletSummary = SummarizeContainers(items)
	d.touch()
	d.mu.Unlock()
	d.emit(models.MessageTypeDashboard, d.Snapshot())
}

// ApplyWorking - WorkingInfo 행 (working / waiting) + 진행 중 수
func (d *Dashboard) ApplyWorking(rows []models.MissionRow, inProgress int) {
	var working, waiting []models.MissionRow
	for _, r := range rows {
		if r.MissionStatus == models.MissionStatusWorking {
			working = append(working, r)
		} else {
			waiting = append(waiting, r)
		}
	}

	d.mu.Lock()
	d.working = working
	d.waiting = waiting
	d.missionSummary.InProgress = inProgress
	d.touch()
	d.mu.Unlock()
	d.emit(models.MessageTypeDashboard, d.Snapshot())
}

// ApplyMissionCount - MissionInfo 항목 수 = Reserved
func (d *Dashboard) ApplyMissionCount(n int) {
	d.mu.Lock()
	d.missionSummary.Reserved = n
	d.touch()
	d.mu.Unlock()
	d.emit(models.MessageTypeDashboard, d.Snapshot())
}

// ApplyReservations - 예약 행 교체
func (d *Dashboard) ApplyReservations(rows []models.MissionRow) {
	d.mu.Lock()
	d.reserved = rows
	d.touch()
	d.mu.Unlock()
}

// AppendError - 에러 로그 추가 + 브로드캐스트
func (d *Dashboard) AppendError(text string) {
	d.errors.Append(text)
	log.Printf("⚠️ [Dashboard] %s", text)
	d.emit(models.MessageTypeErrorLog, d.errors.Lines())
}

func (d *Dashboard) touch() {
	d.updatedAt = time.Now()
}

// ========================================
// 조회 (HTTP / WebSocket)
// ========================================

// Snapshot - 상태 패널 요약
func (d *Dashboard) Snapshot() models.DashboardSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := make(map[string]bool, len(d.status))
	for k, v := range d.status {
		status[k] = v
	}
	return models.DashboardSnapshot{
		AMR:       d.amrSummary,
		Pallets:   d.palletSummary,
		Missions:  d.missionSummary,
		Status:    status,
		Errors:    d.errors.Lines(),
		UpdatedAt: d.updatedAt,
	}
}

// AMRs - AMR 카드 목록 (숫자 ID 먼저)
func (d *Dashboard) AMRs() []models.AMRView {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.AMRView(nil), d.amrs...)
}

// AMR - 상세 패널
func (d *Dashboard) AMR(id string) (models.AMRView, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, v := range d.amrs {
		if v.ID == id {
			return v, true
		}
	}
	return models.AMRView{}, false
}

// AMRIDs - 제어 패널 드롭다운 항목
func (d *Dashboard) AMRIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.amrs))
	for _, v := range d.amrs {
		ids = append(ids, v.ID)
	}
	return ids
}

// Containers - 모델/상태 필터 적용 목록
func (d *Dashboard) Containers(model, status string) models.ContainerListing {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return models.ContainerListing{
		Items:        FilterContainers(d.containers, model, status),
		ModelOptions: ContainerModelOptions(d.containers),
		StatusOptions: []string{
			models.ContainerFilterAll,
			models.ContainerFilterOnMap,
			models.ContainerFilterOffMap,
		},
	}
}

// Missions - 섹션별 미션 행
func (d *Dashboard) Missions() models.MissionBoard {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return models.MissionBoard{
		Working:  append([]models.MissionRow{}, d.working...),
		Waiting:  append([]models.MissionRow{}, d.waiting...),
		Reserved: append([]models.MissionRow{}, d.reserved...),
	}
}

// MissionRow - 행 키로 조회 ("R:<process>" / "M:<missionCode>")
func (d *Dashboard) MissionRow(key string) (models.MissionRow, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, group := range [][]models.MissionRow{d.working, d.waiting, d.reserved} {
		for _, r := range group {
			if r.Key == key {
				return r, true
			}
		}
	}
	return models.MissionRow{}, false
}

// ErrorLines - 하단 바 에러 줄
func (d *Dashboard) ErrorLines() []string {
	return d.errors.Lines()
}
