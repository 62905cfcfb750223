package services

import (
	"encoding/json"
	"fmt"
	"log"
	"metafactory-twin/models"
	"sync"
	"sync/atomic"
	"time"
)

// LogBuffer - 이벤트 로그 버퍼 (비동기 일괄 저장)
type LogBuffer struct {
	logs      []models.TwinLog
	mu        sync.Mutex
	flushSize int           // 일괄 저장 크기
	flushTime time.Duration // 자동 플러시 시간
	closed    bool // StopLogging 이후 AddLog 는 버퍼를 거치지 않고 바로 저장
	stopChan  chan struct{}
	done      chan struct{}
}

// 폴링/핑/핸들러 고루틴이 동시에 읽는다
var logBuffer atomic.Pointer[LogBuffer]

// InitLogging - 로깅 시스템 초기화
func InitLogging(flushSize int, flushInterval time.Duration) {
	if flushSize <= 0 {
		flushSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	lb := &LogBuffer{
		logs:      make([]models.TwinLog, 0, flushSize*2),
		flushSize: flushSize,
		flushTime: flushInterval,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	logBuffer.Store(lb)

	// 자동 플러시 고루틴 시작
	go lb.autoFlush()

	log.Printf("✅ 로깅 시스템 초기화 완료 (flushSize: %d, flushInterval: %v)", flushSize, flushInterval)
}

// autoFlush - 주기적 로그 저장
func (lb *LogBuffer) autoFlush() {
	defer close(lb.done)

	ticker := time.NewTicker(lb.flushTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lb.Flush()
		case <-lb.stopChan:
			lb.Flush() // 종료 시 남은 로그 저장
			return
		}
	}
}

// AddLog - 로그 버퍼에 추가 (로깅 미초기화 시 무시)
func AddLog(entry models.TwinLog) {
	lb := logBuffer.Load()
	if lb == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	lb.mu.Lock()
	if lb.closed {
		lb.mu.Unlock()
		saveLogs([]models.TwinLog{entry})
		return
	}
	lb.logs = append(lb.logs, entry)
	size := len(lb.logs)
	lb.mu.Unlock()

	// 버퍼 크기가 차면 즉시 플러시
	if size >= lb.flushSize {
		go lb.Flush()
	}
}

// Pending - 아직 저장되지 않은 로그 수
func (lb *LogBuffer) Pending() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.logs)
}

// Flush - 버퍼의 모든 로그를 DB에 저장
func (lb *LogBuffer) Flush() {
	lb.mu.Lock()
	if len(lb.logs) == 0 {
		lb.mu.Unlock()
		return
	}

	logsToSave := make([]models.TwinLog, len(lb.logs))
	copy(logsToSave, lb.logs)
	lb.logs = lb.logs[:0]
	lb.mu.Unlock()

	saveLogs(logsToSave)
}

func saveLogs(logs []models.TwinLog) {
	if db == nil {
		return
	}
	if err := db.CreateInBatches(logs, 100).Error; err != nil {
		log.Printf("❌ 로그 저장 실패: %v", err)
		return
	}
	log.Printf("💾 로그 %d개 저장 완료", len(logs))
}

// StopLogging - 로깅 시스템 종료 (남은 로그 저장 후 반환)
func StopLogging() {
	lb := logBuffer.Swap(nil)
	if lb == nil {
		return
	}
	lb.mu.Lock()
	lb.closed = true
	lb.mu.Unlock()
	close(lb.stopChan)
	<-lb.done
	log.Println("🛑 로깅 시스템 종료")
}

// ========================================
// 이벤트 헬퍼
// ========================================

// LogAliveChange - 서버 연결 상태 변경
func LogAliveChange(source string, alive bool) {
	msg := "down"
	if alive {
		msg = "up"
	}
	AddLog(models.TwinLog{
		EventType: models.EventAliveChange,
		Source:    source,
		Alive:     alive,
		Message:   msg,
	})
}

// LogServerError - 전송 실패 / success:false 응답
func LogServerError(dataType, message string) {
	AddLog(models.TwinLog{
		EventType: models.EventServerError,
		Source:    models.StatusOperationServer,
		DataType:  dataType,
		Message:   truncate(message, 1024),
	})
}

// LogCommand - 운영자 명령 결과
func LogCommand(result models.CommandResult) {
	payload, _ := json.Marshal(result.Payload)
	entry := models.TwinLog{
		EventType: models.EventCommand,
		Source:    "viewer",
		DataType:  result.DataType,
		Alive:     result.Success,
		Message:   truncate(result.Message, 1024),
		RequestID: result.RequestID,
		DataJSON:  string(payload),
	}
	if id, ok := result.Payload["amrId"]; ok {
		entry.AMRID = toString(id)
	}
	AddLog(entry)
}

// LogAMRSnapshot - 폴링 한 번의 AMR 수 + 첫 번째 포즈
func LogAMRSnapshot(snaps []models.EntitySnapshot) {
	entry := models.TwinLog{
		EventType: models.EventAMRSnapshot,
		Source:    models.StatusOperationServer,
		DataType:  models.DataTypeAMRInfo,
		AMRCount:  len(snaps),
	}
	if len(snaps) > 0 {
		entry.AMRID = snaps[0].ID
		entry.PosXMM = snaps[0].XMM
		entry.PosYMM = snaps[0].YMM
		entry.YawDeg = snaps[0].YawDeg
	}
	AddLog(entry)
}

// LogChat - 챗봇 질문/답변
func LogChat(role, text string) {
	AddLog(models.TwinLog{
		EventType: models.EventChat,
		Source:    role,
		Message:   truncate(text, 1024),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ========================================
// 조회
// ========================================

// GetRecentLogs - 최근 로그 (amrID 비어있으면 전체)
func GetRecentLogs(amrID string, limit int) ([]models.TwinLog, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	var logs []models.TwinLog
	query := db.Order("created_at DESC, id DESC")
	if amrID != "" {
		query = query.Where("amr_id = ?", amrID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}

// GetLogsByTimeRange - 시간 범위로 로그 조회
func GetLogsByTimeRange(start, end time.Time, limit int) ([]models.TwinLog, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	var logs []models.TwinLog
	query := db.Where("created_at BETWEEN ? AND ?", start, end)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Order("created_at DESC, id DESC").Find(&logs).Error
	return logs, err
}

// GetLogsByEventType - 이벤트 타입별 로그 조회
func GetLogsByEventType(eventType string, limit int) ([]models.TwinLog, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	var logs []models.TwinLog
	query := db.Where("event_type = ?", eventType).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}

// GetLogStats - 최근 hours 시간 동안의 이벤트 통계
func GetLogStats(hours int) (map[string]interface{}, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	var totalLogs int64
	if err := db.Model(&models.TwinLog{}).Where("created_at >= ?", since).Count(&totalLogs).Error; err != nil {
		return nil, err
	}

	var eventCounts []struct {
		EventType string
		Count     int64
	}
	err := db.Model(&models.TwinLog{}).
		Select("event_type, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("event_type").
		Scan(&eventCounts).Error
	if err != nil {
		return nil, err
	}

	eventMap := make(map[string]int64)
	for _, ec := range eventCounts {
		eventMap[ec.EventType] = ec.Count
	}

	return map[string]interface{}{
		"total_logs":   totalLogs,
		"event_counts": eventMap,
		"time_range":   fmt.Sprintf("Last %d hours", hours),
	}, nil
}
