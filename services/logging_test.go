package services

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"metafactory-twin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func useTestDB(t *testing.T) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "twin.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, UseDatabase(conn))
	t.Cleanup(func() {
		db = nil
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
}

func TestHelpersWithoutLogging(t *testing.T) {
	assert.NotPanics(t, func() {
		LogAliveChange(models.StatusOperationServer, true)
		LogServerError("AMRInfo", "boom")
		LogCommand(models.CommandResult{})
		LogAMRSnapshot(nil)
		LogChat(models.ChatRoleUser, "hi")
	})

	_, err := GetRecentLogs("", 10)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = GetLogStats(1)
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestLogBufferFlushOnStop(t *testing.T) {
	useTestDB(t)
	InitLogging(100, time.Hour)

	LogAliveChange(models.StatusOperationServer, false)
	LogServerError(models.DataTypeWorkingInfo, "timeout")
	LogAMRSnapshot([]models.EntitySnapshot{{ID: "7", XMM: 1200, YMM: -300, YawDeg: 45}, {ID: "8"}})
	LogCommand(models.CommandResult{
		RequestID: "req-1",
		DataType:  models.DataTypeManualMove,
		Payload:   map[string]interface{}{"amrId": "7", "targetNodeCode": "RR_Floor_1"},
		Success:   true,
	})
	LogChat(models.ChatRoleBot, "answer")

	assert.Equal(t, 5, logBuffer.Load().Pending())
	StopLogging()
	assert.Nil(t, logBuffer.Load())

	logs, err := GetRecentLogs("", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 5)

	byAMR, err := GetRecentLogs("7", 10)
	require.NoError(t, err)
	require.Len(t, byAMR, 2)

	snaps, err := GetLogsByEventType(models.EventAMRSnapshot, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 2, snaps[0].AMRCount)
	assert.Equal(t, 1200.0, snaps[0].PosXMM)
	assert.Equal(t, 45.0, snaps[0].YawDeg)

	cmds, err := GetLogsByEventType(models.EventCommand, 10)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "req-1", cmds[0].RequestID)
	assert.Contains(t, cmds[0].DataJSON, "RR_Floor_1")

	stats, err := GetLogStats(1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats["total_logs"])
	counts := stats["event_counts"].(map[string]int64)
	assert.Equal(t, int64(1), counts[models.EventChat])
}

func TestAddLogRacingStopIsNotLost(t *testing.T) {
	useTestDB(t)
	InitLogging(1000, time.Hour)
	lb := logBuffer.Load()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				LogChat(models.ChatRoleUser, "hi")
			}
		}()
	}
	StopLogging()
	wg.Wait()

	// 종료 전에 버퍼를 잡은 로그는 모두 저장되고 버퍼에 남지 않는다
	assert.Zero(t, lb.Pending())
	logs, err := GetRecentLogs("", 1000)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(logs), 100)

	// 닫힌 버퍼에 직접 넣어도 저장된다
	before := len(logs)
	logBuffer.Store(lb)
	LogChat(models.ChatRoleBot, "late")
	logBuffer.Store(nil)
	logs, err = GetRecentLogs("", 1000)
	require.NoError(t, err)
	assert.Len(t, logs, before+1)
	assert.Zero(t, lb.Pending())
}

func TestLogsByTimeRange(t *testing.T) {
	useTestDB(t)
	now := time.Now()
	require.NoError(t, db.Create(&[]models.TwinLog{
		{CreatedAt: now.Add(-2 * time.Hour), EventType: models.EventChat},
		{CreatedAt: now.Add(-30 * time.Minute), EventType: models.EventChat},
		{CreatedAt: now.Add(-10 * time.Minute), EventType: models.EventCommand},
	}).Error)

	logs, err := GetLogsByTimeRange(now.Add(-time.Hour), now, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.EventCommand, logs[0].EventType)

	logs, err = GetLogsByTimeRange(now.Add(-3*time.Hour), now, 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
