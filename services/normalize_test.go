package services

import (
	"encoding/json"
	"metafactory-twin/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnapshots(t *testing.T) {
	raw := json.RawMessage(`[
		{"robotId": "7", "x": 1200.5, "y": "300", "robotOrientation": 45},
		{"amrId": "AMR-2", "x": 10},
		{"x": 5, "y": 6},
		"garbage"
	]`)

	snaps := ParseSnapshots(raw)
	require.Len(t, snaps, 4)
	assert.Equal(t, models.EntitySnapshot{ID: "7", XMM: 1200.5, YMM: 300, YawDeg: 45}, snaps[0])
	assert.Equal(t, models.EntitySnapshot{ID: "AMR-2", XMM: 10}, snaps[1])
	assert.Equal(t, "3", snaps[2].ID)
	assert.Equal(t, "4", snaps[3].ID)
}

func TestParseSnapshotsNonArray(t *testing.T) {
	assert.Empty(t, ParseSnapshots(json.RawMessage(`{"robotId": "1"}`)))
	assert.Empty(t, ParseSnapshots(nil))
}

func TestParseAMRs(t *testing.T) {
	raw := json.RawMessage(`[
		{"robotId": "1", "status": 4, "liftStatus": true, "containerCode": "LR001",
		 "missionCode": "M-100", "nodeCode": "N_12", "batteryLevel": 85,
		 "x": 1000, "y": 2000, "robotOrientation": 90},
		{"robotId": "2", "status": "idle", "liftStatus": 0, "isWaiting": true, "battery": 0.4},
		{"robotId": "3", "robotStatus": "5"}
	]`)

	views := ParseAMRs(raw)
	require.Len(t, views, 3)

	a := views[0]
	assert.Equal(t, models.AMRStatusInTask, a.StatusCode)
	assert.Equal(t, "INTASK", a.Status)
	assert.Equal(t, "Up", a.Lift)
	assert.Equal(t, "LR001", a.Rack)
	assert.Equal(t, "M-100", a.Mission)
	assert.Equal(t, "M-100", a.WorkingType)
	assert.Equal(t, "N_12", a.NodeCode)
	assert.InDelta(t, 0.85, a.Battery, 1e-9)
	assert.Equal(t, "(1000.00, 2000.00)  θ=90.0°", a.Position)
	require.NotNil(t, a.XMM)
	assert.Equal(t, 1000.0, *a.XMM)

	b := views[1]
	assert.Equal(t, models.AMRStatusIdle, b.StatusCode)
	assert.Equal(t, "IDLE", b.Status)
	assert.Equal(t, "Down", b.Lift)
	assert.Equal(t, "Waiting", b.WorkingType)
	assert.Equal(t, "-", b.Rack)
	assert.Equal(t, "-", b.Position)
	assert.Nil(t, b.XMM)

	c := views[2]
	assert.Equal(t, models.AMRStatusCharging, c.StatusCode)
	assert.Equal(t, "CHARGING", c.Status)
	assert.Equal(t, "-", c.Lift)
	assert.Equal(t, "-", c.WorkingType)

	sum := SummarizeAMRs(views)
	assert.Equal(t, models.AMRSummary{Total: 3, Working: 1, Waiting: 1, Charging: 1}, sum)
}

func TestSummarizeAMRsIgnoresOtherStates(t *testing.T) {
	views := []models.AMRView{
		{StatusCode: models.AMRStatusExit},
		{StatusCode: models.AMRStatusOffline},
		{StatusCode: models.AMRStatusException},
		{StatusCode: models.AMRStatusInTask},
	}
	assert.Equal(t, models.AMRSummary{Total: 4, Working: 1}, SummarizeAMRs(views))
}

func TestSortIDs(t *testing.T) {
	ids := []string{"10", "b", "2", "a", "1"}
	SortIDs(ids)
	assert.Equal(t, []string{"1", "2", "10", "a", "b"}, ids)
}

func TestParseContainers(t *testing.T) {
	raw := json.RawMessage(`[
		{"containerCode": "AR0001", "containerModelCode": 3, "inMapStatus": 1, "isCarry": false},
		{"containerCode": "LF0002", "isOffMap": true},
		{"containerCode": "PX03", "nodeCode": "N_5", "carryStatus": "moving"},
		{"nodeCode": "offmap"}
	]`)

	items := ParseContainers(raw)
	require.Len(t, items, 4)

	assert.Equal(t, "AR", items[0].ModelCode)
	assert.True(t, items[0].InMapStatus)
	assert.Equal(t, models.CarryStationary, items[0].CarryKind)

	assert.Equal(t, "LF", items[1].ModelCode)
	assert.False(t, items[1].InMapStatus)

	assert.Equal(t, "PX", items[2].ModelCode)
	assert.True(t, items[2].InMapStatus)
	assert.Equal(t, models.CarryInHandling, items[2].CarryKind)

	assert.Equal(t, "C004", items[3].Code)
	assert.Equal(t, "C", items[3].ModelCode)
	assert.False(t, items[3].InMapStatus)

	sum := SummarizeContainers(items)
	assert.Equal(t, models.ContainerSummary{Total: 4, OffMap: 2, Stationary: 1, InHandling: 1}, sum)

	assert.Equal(t, []string{"All", "AR", "C", "LF", "PX"}, ContainerModelOptions(items))

	onMap := FilterContainers(items, "All", models.ContainerFilterOnMap)
	assert.Len(t, onMap, 2)
	offMapLF := FilterContainers(items, "LF", models.ContainerFilterOffMap)
	require.Len(t, offMapLF, 1)
	assert.Equal(t, "LF0002", offMapLF[0].Code)
}

func TestCanonModel(t *testing.T) {
	assert.Equal(t, "P", CanonModel(float64(6), ""))
	assert.Equal(t, "9", CanonModel(float64(9), ""))
	assert.Equal(t, "AC", CanonModel("4", ""))
	assert.Equal(t, "AF", CanonModel(" af ", ""))
	assert.Equal(t, "LR", CanonModel("none", "lr-17"))
	assert.Equal(t, "-", CanonModel(nil, "123"))
}

func TestParseConnectionInfo(t *testing.T) {
	info := ParseConnectionInfo(json.RawMessage(`{"kMReSStatus": true, "opcUaStatus": 1, "storageStatus": false}`))
	assert.Equal(t, models.ConnectionInfo{KMReSStatus: true, OPCUAStatus: true}, info)

	info = ParseConnectionInfo(json.RawMessage(`[{"kMReSStatus": false, "storageIOStatus": true}]`))
	assert.Equal(t, models.ConnectionInfo{StorageStatus: true}, info)

	assert.Equal(t, models.ConnectionInfo{}, ParseConnectionInfo(json.RawMessage(`null`)))
}

func TestParseMissionRows(t *testing.T) {
	working := ParseMissionRows(json.RawMessage(`[
		{"missionCode": "M1", "process": "P1", "robotIds": ["3"], "targetNode": "N_1"},
		{"missionCode": "M2", "process": "P2", "robotIds": []}
	]`), false)
	require.Len(t, working, 2)
	assert.Equal(t, models.MissionStatusWorking, working[0].MissionStatus)
	assert.Equal(t, "M:M1", working[0].Key)
	assert.Equal(t, "3", working[0].AMRID)
	assert.Equal(t, models.MissionStatusWaiting, working[1].MissionStatus)

	reserved := ParseMissionRows(json.RawMessage(`[{"process": "PROC_9", "missionCode": "M9"}]`), true)
	require.Len(t, reserved, 1)
	assert.Equal(t, models.MissionStatusReservation, reserved[0].MissionStatus)
	assert.Equal(t, "R:PROC_9", reserved[0].Key)

	assert.Equal(t, 1, CountInProgress(json.RawMessage(`[{"robotIds": ["1"]}, {"robotIds": null}, {}]`)))
	assert.Equal(t, 3, CountItems(json.RawMessage(`[{}, {}, {}]`)))
}
