package services

import (
	"encoding/json"
	"fmt"
	"math"
	"metafactory-twin/models"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ========================================
// 오퍼레이션 서버 응답 정규화
// ========================================
//
// 서버 필드는 버전마다 키 이름/타입이 조금씩 다르다.
// 여기서 한 번 정규화해 두고 나머지 코드는 models 타입만 다룬다.

// decodeItems - data 배열을 map 목록으로 (배열이 아니면 빈 목록)
func decodeItems(raw json.RawMessage) []map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var arr []interface{}
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(arr))
	for _, a := range arr {
		m, ok := a.(map[string]interface{})
		if !ok {
			m = map[string]interface{}{}
		}
		items = append(items, m)
	}
	return items
}

// ParseSnapshots - AMRInfo → 동기화용 스냅샷
func ParseSnapshots(raw json.RawMessage) []models.EntitySnapshot {
	items := decodeItems(raw)
	out := make([]models.EntitySnapshot, 0, len(items))
	for i, it := range items {
		id := firstTruthyString(it, "robotId", "amrId", "id")
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		x, _ := toFloat(it["x"])
		y, _ := toFloat(it["y"])
		yaw, _ := toFloat(it["robotOrientation"])
		out = append(out, models.EntitySnapshot{
			ID:     id,
			XMM:    finiteOrZero(x),
			YMM:    finiteOrZero(y),
			YawDeg: finiteOrZero(yaw),
		})
	}
	return out
}

// ========================================
// AMR
// ========================================

// ParseAMRs - AMRInfo → 카드/상세 패널 뷰
func ParseAMRs(raw json.RawMessage) []models.AMRView {
	items := decodeItems(raw)
	out := make([]models.AMRView, 0, len(items))
	for i, it := range items {
		out = append(out, amrView(it, i))
	}
	return out
}

func amrView(it map[string]interface{}, idx int) models.AMRView {
	id := firstTruthyString(it, "robotId", "amrId", "id", "name")
	if id == "" {
		id = strconv.Itoa(idx + 1)
	}

	rawStatus := firstPresent(it, "status", "robotStatus", "state")
	v := models.AMRView{
		ID:         id,
		StatusCode: amrStatusCode(it),
		Status:     formatStatus(rawStatus),
		Lift:       formatLift(firstPresent(it, "liftStatus", "lift_state")),
		Rack:       orDash(firstPresent(it, "containerCode", "palletCode", "container", "rack")),
		Mission:    orDash(firstPresent(it, "missionCode", "workingType", "missionType", "mission")),
		NodeCode:   orDash(firstPresent(it, "nodeCode")),
		Battery:    batteryFraction(firstPresent(it, "batteryLevel", "battery", "batteryPercent")),
		Position:   "-",
	}

	w := firstPresent(it, "workingType", "missionType", "mission")
	if !truthy(w) {
		w = firstPresent(it, "missionCode")
	}
	switch {
	case truthy(w):
		v.WorkingType = toString(w)
	case truthy(it["isWaiting"]):
		v.WorkingType = "Waiting"
	default:
		v.WorkingType = "-"
	}

	x, okX := toFloat(firstPresent(it, "x"))
	y, okY := toFloat(firstPresent(it, "y"))
	if okX && okY {
		x, y = finiteOrZero(x), finiteOrZero(y)
		v.XMM, v.YMM = &x, &y
		if th, ok := toFloat(firstPresent(it, "robotOrientation", "theta", "yaw")); ok {
			th = finiteOrZero(th)
			v.YawDeg = &th
			v.Position = fmt.Sprintf("(%.2f, %.2f)  θ=%.1f°", x, y, th)
		} else {
			v.Position = fmt.Sprintf("(%.2f, %.2f)", x, y)
		}
	}
	return v
}

// amrStatusCode - status/robotStatus/state → 숫자 코드 (모르면 0)
func amrStatusCode(it map[string]interface{}) int {
	s := firstTruthy(it, "status", "robotStatus", "state")
	switch t := s.(type) {
	case float64:
		return int(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case bool:
		if t {
			return 1
		}
		return 0
	}
	str := strings.TrimSpace(toString(s))
	if n, err := strconv.Atoi(str); err == nil {
		return n
	}
	switch strings.ToLower(str) {
	case "idle":
		return models.AMRStatusIdle
	case "intask", "running", "working":
		return models.AMRStatusInTask
	case "charging":
		return models.AMRStatusCharging
	}
	return models.AMRStatusUnknown
}

func formatStatus(v interface{}) string {
	if f, ok := v.(float64); ok {
		if name, ok := models.AMRStatusNames[int(f)]; ok {
			return name
		}
		return strconv.Itoa(int(f))
	}
	s := "-"
	if v != nil {
		s = strings.TrimSpace(toString(v))
	}
	if isDigits(s) {
		n, _ := strconv.Atoi(s)
		if name, ok := models.AMRStatusNames[n]; ok {
			return name
		}
		return s
	}
	if s == "" {
		return "-"
	}
	return strings.ToUpper(s)
}

func formatLift(v interface{}) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "Up"
		}
		return "Down"
	case float64:
		if t == 1 {
			return "Up"
		}
		if t == 0 {
			return "Down"
		}
	}
	return "-"
}

// batteryFraction - 0~1 로 정규화 (1 보다 크면 퍼센트로 본다)
func batteryFraction(v interface{}) float64 {
	b, ok := toFloat(v)
	if !ok || math.IsNaN(b) {
		return 0
	}
	if b > 1.0 {
		b /= 100.0
	}
	return math.Max(0, math.Min(1, b))
}

// SummarizeAMRs - 상태 패널 AMR 집계 (EXIT/OFFLINE/UPDATING/EXCEPTION 은 제외)
func SummarizeAMRs(views []models.AMRView) models.AMRSummary {
	sum := models.AMRSummary{Total: len(views)}
	for _, v := range views {
		switch v.StatusCode {
		case models.AMRStatusIdle:
			sum.Waiting++
		case models.AMRStatusInTask:
			sum.Working++
		case models.AMRStatusCharging:
			sum.Charging++
		}
	}
	return sum
}

// SortIDs - 숫자 ID 먼저 (수치 순), 나머지는 사전 순
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		ni, ei := strconv.Atoi(ids[i])
		nj, ej := strconv.Atoi(ids[j])
		switch {
		case ei == nil && ej == nil:
			return ni < nj
		case ei == nil:
			return true
		case ej == nil:
			return false
		}
		return ids[i] < ids[j]
	})
}

// ========================================
// 컨테이너
// ========================================

var alphaPrefix = regexp.MustCompile(`^[A-Z]+`)

// ParseContainers - ContainerInfo → 정규화된 컨테이너 목록
func ParseContainers(raw json.RawMessage) []models.Container {
	items := decodeItems(raw)
	out := make([]models.Container, 0, len(items))
	for i, it := range items {
		code := firstTruthyString(it, "containerCode", "id", "name")
		if code == "" {
			code = fmt.Sprintf("C%03d", i+1)
		}
		out = append(out, models.Container{
			Code:        code,
			ModelCode:   CanonModel(firstTruthy(it, "containerModelCode", "model"), code),
			InMapStatus: containerInMap(it),
			NodeCode:    toString(it["nodeCode"]),
			CarryKind:   carryKind(it),
			Raw:         it,
		})
	}
	return out
}

// CanonModel - 모델 enum/문자열 → 표기 (LR, LF, AR, AC, AF, P)
func CanonModel(raw interface{}, containerCode string) string {
	if f, ok := raw.(float64); ok {
		if name, ok := models.ContainerModelNames[int(f)]; ok {
			return name
		}
		return strconv.Itoa(int(f))
	}
	s := ""
	if raw != nil {
		s = strings.ToUpper(strings.TrimSpace(toString(raw)))
	}
	if s != "" && s != "-" && s != "NONE" {
		if isDigits(s) {
			n, _ := strconv.Atoi(s)
			if name, ok := models.ContainerModelNames[n]; ok {
				return name
			}
		}
		return s
	}
	if containerCode != "" {
		if m := alphaPrefix.FindString(strings.ToUpper(containerCode)); m != "" {
			return m
		}
	}
	return "-"
}

// containerInMap - inMapStatus → !isOffMap → nodeCode 순으로 판단
func containerInMap(c map[string]interface{}) bool {
	if v, ok := c["inMapStatus"]; ok {
		return asBool(v)
	}
	if v, ok := c["isOffMap"]; ok && v != nil {
		return !asBool(v)
	}
	node := strings.ToLower(strings.TrimSpace(toString(c["nodeCode"])))
	switch node {
	case "", "none", "off_map", "offmap":
		return false
	}
	return true
}

// carryKind - 정지(stationary) / 운반 중(in_handling) 분류
func carryKind(c map[string]interface{}) string {
	v, ok := c["isCarry"]
	if !ok || v == nil {
		v = firstTruthy(c, "carryStatus", "carry")
	}
	if b, ok := v.(bool); ok {
		if b {
			return models.CarryInHandling
		}
		return models.CarryStationary
	}
	if f, ok := v.(float64); ok {
		if int(f) == 0 {
			return models.CarryStationary
		}
		return models.CarryInHandling
	}
	s := strings.ToLower(strings.TrimSpace(toString(v)))
	if n, err := strconv.Atoi(s); err == nil {
		if n == 0 {
			return models.CarryStationary
		}
		return models.CarryInHandling
	}
	switch s {
	case "stationary", "stay", "parked":
		return models.CarryStationary
	}
	return models.CarryInHandling
}

// SummarizeContainers - 상태 패널 팔레트 집계
func SummarizeContainers(items []models.Container) models.ContainerSummary {
	sum := models.ContainerSummary{Total: len(items)}
	for _, c := range items {
		switch {
		case !c.InMapStatus:
			sum.OffMap++
		case c.CarryKind == models.CarryStationary:
			sum.Stationary++
		default:
			sum.InHandling++
		}
	}
	return sum
}

// FilterContainers - 모델/상태 필터 적용 (빈 값은 All)
func FilterContainers(items []models.Container, model, status string) []models.Container {
	out := make([]models.Container, 0, len(items))
	for _, c := range items {
		if model != "" && model != models.ContainerFilterAll && c.ModelCode != model {
			continue
		}
		if status == models.ContainerFilterOnMap && !c.InMapStatus {
			continue
		}
		if status == models.ContainerFilterOffMap && c.InMapStatus {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ContainerModelOptions - "All" + 정렬된 모델 목록
func ContainerModelOptions(items []models.Container) []string {
	seen := make(map[string]bool)
	var opts []string
	for _, c := range items {
		m := c.ModelCode
		if m == "" {
			m = "-"
		}
		if !seen[m] {
			seen[m] = true
			opts = append(opts, m)
		}
	}
	sort.Strings(opts)
	return append([]string{models.ContainerFilterAll}, opts...)
}

// ========================================
// 연결 상태 / 미션
// ========================================

// ParseConnectionInfo - data 는 객체 또는 배열의 첫 항목
func ParseConnectionInfo(raw json.RawMessage) models.ConnectionInfo {
	var info map[string]interface{}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err == nil {
		switch t := v.(type) {
		case map[string]interface{}:
			info = t
		case []interface{}:
			if len(t) > 0 {
				info, _ = t[0].(map[string]interface{})
			}
		}
	}
	if info == nil {
		return models.ConnectionInfo{}
	}
	return models.ConnectionInfo{
		KMReSStatus:   truthy(info["kMReSStatus"]),
		OPCUAStatus:   truthy(firstTruthy(info, "opcuaStatus", "opcUaStatus", "opcStatus")),
		StorageStatus: truthy(firstTruthy(info, "storageIOStatus", "storageStatus")),
	}
}

// ParseMissionRows - WorkingInfo/ReservationInfo 항목 → 미션 행
//
// WorkingInfo 는 robotIds 가 있으면 working, 없으면 waiting.
func ParseMissionRows(raw json.RawMessage, reservation bool) []models.MissionRow {
	items := decodeItems(raw)
	out := make([]models.MissionRow, 0, len(items))
	for _, it := range items {
		row := models.MissionRow{
			Process:     toString(firstTruthy(it, "process", "processCode")),
			MissionCode: toString(firstTruthy(it, "missionCode", "code")),
			TargetNode:  toString(firstTruthy(it, "targetNode", "targetNodeCode", "nodeCode")),
		}
		robots := it["robotIds"]
		row.AMRID = toString(firstTruthy(it, "amrId", "robotId"))
		if row.AMRID == "" {
			row.AMRID = joinIDs(robots)
		}

		switch {
		case reservation:
			row.MissionStatus = models.MissionStatusReservation
			row.Key = "R:" + row.Process
		case truthy(robots):
			row.MissionStatus = models.MissionStatusWorking
			row.Key = "M:" + row.MissionCode
		default:
			row.MissionStatus = models.MissionStatusWaiting
			row.Key = "M:" + row.MissionCode
		}
		out = append(out, row)
	}
	return out
}

// CountItems - data 배열 길이 (MissionInfo 예약 수 등)
func CountItems(raw json.RawMessage) int {
	return len(decodeItems(raw))
}

// CountInProgress - robotIds 가 있는 WorkingInfo 항목 수
func CountInProgress(raw json.RawMessage) int {
	n := 0
	for _, it := range decodeItems(raw) {
		if truthy(it["robotIds"]) {
			n++
		}
	}
	return n
}

func joinIDs(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := toString(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	case nil:
		return ""
	}
	return toString(v)
}

// ========================================
// 값 변환 헬퍼
// ========================================

// firstPresent - nil 이 아닌 첫 값
func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// firstTruthy - 비어있지 않은 첫 값 (0, "", false 는 건너뜀)
func firstTruthy(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v := m[k]; truthy(v) {
			return v
		}
	}
	return nil
}

func firstTruthyString(m map[string]interface{}, keys ...string) string {
	return toString(firstTruthy(m, keys...))
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	return true
}

// asBool - bool/숫자/"true","yes","on" 등
func asBool(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return int(t) != 0
	}
	switch strings.ToLower(strings.TrimSpace(toString(v))) {
	case "1", "true", "t", "y", "yes", "on":
		return true
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func orDash(v interface{}) string {
	if !truthy(v) {
		return "-"
	}
	return toString(v)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
