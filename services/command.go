package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"metafactory-twin/models"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingField   = errors.New("required field missing")
)

// commandAllowList - dataType 별 전송 허용 필드
var commandAllowList = map[string][]string{
	models.DataTypeManualMove:     {"dataType", "mapCode", "amrId", "targetNodeCode"},
	models.DataTypeManualRackMove: {"dataType", "mapCode", "amrId", "containerCode", "targetNodeCode"},
	models.DataTypeAMRPause:       {"dataType", "mapCode", "amrId"},
	models.DataTypeAMRResume:      {"dataType", "mapCode", "amrId"},
	models.DataTypeMissionCancel:  {"dataType", "mapCode", "amrId", "cancelMissionCode", "nodeCode"},
}

// commandRequired - 필수 필드 (안쪽 목록은 그 중 하나만 있으면 된다)
var commandRequired = map[string][][]string{
	models.DataTypeManualMove:     {{"amrId"}, {"targetNodeCode"}},
	models.DataTypeManualRackMove: {{"amrId"}, {"containerCode"}, {"targetNodeCode"}},
	models.DataTypeAMRPause:       {{"amrId"}},
	models.DataTypeAMRResume:      {{"amrId"}},
	models.DataTypeMissionCancel:  {{"cancelMissionCode", "nodeCode"}},
}

// CommandLabels - 제어 패널 표시 이름 → dataType
var CommandLabels = map[string]string{
	"Move":      models.DataTypeManualMove,
	"Rack Move": models.DataTypeManualRackMove,
	"Pause":     models.DataTypeAMRPause,
	"Resume":    models.DataTypeAMRResume,
	"Cancel":    models.DataTypeMissionCancel,
}

// ResolveCommandType - 표시 이름 또는 dataType → dataType
func ResolveCommandType(name string) (string, error) {
	name = strings.TrimSpace(name)
	if _, ok := commandAllowList[name]; ok {
		return name, nil
	}
	if dt, ok := CommandLabels[name]; ok {
		return dt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// CanonNodeCode - 노드 코드 정규화 (대문자, 공백 제거, 앞의 '.' → '_')
func CanonNodeCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	if strings.HasPrefix(s, ".") {
		s = "_" + s[1:]
	}
	return s
}

// isPlaceholder - "", "-", null 은 값 없음으로 본다
func isPlaceholder(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		return s == "" || s == "-"
	}
	return false
}

// BuildCommandPayload - 허용 목록 적용 + 필수 필드 검증
//
// 허용 목록 밖이거나 값이 비어있는 필드는 제거하고 dropped 로 돌려준다.
// 필수 필드가 빠지면 ErrMissingField.
func BuildCommandPayload(dataType, mapCode string, fields map[string]interface{}) (map[string]interface{}, []string, error) {
	dt, err := ResolveCommandType(dataType)
	if err != nil {
		return nil, nil, err
	}

	allowed := make(map[string]bool)
	for _, k := range commandAllowList[dt] {
		allowed[k] = true
	}

	payload := map[string]interface{}{
		"dataType": dt,
		"mapCode":  mapCode,
	}
	var dropped []string

	for k, v := range fields {
		if k == "dataType" {
			continue
		}
		if !allowed[k] || isPlaceholder(v) {
			dropped = append(dropped, k)
			continue
		}
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if k == "targetNodeCode" {
				s = CanonNodeCode(s)
			}
			v = s
		}
		payload[k] = v
	}
	sort.Strings(dropped)

	if isPlaceholder(payload["mapCode"]) {
		payload["mapCode"] = DefaultMapCode
	}

	for _, group := range commandRequired[dt] {
		found := false
		for _, k := range group {
			if _, ok := payload[k]; ok {
				found = true
				break
			}
		}
		if !found {
			return payload, dropped, fmt.Errorf("%w: %s (%s)", ErrMissingField, strings.Join(group, " or "), dt)
		}
	}
	return payload, dropped, nil
}

// ========================================
// 명령 전송
// ========================================

// CommandPoster - /DigitalTwin 단건 전송 (DigitalTwinClient)
type CommandPoster interface {
	PostDigitalTwin(ctx context.Context, payload map[string]interface{}) (*models.CommonResponse, error)
}

// CommandService - 운영자 명령 검증 후 오퍼레이션 서버로 전송
type CommandService struct {
	poster  CommandPoster
	mapCode string
}

// NewCommandService - 명령 서비스 생성
func NewCommandService(poster CommandPoster, mapCode string) *CommandService {
	return &CommandService{poster: poster, mapCode: mapCode}
}

// Dispatch - 명령 전송, 결과는 이벤트 로그에도 남긴다
func (s *CommandService) Dispatch(ctx context.Context, req models.CommandRequest) (models.CommandResult, error) {
	result := models.CommandResult{
		RequestID: uuid.New().String(),
		DataType:  req.DataType,
	}

	payload, dropped, err := BuildCommandPayload(req.DataType, s.mapCode, req.Fields)
	result.Payload = payload
	result.DroppedFields = dropped
	if dt, ok := payload["dataType"].(string); ok {
		result.DataType = dt
	}
	if err != nil {
		result.Message = err.Error()
		log.Printf("⚠️ [Command] 거부 (%s): %v", req.DataType, err)
		LogCommand(result)
		return result, err
	}
	if len(dropped) > 0 {
		log.Printf("ℹ️ [Command] %s 필드 제거: %v", result.DataType, dropped)
	}

	res, err := s.poster.PostDigitalTwin(ctx, payload)
	if err != nil {
		result.Message = err.Error()
		log.Printf("❌ [Command] %s 전송 실패: %v", result.DataType, err)
		LogCommand(result)
		return result, fmt.Errorf("명령 전송 실패: %w", err)
	}

	result.Success = res.Success
	result.Message = res.Message
	log.Printf("📤 [Command] %s → success=%v %s", result.DataType, res.Success, res.Message)
	LogCommand(result)
	return result, nil
}

// CancelMissionRow - 미션 리스트 한 줄 취소
//
// 예약 행은 process 를 nodeCode 로, 나머지는 missionCode 를 cancelMissionCode 로 보낸다.
func (s *CommandService) CancelMissionRow(ctx context.Context, row models.MissionRow) (models.CommandResult, error) {
	fields := map[string]interface{}{"amrId": row.AMRID}
	if row.MissionStatus == models.MissionStatusReservation {
		fields["nodeCode"] = row.Process
	} else {
		fields["cancelMissionCode"] = row.MissionCode
	}
	return s.Dispatch(ctx, models.CommandRequest{
		DataType: models.DataTypeMissionCancel,
		Fields:   fields,
	})
}
