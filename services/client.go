package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"metafactory-twin/models"
	"net/http"
	"strings"
	"sync"
	"time"
)

// 폴링 클라이언트 기본값
const (
	DefaultBaseURL      = "http://172.16.110.67:49000/"
	DefaultMapCode      = "RR_Floor"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultTimeout      = 5 * time.Second
	MinPollInterval     = 50 * time.Millisecond

	digitalTwinEndpoint = "DigitalTwin"
)

// ErrStopped - Stop 이후 도착한 응답은 버린다
var ErrStopped = errors.New("polling client stopped")

// 콜백 타입
type (
	AliveHandler    func(alive bool)
	RequestHandler  func(endpoint string, payload map[string]interface{})
	ResponseHandler func(endpoint string, payload map[string]interface{}, resp *models.CommonResponse)
	ErrorHandler    func(err error, endpoint string, payload map[string]interface{})
)

// DigitalTwinClient - 오퍼레이션 서버 /DigitalTwin 폴링 클라이언트
//
// 매 틱마다 ConnectionInfo 를 요청하고, kMReSStatus 가 true 면
// AMRInfo / ContainerInfo / WorkingInfo 를 추가로 요청한다.
// MissionInfo / ReservationInfo 는 ConnectionInfo 가 성공하면 항상 요청한다.
type DigitalTwinClient struct {
	httpClient *http.Client
	timeout    time.Duration

	mu         sync.Mutex
	baseURL    string
	mapCode    string
	interval   time.Duration
	alive      bool
	running    bool
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}

	// emitMu - 콜백 발행 중(RLock)에는 Stop 의 세대 증가(Lock)가 끼어들지 못한다
	emitMu sync.RWMutex

	cbMu       sync.RWMutex
	onAlive    []AliveHandler
	onRequest  []RequestHandler
	onResponse []ResponseHandler
	onError    []ErrorHandler
}

// NewDigitalTwinClient - 클라이언트 생성 (baseURL 은 끝에 / 보정)
func NewDigitalTwinClient(baseURL, mapCode string, timeout time.Duration) *DigitalTwinClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if mapCode == "" {
		mapCode = DefaultMapCode
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DigitalTwinClient{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		baseURL:    normalizeBaseURL(baseURL),
		mapCode:    mapCode,
		interval:   DefaultPollInterval,
	}
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(u, "/") + "/"
}

// BaseURL - 현재 서버 주소
func (c *DigitalTwinClient) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

// SetBaseURL - 서버 주소 변경 (다음 요청부터 적용)
func (c *DigitalTwinClient) SetBaseURL(u string) {
	c.mu.Lock()
	c.baseURL = normalizeBaseURL(u)
	c.mu.Unlock()
}

// MapCode - 요청에 실리는 mapCode
func (c *DigitalTwinClient) MapCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapCode
}

// IsAlive - 마지막 요청 기준 서버 응답 여부
func (c *DigitalTwinClient) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// Generation - Start/Stop 마다 증가하는 세대 번호
//
// 콜백 안에서 읽은 값이 적용 시점에 달라졌다면 그 사이 Stop 이 있었다는 뜻이다.
func (c *DigitalTwinClient) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Running - 폴링 루프 동작 여부
func (c *DigitalTwinClient) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ========================================
// 구독
// ========================================

func (c *DigitalTwinClient) OnAliveChange(h AliveHandler) {
	c.cbMu.Lock()
	c.onAlive = append(c.onAlive, h)
	c.cbMu.Unlock()
}

func (c *DigitalTwinClient) OnRequest(h RequestHandler) {
	c.cbMu.Lock()
	c.onRequest = append(c.onRequest, h)
	c.cbMu.Unlock()
}

func (c *DigitalTwinClient) OnResponse(h ResponseHandler) {
	c.cbMu.Lock()
	c.onResponse = append(c.onResponse, h)
	c.cbMu.Unlock()
}

func (c *DigitalTwinClient) OnError(h ErrorHandler) {
	c.cbMu.Lock()
	c.onError = append(c.onError, h)
	c.cbMu.Unlock()
}

// ========================================
// 시작 / 정지
// ========================================

// Start - 백그라운드 폴링 시작 (이미 동작 중이면 무시)
func (c *DigitalTwinClient) Start(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if interval < MinPollInterval {
		interval = MinPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.interval = interval
	c.generation++
	c.running = true
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.pollLoop(ctx, c.generation, c.done)
	log.Printf("🔄 [Twin] 폴링 시작 (map=%s, interval=%v, base=%s)", c.mapCode, interval, c.baseURL)
}

// Stop - 폴링 정지, 진행 중 요청은 취소하고 루프 종료를 잠시 기다린다
func (c *DigitalTwinClient) Stop() {
	c.emitMu.Lock()
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		c.emitMu.Unlock()
		return
	}
	c.running = false
	c.generation++
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	c.emitMu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(c.timeout + time.Second):
		log.Println("⚠️ [Twin] 폴링 루프 종료 대기 시간 초과")
	}
	log.Println("🛑 [Twin] 폴링 정지")
}

func (c *DigitalTwinClient) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.generation == gen
}

func (c *DigitalTwinClient) pollLoop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	for {
		start := time.Now()
		c.pollOnce(ctx, gen)

		c.mu.Lock()
		interval := c.interval
		c.mu.Unlock()

		wait := interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// pollOnce - 폴링 한 사이클
func (c *DigitalTwinClient) pollOnce(ctx context.Context, gen uint64) {
	res, err := c.post(ctx, gen, c.simplePayload(models.DataTypeConnectionInfo))
	if err != nil || res == nil {
		return
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "Unknown error"
		}
		log.Printf("⚠️ [Twin] ConnectionInfo 실패: %s", msg)
		return
	}

	steps := []string{models.DataTypeMissionInfo, models.DataTypeReservationInfo}
	if ParseConnectionInfo(res.Data).KMReSStatus {
		steps = append([]string{
			models.DataTypeAMRInfo,
			models.DataTypeContainerInfo,
			models.DataTypeWorkingInfo,
		}, steps...)
	}

	for _, dt := range steps {
		if ctx.Err() != nil {
			return
		}
		c.post(ctx, gen, c.simplePayload(dt))
	}
}

func (c *DigitalTwinClient) simplePayload(dataType string) map[string]interface{} {
	return map[string]interface{}{
		"dataType": dataType,
		"mapCode":  c.MapCode(),
	}
}

// ========================================
// HTTP
// ========================================

// PostDigitalTwin - /DigitalTwin 단건 요청 (운영자 명령 등, 폴링 루프 밖에서 사용)
func (c *DigitalTwinClient) PostDigitalTwin(ctx context.Context, payload map[string]interface{}) (*models.CommonResponse, error) {
	return c.post(ctx, 0, payload)
}

// post - 요청 전송 + 콜백 발행 + alive 갱신
//
// gen 이 0 이 아니면 응답 도착 시점에 세대를 확인하고, Stop 이후면 결과를 버린다.
func (c *DigitalTwinClient) post(ctx context.Context, gen uint64, payload map[string]interface{}) (*models.CommonResponse, error) {
	endpoint := digitalTwinEndpoint
	c.emitRequest(endpoint, payload)

	res, err := c.do(ctx, endpoint, payload)

	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if gen != 0 && !c.current(gen) {
		return nil, ErrStopped
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.setAlive(false)
		c.emitError(err, endpoint, payload)
		return nil, err
	}

	c.setAlive(true)
	c.emitResponse(endpoint, payload, res)
	return res, nil
}

func (c *DigitalTwinClient) do(ctx context.Context, endpoint string, payload map[string]interface{}) (*models.CommonResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("요청 JSON 마샬링 실패: %w", err)
	}

	url := c.BaseURL() + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s 호출 실패: %w", endpoint, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s 응답 읽기 실패: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	// 2xx 인데 JSON 이 아니면 빈 응답으로 본다
	var out models.CommonResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return &models.CommonResponse{}, nil
	}
	return &out, nil
}

func (c *DigitalTwinClient) setAlive(alive bool) {
	c.mu.Lock()
	if c.alive == alive {
		c.mu.Unlock()
		return
	}
	c.alive = alive
	c.mu.Unlock()

	if alive {
		log.Println("✅ [Twin] Operation Server alive")
	} else {
		log.Println("❌ [Twin] Operation Server down")
	}
	c.emitAlive(alive)
}

// ========================================
// 콜백 발행 (패닉 격리)
// ========================================

func (c *DigitalTwinClient) emitAlive(alive bool) {
	c.cbMu.RLock()
	hs := append([]AliveHandler(nil), c.onAlive...)
	c.cbMu.RUnlock()
	for _, h := range hs {
		safeCall("AliveChange", func() { h(alive) })
	}
}

func (c *DigitalTwinClient) emitRequest(endpoint string, payload map[string]interface{}) {
	c.cbMu.RLock()
	hs := append([]RequestHandler(nil), c.onRequest...)
	c.cbMu.RUnlock()
	for _, h := range hs {
		safeCall("Request", func() { h(endpoint, payload) })
	}
}

func (c *DigitalTwinClient) emitResponse(endpoint string, payload map[string]interface{}, res *models.CommonResponse) {
	c.cbMu.RLock()
	hs := append([]ResponseHandler(nil), c.onResponse...)
	c.cbMu.RUnlock()
	for _, h := range hs {
		safeCall("Response", func() { h(endpoint, payload, res) })
	}
}

func (c *DigitalTwinClient) emitError(err error, endpoint string, payload map[string]interface{}) {
	c.cbMu.RLock()
	hs := append([]ErrorHandler(nil), c.onError...)
	c.cbMu.RUnlock()
	for _, h := range hs {
		safeCall("Error", func() { h(err, endpoint, payload) })
	}
}

func safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [Twin] %s 콜백 panic: %v", name, r)
		}
	}()
	fn()
}
