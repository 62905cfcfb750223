package services

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// HTTPPinger - HEAD 요청으로 서버 생존 여부를 주기적으로 확인
type HTTPPinger struct {
	url      string
	interval time.Duration
	client   *http.Client

	// 4xx/5xx 응답도 서버가 살아있는 것으로 본다
	treatHTTPErrorAsAlive bool
	onChange              func(alive bool)

	mu      sync.Mutex
	last    *bool
	running bool
	cancel  context.CancelFunc
}

// NewHTTPPinger - 핑어 생성 (기본 2초 간격, 1.5초 타임아웃)
func NewHTTPPinger(url string, interval, timeout time.Duration, onChange func(alive bool)) *HTTPPinger {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	return &HTTPPinger{
		url:                   url,
		interval:              interval,
		client:                &http.Client{Timeout: timeout},
		treatHTTPErrorAsAlive: true,
		onChange:              onChange,
	}
}

// SetTreatHTTPErrorAsAlive - HTTP 에러 상태 처리 방식
func (p *HTTPPinger) SetTreatHTTPErrorAsAlive(v bool) {
	p.treatHTTPErrorAsAlive = v
}

// Start - 백그라운드 핑 시작 (중복 호출 무시)
func (p *HTTPPinger) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	go p.run(ctx)
	log.Printf("📡 [Pinger] 시작 → %s (interval=%v)", p.url, p.interval)
}

// Stop - 핑 중지
func (p *HTTPPinger) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.cancel()
}

func (p *HTTPPinger) run(ctx context.Context) {
	for {
		alive := p.Ping(ctx)
		if ctx.Err() != nil {
			return
		}
		p.report(alive)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.interval):
		}
	}
}

// Ping - HEAD 한 번
func (p *HTTPPinger) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return p.treatHTTPErrorAsAlive
	}
	return true
}

// report - 상태가 바뀔 때만 onChange (첫 결과는 항상 알림)
func (p *HTTPPinger) report(alive bool) {
	p.mu.Lock()
	if p.last != nil && *p.last == alive {
		p.mu.Unlock()
		return
	}
	p.last = &alive
	p.mu.Unlock()

	if p.onChange != nil {
		safeCall("Pinger", func() { p.onChange(alive) })
	}
}
