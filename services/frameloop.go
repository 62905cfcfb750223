package services

import (
	"log"
	"metafactory-twin/models"
	"sync"
	"time"
)

// FrameLoop - 고정 주기 프레임 고루틴
//
// 매 프레임: 메일박스 비우기 → Synchronizer.Tick → 라인카 이동 → (변경 시) 씬 브로드캐스트.
// Synchronizer 와 Stage 의 유일한 writer 다.
type FrameLoop struct {
	mailbox *Mailbox
	syncer  *Synchronizer
	cars    *LineCarSpawner
	stage   *Stage

	frameInterval     time.Duration
	broadcastInterval time.Duration
	broadcast         func(models.SceneFrame)

	lastFrame     time.Time
	lastVersion   uint64
	lastBroadcast time.Time
	frames        uint64

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewFrameLoop - frameRate(Hz), broadcastInterval 로 생성 (cars 는 nil 가능)
func NewFrameLoop(mailbox *Mailbox, syncer *Synchronizer, cars *LineCarSpawner, stage *Stage, frameRate int, broadcastInterval time.Duration) *FrameLoop {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &FrameLoop{
		mailbox:           mailbox,
		syncer:            syncer,
		cars:              cars,
		stage:             stage,
		frameInterval:     time.Second / time.Duration(frameRate),
		broadcastInterval: broadcastInterval,
	}
}

// SetBroadcaster - 씬 프레임 전송 함수 (WebSocket)
func (f *FrameLoop) SetBroadcaster(fn func(models.SceneFrame)) {
	f.mu.Lock()
	f.broadcast = fn
	f.mu.Unlock()
}

// Start - 프레임 고루틴 시작 (중복 호출 무시)
func (f *FrameLoop) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	f.running = true
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	f.lastFrame = time.Now()

	go f.run(f.stop, f.done)
	log.Printf("🎞️ [Frame] 프레임 루프 시작 (interval=%v)", f.frameInterval)
}

// Stop - 프레임 고루틴 정지 후 종료 대기
func (f *FrameLoop) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	stop, done := f.stop, f.done
	f.mu.Unlock()

	close(stop)
	<-done
	log.Println("🛑 [Frame] 프레임 루프 정지")
}

func (f *FrameLoop) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(f.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			f.Frame(now)
		}
	}
}

// Frame - 프레임 한 번 (패닉은 프레임 단위로 격리)
func (f *FrameLoop) Frame(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [Frame] frame panic: %v", r)
		}
	}()

	dt := now.Sub(f.lastFrame)
	f.lastFrame = now
	if dt < 0 {
		dt = 0
	}
	if dt > maxTickDelta {
		dt = maxTickDelta
	}
	f.frames++

	f.mailbox.Drain()
	if f.syncer != nil {
		f.syncer.Tick()
	}
	if f.cars != nil {
		f.cars.Step(dt.Seconds(), now)
	}
	f.maybeBroadcast(now)
}

func (f *FrameLoop) maybeBroadcast(now time.Time) {
	if f.stage == nil {
		return
	}
	f.mu.Lock()
	fn := f.broadcast
	f.mu.Unlock()
	if fn == nil {
		return
	}

	v := f.stage.Version()
	if v == f.lastVersion {
		return
	}
	if now.Sub(f.lastBroadcast) < f.broadcastInterval {
		return
	}
	f.lastVersion = v
	f.lastBroadcast = now
	fn(f.stage.Snapshot())
}

// Frames - 실행된 프레임 수
func (f *FrameLoop) Frames() uint64 {
	return f.frames
}
