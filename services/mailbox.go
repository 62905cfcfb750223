package services

import (
	"log"
	"sync"
)

// Mailbox - 폴링 고루틴 → 프레임 고루틴 작업 전달 큐
//
// Post 는 어느 고루틴에서나 호출할 수 있고, Drain 은 프레임 고루틴에서만 호출한다.
type Mailbox struct {
	mu   sync.Mutex
	jobs []func()
}

// NewMailbox - 빈 메일박스
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Post - 작업 추가
func (m *Mailbox) Post(job func()) {
	if job == nil {
		return
	}
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()
}

// Len - 대기 중인 작업 수
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Drain - 쌓인 작업을 순서대로 실행하고 실행 개수를 반환
//
// 실행 중에 Post 된 작업은 다음 Drain 에서 처리된다.
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	jobs := m.jobs
	m.jobs = nil
	m.mu.Unlock()

	for _, job := range jobs {
		runJob(job)
	}
	return len(jobs)
}

func runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [Mailbox] job panic: %v", r)
		}
	}()
	job()
}
