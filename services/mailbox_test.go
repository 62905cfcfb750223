package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailboxDrainsInOrder(t *testing.T) {
	m := NewMailbox()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		m.Post(func() { got = append(got, i) })
	}
	m.Post(nil)

	assert.Equal(t, 5, m.Len())
	assert.Equal(t, 5, m.Drain())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, m.Drain())
}

func TestMailboxJobPanicIsolated(t *testing.T) {
	m := NewMailbox()
	ran := false
	m.Post(func() { panic("bad job") })
	m.Post(func() { ran = true })

	assert.NotPanics(t, func() { m.Drain() })
	assert.True(t, ran)
}

func TestMailboxPostDuringDrainDeferred(t *testing.T) {
	m := NewMailbox()
	second := false
	m.Post(func() { m.Post(func() { second = true }) })

	assert.Equal(t, 1, m.Drain())
	assert.False(t, second)
	assert.Equal(t, 1, m.Drain())
	assert.True(t, second)
}

func TestMailboxConcurrentPost(t *testing.T) {
	m := NewMailbox()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Post(func() {})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, m.Drain())
}
