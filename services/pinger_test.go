package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPingerHTTPErrorPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewHTTPPinger(srv.URL, time.Second, time.Second, nil)
	assert.True(t, p.Ping(context.Background()))

	p.SetTreatHTTPErrorAsAlive(false)
	assert.False(t, p.Ping(context.Background()))
}

func TestPingerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewHTTPPinger(url, time.Second, 200*time.Millisecond, nil)
	assert.False(t, p.Ping(context.Background()))
}

func TestPingerReportsTransitionsOnly(t *testing.T) {
	var got []bool
	p := NewHTTPPinger("http://unused", time.Second, time.Second, func(alive bool) { got = append(got, alive) })

	p.report(false) // 첫 결과는 항상 알림
	p.report(false)
	p.report(true)
	p.report(true)
	p.report(false)

	assert.Equal(t, []bool{false, true, false}, got)
}

func TestPingerStartStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	var mu sync.Mutex
	var got []bool
	p := NewHTTPPinger(srv.URL, 20*time.Millisecond, time.Second, func(alive bool) {
		mu.Lock()
		got = append(got, alive)
		mu.Unlock()
	})
	p.Start()
	p.Start()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0]
	}, 2*time.Second, 10*time.Millisecond)

	p.Stop()
	p.Stop()
}
