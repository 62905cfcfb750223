package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeNetwork(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Network.json")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadOpServerURL(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"http", `{"opServerIP":"10.0.0.5","opServerPort":"8080"}`, "http://10.0.0.5:8080/"},
		{"numeric port", `{"opServerIP":"10.0.0.5","opServerPort":8080}`, "http://10.0.0.5:8080/"},
		{"https flag", `{"opServerIP":"op.local","opServerPort":"9000","https":true}`, "https://op.local:9000/"},
		{"port 443", `{"opServerIP":"op.local","opServerPort":443}`, "https://op.local:443/"},
		{"defaults", `{}`, "http://172.16.110.67:49000/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LoadOpServerURL([]string{writeNetwork(t, tc.body)}))
		})
	}
}

func TestLoadOpServerURLFallback(t *testing.T) {
	broken := writeNetwork(t, `{not json`)
	good := writeNetwork(t, `{"opServerIP":"1.2.3.4","opServerPort":"1"}`)

	assert.Equal(t, "http://1.2.3.4:1/", LoadOpServerURL([]string{"/nonexistent/Network.json", broken, good}))
	assert.Equal(t, DefaultBaseURL, LoadOpServerURL([]string{"/nonexistent/Network.json"}))
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("OPSERVER_URL", "http://op:1/")
	t.Setenv("POLL_INTERVAL", "250")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("FRAME_RATE", "30")
	t.Setenv("STAGE_Z_UP", "false")
	t.Setenv("LINECAR_ENABLED", "no-idea")
	t.Setenv("AMR_MOVE_SPEED_MM_S", "-5")

	cfg := LoadConfig()
	assert.Equal(t, "http://op:1/", cfg.OpServerURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30, cfg.FrameRate)
	assert.False(t, cfg.StageZUp)
	assert.True(t, cfg.LineCarEnabled)
	assert.Equal(t, 900.0, cfg.AMRMoveSpeedMMPerSec)
	assert.Equal(t, DefaultMapCode, cfg.MapCode)
}

func TestLoadConfigNetworkJSONEnv(t *testing.T) {
	t.Setenv("OPSERVER_URL", "")
	t.Setenv("NETWORK_JSON", writeNetwork(t, `{"opServerIP":"5.6.7.8","opServerPort":"49000"}`))
	assert.Equal(t, "http://5.6.7.8:49000/", LoadConfig().OpServerURL)
}
