package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config - 환경 변수 기반 실행 설정
type Config struct {
	ListenAddr  string
	CORSOrigins string

	// 운영 서버
	OpServerURL    string
	MapCode        string
	PollInterval   time.Duration
	RequestTimeout time.Duration

	// Fleet 서버 핑 (URL 비어있으면 비활성)
	FleetURL          string
	FleetPingInterval time.Duration

	// 챗봇
	ChatServerURL string
	ChatVerifySSL bool
	ChatCacheDir  string

	// 프레임 / 씬
	FrameRate              int
	SceneBroadcastInterval time.Duration
	MetersPerUnit          float64
	StageZUp               bool

	// AMR 보간
	AMRMoveSpeedMMPerSec float64
	AMRYawSpeedDegPerSec float64
	AMRPosEpsMM          float64
	AMRYawEpsDeg         float64
	AMRScale             float64

	// 라인카
	LineCarEnabled bool
	LineCarCount   int
	LineCarSpeed   float64
	LineCarMode    string

	// 이벤트 로그
	LogFlushSize     int
	LogFlushInterval time.Duration
}

// LoadConfig - 환경 변수에서 설정 읽기 (없으면 기본값)
func LoadConfig() Config {
	cfg := Config{
		ListenAddr:  envString("LISTEN_ADDR", ":3000"),
		CORSOrigins: envString("CORS_ORIGINS", "http://localhost:5173, http://localhost:3000"),

		OpServerURL:    os.Getenv("OPSERVER_URL"),
		MapCode:        envString("MAP_CODE", DefaultMapCode),
		PollInterval:   envDuration("POLL_INTERVAL", DefaultPollInterval),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", DefaultTimeout),

		FleetURL:          os.Getenv("FLEET_URL"),
		FleetPingInterval: envDuration("FLEET_PING_INTERVAL", 2*time.Second),

		ChatServerURL: envString("CHAT_SERVER_URL", "https://127.0.0.1:8000"),
		ChatVerifySSL: envBool("CHAT_VERIFY_SSL", false),
		ChatCacheDir:  envString("CHAT_CACHE_DIR", defaultChatCacheDir()),

		FrameRate:              envInt("FRAME_RATE", 60),
		SceneBroadcastInterval: envDuration("SCENE_BROADCAST_INTERVAL", 100*time.Millisecond),
		MetersPerUnit:          envFloat("METERS_PER_UNIT", 0.01),
		StageZUp:               envBool("STAGE_Z_UP", true),

		AMRMoveSpeedMMPerSec: envFloat("AMR_MOVE_SPEED_MM_S", 900),
		AMRYawSpeedDegPerSec: envFloat("AMR_YAW_SPEED_DPS", 110),
		AMRPosEpsMM:          envFloat("AMR_POS_EPS_MM", 10),
		AMRYawEpsDeg:         envFloat("AMR_YAW_EPS_DEG", 0.5),
		AMRScale:             envFloat("AMR_SCALE", 0.2),

		LineCarEnabled: envBool("LINECAR_ENABLED", true),
		LineCarCount:   envInt("LINECAR_COUNT", 19),
		LineCarSpeed:   envFloat("LINECAR_SPEED", 200),
		LineCarMode:    envString("LINECAR_MODE", LineCarModeLoop),

		LogFlushSize:     envInt("LOG_FLUSH_SIZE", 50),
		LogFlushInterval: envDuration("LOG_FLUSH_INTERVAL", 5*time.Second),
	}

	if cfg.OpServerURL == "" {
		cfg.OpServerURL = LoadOpServerURL(networkJSONCandidates())
	}
	return cfg
}

// networkFile - Network.json 스키마
type networkFile struct {
	OpServerIP   string      `json:"opServerIP"`
	OpServerPort interface{} `json:"opServerPort"`
	HTTPS        bool        `json:"https"`
}

// LoadOpServerURL - 후보 경로 중 처음 읽히는 Network.json 으로 운영 서버 URL 구성
func LoadOpServerURL(candidates []string) string {
	for _, p := range candidates {
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var net networkFile
		if err := json.Unmarshal(raw, &net); err != nil {
			log.Printf("⚠️ Network.json 파싱 실패 (%s): %v", p, err)
			continue
		}

		ip := net.OpServerIP
		if ip == "" {
			ip = "172.16.110.67"
		}
		port := toString(net.OpServerPort)
		if port == "" {
			port = "49000"
		}
		scheme := "http"
		if net.HTTPS || port == "443" {
			scheme = "https"
		}
		url := fmt.Sprintf("%s://%s:%s/", scheme, ip, port)
		log.Printf("📄 Network.json 로드: %s → %s", p, url)
		return url
	}
	return DefaultBaseURL
}

func networkJSONCandidates() []string {
	if p := os.Getenv("NETWORK_JSON"); p != "" {
		return []string{p}
	}
	out := []string{"Network.json"}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, "Documents", "Omniverse", "Network.json"))
	}
	return out
}

func defaultChatCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ChatbotCache")
	}
	return filepath.Join(home, "Documents", "Omniverse", "ChatbotCache")
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

// envDuration - "500ms", "2s" 또는 숫자(ms)
func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("⚠️ %s 값이 올바르지 않아 기본값 사용: %q", key, raw)
	return def
}
