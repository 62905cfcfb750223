package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"metafactory-twin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatPayloadMode(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"message": "hi"}, ChatPayload("hi", 0))
	assert.Equal(t, map[string]interface{}{"message": "hi", "mode": "SQL Query"}, ChatPayload("hi", 1))
	assert.Equal(t, map[string]interface{}{"message": "hi"}, ChatPayload("hi", 99))
}

func TestChatbotTextReply(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"message": "AMR 3대 작업 중"})
	}))
	defer srv.Close()

	s := NewChatbotService(srv.URL, t.TempDir(), true)
	msg, err := s.Send(context.Background(), models.ChatRequest{Message: " 상태? ", Mode: 3})
	require.NoError(t, err)

	assert.Equal(t, "상태?", got["message"])
	assert.Equal(t, "RAG Response", got["mode"])
	assert.Equal(t, models.ChatRoleBot, msg.Role)
	assert.Equal(t, "AMR 3대 작업 중", msg.Text)
	assert.NotEmpty(t, msg.ID)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, models.ChatRoleUser, h[0].Role)
}

func TestChatbotNonJSONAndHTTPError(t *testing.T) {
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		_, _ = w.Write([]byte("plain answer"))
	}))
	defer srv.Close()

	s := NewChatbotService(srv.URL, "", true)
	msg, err := s.Send(context.Background(), models.ChatRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, "plain answer", msg.Text)

	fail = true
	msg, err = s.Send(context.Background(), models.ChatRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, "[HTTP 502] upstream down", msg.Text)

	_, err = s.Send(context.Background(), models.ChatRequest{Message: "   "})
	assert.Error(t, err)
}

func TestChatbotImageReplyCached(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"message": "[image] chart.png"})
		case "/static/chart.png":
			_, _ = w.Write(png)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewChatbotService(srv.URL, dir, true)
	msg, err := s.Send(context.Background(), models.ChatRequest{Message: "graph"})
	require.NoError(t, err)

	assert.Equal(t, models.ChatKindImage, msg.Kind)
	assert.Equal(t, "chart.png", msg.ImageName)
	assert.Equal(t, filepath.Join(dir, "chart.png"), msg.ImagePath)
	cached, err := os.ReadFile(msg.ImagePath)
	require.NoError(t, err)
	assert.Equal(t, png, cached)
}

func TestChatbotClearAndSaveHTML(t *testing.T) {
	cleared := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/clear" {
			cleared = true
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"message": "a < b & c\nok"})
	}))
	defer srv.Close()

	s := NewChatbotService(srv.URL, "", true)
	_, err := s.Send(context.Background(), models.ChatRequest{Message: "<script>"})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "logs", "ChatLog.html")
	require.NoError(t, s.SaveHTML(out))
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	doc := string(raw)
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "질문: &lt;script&gt;")
	assert.Contains(t, doc, "a &lt; b &amp; c<br>ok")

	require.NoError(t, s.Clear(context.Background(), true))
	assert.True(t, cleared)
	assert.Empty(t, s.History())
}
