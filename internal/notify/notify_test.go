package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"humpday-trader/internal/types"
)

var sample = types.Message{
	Header:   "Adobe Inc (ADBE)",
	Intro:    ":gem: This is NOT financial advice :gem:",
	Body:     "*current price: 512.30*",
	Fallback: "Adobe Inc (ADBE)",
}

func TestSlackPostMessageUsesMappedChannelAndBlocks(t *testing.T) {
	var mu sync.Mutex
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat.postMessage"))
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		form = map[string]string{"channel": r.FormValue("channel"), "blocks": r.FormValue("blocks"), "text": r.FormValue("text")}
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C07C4S4ULMU","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	s, err := NewSlack("xoxb-test", srv.URL+"/", map[string]string{"bot-test": "C07C4S4ULMU"})
	require.NoError(t, err)

	require.NoError(t, s.PostMessage(context.Background(), "bot-test", sample))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "C07C4S4ULMU", form["channel"])
	assert.Contains(t, form["blocks"], `"type":"header"`)
	assert.Contains(t, form["blocks"], `"type":"divider"`)
	assert.Contains(t, form["blocks"], "NOT financial advice")
	assert.Equal(t, "Adobe Inc (ADBE)", form["text"])
}

func TestSlackErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	s, err := NewSlack("xoxb-test", srv.URL+"/", nil)
	require.NoError(t, err)

	err = s.PostMessage(context.Background(), "nowhere", sample)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestNewSlackRequiresToken(t *testing.T) {
	_, err := NewSlack("", "", nil)
	assert.Error(t, err)
}

func telegramServer(t *testing.T, sent *[]map[string]string, mu *sync.Mutex) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"humpday","username":"humpday_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			assert.NoError(t, r.ParseForm())
			mu.Lock()
			*sent = append(*sent, map[string]string{
				"chat_id":    r.FormValue("chat_id"),
				"parse_mode": r.FormValue("parse_mode"),
				"text":       r.FormValue("text"),
			})
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":1700000000,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTelegramPostMessage(t *testing.T) {
	var mu sync.Mutex
	var sent []map[string]string
	srv := telegramServer(t, &sent, &mu)

	tg, err := NewTelegram("123:abc", srv.URL+"/bot%s/%s", map[string]int64{"bot-test": 42})
	require.NoError(t, err)

	require.NoError(t, tg.PostMessage(context.Background(), "bot-test", sample))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0]["chat_id"])
	assert.Equal(t, "Markdown", sent[0]["parse_mode"])
	assert.Contains(t, sent[0]["text"], "*Adobe Inc (ADBE)*")
}

func TestTelegramUnknownChannel(t *testing.T) {
	var mu sync.Mutex
	var sent []map[string]string
	srv := telegramServer(t, &sent, &mu)

	tg, err := NewTelegram("123:abc", srv.URL+"/bot%s/%s", nil)
	require.NoError(t, err)
	assert.Error(t, tg.PostMessage(context.Background(), "bot-test", sample))
	assert.Empty(t, sent)
}

type failing struct{ err error }

func (f failing) PostMessage(context.Context, string, types.Message) error { return f.err }
func (f failing) PostImage(context.Context, string, types.Image) error     { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	a, b := errors.New("slack down"), errors.New("telegram down")
	m := Multi{failing{a}, NewLog(""), failing{b}}

	err := m.PostMessage(context.Background(), "x", sample)
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
}

func TestLogSinkSavesImages(t *testing.T) {
	dir := t.TempDir()
	l := NewLog(dir)
	require.NoError(t, l.PostImage(context.Background(), "bot-test", types.Image{Filename: "chart.png", Data: []byte("png")}))

	data, err := os.ReadFile(filepath.Join(dir, "chart.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestNewSelectsSink(t *testing.T) {
	n, err := New(Params{Sink: "log"})
	require.NoError(t, err)
	assert.IsType(t, &Log{}, n)

	_, err = New(Params{Sink: "pigeon"})
	assert.Error(t, err)

	_, err = New(Params{Sink: "slack"})
	assert.Error(t, err, "missing token")
}
