package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-xrit/internal/config"
	"github.com/rcarmo/go-xrit/internal/demux"
)

func newTestMonitor(t *testing.T) (*Monitor, *httptest.Server) {
	t.Helper()

	d := demux.New(demux.Options{
		Downlink:     config.DownlinkLRIT,
		SpacecraftID: 195,
		OutputRoot:   t.TempDir(),
	})
	m := New(d, nil)

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)
	return m, srv
}

func TestStatusEndpoint(t *testing.T) {
	_, srv := newTestMonitor(t)

	resp, err := http.Get(srv.URL + "/status.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Stats demux.Stats `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Zero(t, body.Stats.Frames)
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestMonitor(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventFeed(t *testing.T) {
	m, srv := newTestMonitor(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Let the server register the subscriber before publishing.
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	sent := demux.FileEvent{
		Name:     "IMG_FD_001_VIS_20190101_000000_00.lrit",
		TypeName: "Image",
		VCID:     0,
		Date:     "20190101",
		Mode:     "FD",
		Size:     1024,
	}
	m.Publish(sent)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got demux.FileEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, sent.Name, got.Name)
	assert.Equal(t, sent.Mode, got.Mode)
	assert.Equal(t, sent.Size, got.Size)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	m, _ := newTestMonitor(t)

	// Must not block or panic.
	m.Publish(demux.FileEvent{Name: "f"})
}
