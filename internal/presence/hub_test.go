package presence

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "procurement_request", "PR-1", r.URL.Query().Get("user"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *ws.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt Event
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

func TestHubAnnouncesJoinAndLeave(t *testing.T) {
	hub := NewHub(nil)
	srv := newTestServer(t, hub)

	alice := dial(t, srv, "alice")
	assert.Equal(t, []string{"alice"}, readEvent(t, alice).Editors)

	bob := dial(t, srv, "bob")
	evt := readEvent(t, alice)
	assert.Equal(t, EventPresence, evt.Type)
	assert.Equal(t, "PR-1", evt.DocID)
	assert.Equal(t, []string{"alice", "bob"}, evt.Editors)
	readEvent(t, bob)

	require.NoError(t, bob.Close())
	assert.Equal(t, []string{"alice"}, readEvent(t, alice).Editors)
}

func TestHubNotifyReachesWatchers(t *testing.T) {
	hub := NewHub(nil)
	srv := newTestServer(t, hub)

	alice := dial(t, srv, "alice")
	readEvent(t, alice)

	hub.Notify("procurement_request", "PR-1", "bob")
	evt := readEvent(t, alice)
	assert.Equal(t, EventStateChanged, evt.Type)
	assert.Equal(t, "bob", evt.Actor)

	hub.Notify("procurement_request", "PR-2", "bob")
	assert.Equal(t, []string{"alice"}, hub.Editors("procurement_request", "PR-1"))
	assert.Empty(t, hub.Editors("procurement_request", "PR-2"))
}

func TestAllowedOriginsRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil, WithAllowedOrigins([]string{"https://erp.example.test"}))
	srv := newTestServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=mallory"
	header := http.Header{"Origin": []string{"https://evil.example.test"}}
	_, resp, err := ws.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
