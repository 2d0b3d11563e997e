package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"postdeck/internal/deck"
	"postdeck/internal/nav"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// loopDriver stands in for the presenter loop: it serializes commands and
// publishes after each one.
type loopDriver struct {
	mu  sync.Mutex
	ctl *nav.Controller
	srv *Server
}

func (d *loopDriver) Apply(ctx context.Context, cmd Command) (Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := Execute(d.ctl, cmd); err != nil {
		return Snapshot{}, err
	}
	snap := SnapshotOf("talk", "Talk", d.ctl)
	d.srv.Publish(snap)
	return snap, nil
}

func newTestServer(t *testing.T, counts ...int) (*Server, *httptest.Server) {
	t.Helper()
	d, err := deck.FromCounts(counts...)
	require.NoError(t, err)
	st, err := nav.NewState(d)
	require.NoError(t, err)

	drv := &loopDriver{ctl: nav.NewController(st)}
	srv := NewServer(drv)
	drv.srv = srv
	srv.Publish(SnapshotOf("talk", "Talk", drv.ctl))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.hub.closeAll()
		ts.Close()
	})
	return srv, ts
}

func post(t *testing.T, url string) (*http.Response, Snapshot) {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap Snapshot
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	}
	return resp, snap
}

func TestServer_GetDeck(t *testing.T) {
	_, ts := newTestServer(t, 2, 1, 3)

	resp, err := http.Get(ts.URL + "/api/deck")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, []int{2, 1, 3}, snap.Segments)
	assert.Equal(t, 6, snap.Total)
	assert.Equal(t, "slide-0", snap.Fragment)
	assert.False(t, snap.HasPrevious)
	assert.True(t, snap.HasNext)
}

func TestServer_Navigate(t *testing.T) {
	_, ts := newTestServer(t, 2, 1)

	resp, snap := post(t, ts.URL+"/api/next")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, nav.Position{Slide: 0, Segment: 1, Flat: 1}, snap.Position)

	resp, snap = post(t, ts.URL+"/api/next")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "slide-1", snap.Fragment)
	assert.False(t, snap.HasNext)

	resp, _ = post(t, ts.URL+"/api/next")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, snap = post(t, ts.URL+"/api/goto/0")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, snap.Position.Flat)

	resp, _ = post(t, ts.URL+"/api/previous")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/api/goto/9")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/api/goto/two")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getResp, err := http.Get(ts.URL + "/api/position")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var pos nav.Position
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&pos))
	assert.Equal(t, nav.Position{}, pos)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, 1)
	resp, err := http.Get(ts.URL + "/api/next")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_NoDeckYet(t *testing.T) {
	srv := NewServer(&loopDriver{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/deck")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/api/next")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_StreamsPositions(t *testing.T) {
	srv, ts := newTestServer(t, 3)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, 0, first.Position.Flat)

	require.Eventually(t, func() bool { return srv.hub.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, _ := post(t, ts.URL+"/api/next")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var next Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, 1, next.Position.Flat)
	assert.True(t, next.HasPrevious)
}

func TestHub_JoinSeesConcurrentPublish(t *testing.T) {
	srv, _ := newTestServer(t, 3)
	latest := Snapshot{PostID: "talk", Position: nav.Position{Slide: 2, Flat: 2}}

	c := &client{id: "c", send: make(chan Snapshot, clientSend), done: make(chan struct{})}
	published := make(chan struct{})
	srv.hub.join(c, func() (Snapshot, bool) {
		go func() {
			srv.Publish(latest)
			close(published)
		}()
		return srv.Snapshot()
	})
	<-published

	var last Snapshot
	for n := len(c.send); n > 0; n-- {
		last = <-c.send
	}
	assert.Equal(t, latest, last)
}

func TestServer_ShutdownClosesStreams(t *testing.T) {
	srv, ts := newTestServer(t, 1)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	require.Eventually(t, func() bool { return srv.hub.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(nav.ErrNoNext))
	assert.Equal(t, http.StatusConflict, statusFor(nav.ErrLinkInert))
	assert.Equal(t, http.StatusBadRequest, statusFor(nav.ErrOutOfRange))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
