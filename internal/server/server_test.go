package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rixmerz/MultiComputer/input"
	"github.com/Rixmerz/MultiComputer/internal/clients"
	"github.com/Rixmerz/MultiComputer/internal/dispatch"
	"github.com/Rixmerz/MultiComputer/internal/server"
	"github.com/Rixmerz/MultiComputer/internal/sysinfo"
	"github.com/Rixmerz/MultiComputer/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// backend counts presses so tests can check the button is released.
type backend struct {
	*input.Dry
	mu   sync.Mutex
	down int
	up   int
}

func (b *backend) MouseDown(btn input.Button) error {
	b.mu.Lock()
	b.down++
	b.mu.Unlock()
	return nil
}

func (b *backend) MouseUp(btn input.Button) error {
	b.mu.Lock()
	b.up++
	b.mu.Unlock()
	return nil
}

type geometry struct{}

func (geometry) Query() types.ScreenGeometry {
	return types.ScreenGeometry{Width: 800, Height: 600, Monitors: []types.Monitor{{ID: 1, Width: 800, Height: 600, Primary: true}}}
}

type fakePeers struct {
	err error
}

func (p fakePeers) Answer(_ context.Context, offer webrtc.SessionDescription) (string, *webrtc.SessionDescription, error) {
	if p.err != nil {
		return "", nil, p.err
	}
	return "peer-1", &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (fakePeers) Count() int { return 3 }

type fixture struct {
	srv     *server.Server
	disp    *dispatch.Dispatcher
	clients *clients.Manager
	backend *backend
}

func newFixture(t *testing.T, mutate func(*server.Options)) *fixture {
	t.Helper()
	log := logging.NewDefaultLoggerFactory().NewLogger("test")
	b := &backend{Dry: input.NewDry(log)}
	disp := dispatch.New(dispatch.Options{
		Backend: b,
		Screen:  geometry{},
		Host:    sysinfo.Detect(sysinfo.PlatformOther),
		Logger:  log,
	})
	opts := server.Options{
		Dispatcher:  disp,
		Clients:     clients.NewManager(),
		Host:        sysinfo.Detect(sysinfo.PlatformOther),
		CORSOrigins: []string{"*"},
		Logger:      log,
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv := server.New(opts)
	disp.OnEvent(srv.EventHook())
	return &fixture{srv: srv, disp: disp, clients: opts.Clients, backend: b}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestPing(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"pong"}`, w.Body.String())
}

func TestScreen(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/screen", "")
	require.Equal(t, http.StatusOK, w.Code)
	m := decode(t, w)
	assert.Equal(t, "success", m["status"])
	scr := m["screen"].(map[string]any)
	assert.EqualValues(t, 800, scr["width"])
	assert.EqualValues(t, 600, scr["height"])
	assert.Len(t, scr["monitors"], 1)
}

func TestMouseResponses(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/mouse", `{"action":"move","x":10,"y":10}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())

	w = f.do(http.MethodPost, "/mouse", `{"action":"click","x":5000,"y":-3,"button":"right"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"status":"success","message":"Mouse right click at (799, 0)","coordinates":{"x":799,"y":0}}`,
		w.Body.String())

	w = f.do(http.MethodPost, "/mouse", `{"action":"drag_move","x":1,"y":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = f.do(http.MethodPost, "/mouse", `{"action":"drag","x":10,"y":10,"to_x":200,"to_y":150}`)
	assert.Equal(t, http.StatusOK, w.Code)
	m := decode(t, w)
	assert.Equal(t, map[string]any{"x": 200.0, "y": 150.0}, m["to"])
}

func TestMouseErrors(t *testing.T) {
	f := newFixture(t, nil)
	for _, body := range []string{
		`{"action":"teleport","x":1,"y":1}`,
		`{"action":"click","button":"fourth"}`,
		`{"action":`,
		``,
	} {
		w := f.do(http.MethodPost, "/mouse", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "error", decode(t, w)["status"], body)
	}
}

func TestKeyboardEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/type", `{"text":"hello"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","message":"Typed: hello"}`, w.Body.String())

	w = f.do(http.MethodPost, "/type", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["message"], "no text provided")

	w = f.do(http.MethodPost, "/special", `{"key":"tab"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","message":"Special key: Tab"}`, w.Body.String())

	w = f.do(http.MethodPost, "/special", `{"key":"f13"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/shortcut", `{"shortcut":"undo"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","message":"Shortcut: Ctrl + Z (Undo)"}`, w.Body.String())

	w = f.do(http.MethodPost, "/shortcut", `{"shortcut":"quit"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, func(o *server.Options) { o.Peers = fakePeers{} })

	m := decode(t, f.do(http.MethodGet, "/status", ""))
	assert.Equal(t, "online", m["status"])
	assert.Equal(t, server.Name, m["server"])
	assert.Nil(t, m["last_activity"])
	assert.EqualValues(t, 0, m["connected_clients"])
	assert.EqualValues(t, 3, m["peers"])
	assert.Equal(t, false, m["dragging"])
	assert.Contains(t, m, "host")

	before := float64(time.Now().Add(-time.Second).Unix())
	f.do(http.MethodPost, "/mouse", `{"action":"drag_start","x":1,"y":1}`)
	m = decode(t, f.do(http.MethodGet, "/status", ""))
	assert.Equal(t, true, m["dragging"])
	last, ok := m["last_activity"].(float64)
	require.True(t, ok)
	assert.Greater(t, last, before)

	f.do(http.MethodPost, "/mouse", `{"action":"drag_end","x":2,"y":2}`)
	assert.Equal(t, false, decode(t, f.do(http.MethodGet, "/status", ""))["dragging"])
	assert.Equal(t, 1, f.backend.down)
	assert.Equal(t, 1, f.backend.up)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodOptions, "/mouse", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = f.do(http.MethodGet, "/ping", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestricted(t *testing.T) {
	f := newFixture(t, func(o *server.Options) { o.CORSOrigins = []string{"http://ok.test"} })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://ok.test")
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "http://ok.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

type panicking struct{ server.Dispatcher }

func TestRecoverMiddleware(t *testing.T) {
	f := newFixture(t, func(o *server.Options) { o.Dispatcher = panicking{} })
	w := f.do(http.MethodGet, "/screen", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", decode(t, w)["status"])
}

func TestOffer(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodPost, "/rtc/offer", `{"type":"offer","sdp":"v=0"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f = newFixture(t, func(o *server.Options) { o.Peers = fakePeers{} })
	w = f.do(http.MethodPost, "/rtc/offer", `{"type":"offer","sdp":"v=0"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode(t, w)
	assert.Equal(t, "peer-1", m["id"])
	assert.Equal(t, "answer", m["answer"].(map[string]any)["type"])

	w = f.do(http.MethodPost, "/rtc/offer", `{"type":"offer"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f = newFixture(t, func(o *server.Options) { o.Peers = fakePeers{err: errors.New("ice failed")} })
	w = f.do(http.MethodPost, "/rtc/offer", `{"type":"offer","sdp":"v=0"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func dial(t *testing.T, ts *httptest.Server, role string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if role != "" {
		url += "?role=" + role
	}
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func readJSON(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m map[string]any
	require.NoError(t, c.ReadJSON(&m))
	return m
}

func TestWebSocketControl(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	c := dial(t, ts, "")
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"id":"1","type":"type","text":"hi"}`)))
	reply := readJSON(t, c)
	assert.Equal(t, "1", reply["id"])
	assert.Equal(t, "success", reply["status"])
	assert.Equal(t, "Typed: hi", reply["message"])

	// drag_move has no reply, so the next frame's reply comes first
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"id":"2","type":"mouse","action":"drag_move","x":1,"y":1}`)))
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"id":"3","type":"bogus"}`)))
	reply = readJSON(t, c)
	assert.Equal(t, "3", reply["id"])
	assert.Equal(t, "error", reply["status"])

	require.Eventually(t, func() bool { return f.clients.Count() == 1 }, 5*time.Second, 10*time.Millisecond)
	c.Close()
	require.Eventually(t, func() bool { return f.clients.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWebSocketEvents(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ev := dial(t, ts, "events")
	require.Eventually(t, func() bool { return f.clients.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	f.do(http.MethodPost, "/special", `{"key":"enter"}`)
	m := readJSON(t, ev)
	assert.Equal(t, "special", m["kind"])
	assert.Equal(t, "enter", m["action"])
	assert.Equal(t, true, m["ok"])
	assert.NotEmpty(t, m["id"])

	// frames from an events client are ignored
	require.NoError(t, ev.WriteMessage(websocket.TextMessage, []byte(`{"id":"x","type":"type","text":"no"}`)))
	f.do(http.MethodPost, "/type", `{"text":""}`)
	m = readJSON(t, ev)
	assert.Equal(t, "type", m["kind"])
	assert.Equal(t, false, m["ok"])
}

func TestWebSocketUnknownRole(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/ws?role=admin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShutdownClosesClients(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	c := dial(t, ts, "control")
	require.Eventually(t, func() bool { return f.clients.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, f.srv.Shutdown(context.Background()))
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketSilentClientIsDropped(t *testing.T) {
	f := newFixture(t, func(o *server.Options) { o.PongWait = 200 * time.Millisecond })
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	// sends nothing, not even pongs
	dial(t, ts, "events")
	require.Eventually(t, func() bool { return f.clients.Count() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return f.clients.Count() == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestWebSocketPongKeepsClientAlive(t *testing.T) {
	f := newFixture(t, func(o *server.Options) { o.PongWait = 300 * time.Millisecond })
	f.clients.PingPeriod = 50 * time.Millisecond
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	c := dial(t, ts, "events")
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()
	require.Eventually(t, func() bool { return f.clients.Count() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(time.Second)
	assert.Equal(t, 1, f.clients.Count())
}

func TestEventHookDoesNotWaitForSubscribers(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	// a subscriber that never reads
	dial(t, ts, "events")
	require.Eventually(t, func() bool { return f.clients.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	start := time.Now()
	for i := 0; i < 500; i++ {
		w := f.do(http.MethodPost, "/mouse", `{"action":"drag_move","x":1,"y":1}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Less(t, time.Since(start), 4*time.Second)
}
