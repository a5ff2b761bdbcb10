package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFrame = `{"event":"sample","data":{"timestamp":"2024-03-01T12:00:00Z","latency":10,"buffering":1,"users":5}}`

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// wsServer accepts websocket clients on /ws/websocket and hands each
// connection to the test through conns.
func wsServer(t *testing.T) (*httptest.Server, chan *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/websocket", func(w http.ResponseWriter, r *http.Request) {
		c, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, conns
}

func endpointFor(t *testing.T, srv *httptest.Server) Endpoint {
	t.Helper()
	ep, err := ParseEndpoint(srv.URL + "/ws")
	require.NoError(t, err)
	return ep
}

func TestWebsocketDialer_ReadsFrames(t *testing.T) {
	srv, conns := wsServer(t)
	d := &WebsocketDialer{URL: endpointFor(t, srv).WebsocketURL(), Timeout: time.Second}

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	server := <-conns
	defer server.Close()
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(sampleFrame)))

	msgs, err := conn.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, sampleFrame, string(msgs[0]))
}

func TestWebsocketDialer_ReadFailsWhenServerCloses(t *testing.T) {
	srv, conns := wsServer(t)
	d := &WebsocketDialer{URL: endpointFor(t, srv).WebsocketURL()}

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	server := <-conns
	require.NoError(t, server.Close())

	_, err = conn.Read(context.Background())
	assert.Error(t, err)
}

func TestWebsocketConn_SilentPeerTimesOut(t *testing.T) {
	srv, conns := wsServer(t)
	d := &WebsocketDialer{URL: endpointFor(t, srv).WebsocketURL(), IdleTimeout: 200 * time.Millisecond}

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	server := <-conns
	defer server.Close()

	errs := make(chan error, 1)
	go func() {
		_, err := conn.Read(context.Background())
		errs <- err
	}()

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Read stayed blocked on a silent connection")
	}
}

func TestWebsocketConn_ReadHonoursContext(t *testing.T) {
	srv, conns := wsServer(t)
	d := &WebsocketDialer{URL: endpointFor(t, srv).WebsocketURL(), IdleTimeout: time.Minute}

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	server := <-conns
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = conn.Read(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWebsocketConn_PingsKeepConnectionAlive(t *testing.T) {
	srv, conns := wsServer(t)
	d := &WebsocketDialer{URL: endpointFor(t, srv).WebsocketURL(), IdleTimeout: 200 * time.Millisecond}

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	server := <-conns
	defer server.Close()

	// pings every 50ms for longer than the idle timeout, then one frame
	go func() {
		for i := 0; i < 10; i++ {
			time.Sleep(50 * time.Millisecond)
			if err := server.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
		_ = server.WriteMessage(websocket.TextMessage, []byte(sampleFrame))
	}()

	msgs, err := conn.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, sampleFrame, string(msgs[0]))
}

func TestWebsocketDialer_Refused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	ep := endpointFor(t, srv)
	srv.Close()

	_, err := (&WebsocketDialer{URL: ep.WebsocketURL(), Timeout: time.Second}).Dial(context.Background())
	assert.Error(t, err)
}

func TestWebsocketConn_CloseIsIdempotent(t *testing.T) {
	srv, conns := wsServer(t)
	conn, err := (&WebsocketDialer{URL: endpointFor(t, srv).WebsocketURL()}).Dial(context.Background())
	require.NoError(t, err)
	server := <-conns
	defer server.Close()

	first := conn.Close()
	assert.Equal(t, first, conn.Close())
}

// pollServer answers long-poll requests from a scripted list of responses
// and records the query strings it saw.
type pollServer struct {
	mu      sync.Mutex
	queries []map[string]string
	bodies  [][]string
	status  int
}

func (p *pollServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queries = append(p.queries, map[string]string{
		"wait":   r.URL.Query().Get("wait"),
		"cursor": r.URL.Query().Get("cursor"),
	})
	if p.status != 0 {
		w.WriteHeader(p.status)
		return
	}

	var frames []json.RawMessage
	if len(p.bodies) > 0 {
		for _, b := range p.bodies[0] {
			frames = append(frames, json.RawMessage(b))
		}
		p.bodies = p.bodies[1:]
	}
	if frames == nil {
		frames = []json.RawMessage{}
	}
	w.Header().Set(CursorHeader, "7")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(frames)
}

func (p *pollServer) seen() []map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]string(nil), p.queries...)
}

func TestPollDialer_HandshakeThenPoll(t *testing.T) {
	ps := &pollServer{bodies: [][]string{{sampleFrame}, {sampleFrame, `{"event":"anomaly","data":true}`}}}
	mux := http.NewServeMux()
	mux.Handle("/ws/poll", ps)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := &PollDialer{URL: endpointFor(t, srv).PollURL(), Timeout: time.Second, PollTimeout: 2 * time.Second}
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	// handshake frames are replayed by the first read
	msgs, err := conn.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msgs, err = conn.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	msgs, err = conn.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)

	seen := ps.seen()
	require.Len(t, seen, 3)
	assert.Equal(t, "0s", seen[0]["wait"])
	assert.Equal(t, "", seen[0]["cursor"])
	assert.Equal(t, "2s", seen[1]["wait"])
	assert.Equal(t, "7", seen[1]["cursor"])
}

func TestPollDialer_BadStatus(t *testing.T) {
	srv := httptest.NewServer(&pollServer{status: http.StatusServiceUnavailable})
	defer srv.Close()

	_, err := (&PollDialer{URL: srv.URL + "/ws/poll", Timeout: time.Second}).Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestPollDialer_ReadHonoursContext(t *testing.T) {
	block := make(chan struct{})
	first := true
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if !isFirst {
			select {
			case <-block:
			case <-r.Context().Done():
			}
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	defer close(block)

	conn, err := (&PollDialer{URL: srv.URL + "/ws/poll", PollTimeout: time.Minute}).Dial(context.Background())
	require.NoError(t, err)
	_, err = conn.Read(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = conn.Read(ctx)
	assert.Error(t, err)
}
