package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one open connection to the stream server.
type Conn interface {
	// Read blocks until messages arrive, the connection fails, or ctx is
	// done. A long-poll read may return no messages and no error.
	Read(ctx context.Context) ([][]byte, error)
	Close() error
}

// Dialer opens connections over a single transport.
type Dialer interface {
	Name() string
	Dial(ctx context.Context) (Conn, error)
}

// CursorHeader carries the long-poll resume position between requests.
const CursorHeader = "X-Stream-Cursor"

const (
	defaultDialTimeout = 5 * time.Second
	defaultPollTimeout = 25 * time.Second

	// defaultIdleTimeout is how long a websocket may stay silent before it is
	// treated as dead. The producer pings every 30s.
	defaultIdleTimeout = 60 * time.Second
	pongWriteWait      = time.Second

	// pollSlack is added to the poll wait so the server answers before the
	// client gives up on the request.
	pollSlack = 5 * time.Second

	maxPollBody = 4 << 20
)

// NewDialers builds dialers for the named transports, in order.
func NewDialers(ep Endpoint, names []string, dialTimeout, pollTimeout time.Duration) ([]Dialer, error) {
	dialers := make([]Dialer, 0, len(names))
	for _, name := range names {
		switch name {
		case TransportWebsocket:
			dialers = append(dialers, &WebsocketDialer{URL: ep.WebsocketURL(), Timeout: dialTimeout})
		case TransportPolling:
			dialers = append(dialers, &PollDialer{URL: ep.PollURL(), Timeout: dialTimeout, PollTimeout: pollTimeout})
		default:
			return nil, fmt.Errorf("unknown transport %q", name)
		}
	}
	return dialers, nil
}

// WebsocketDialer connects with a native websocket. A connection that
// receives neither a message nor a ping for IdleTimeout fails its Read.
type WebsocketDialer struct {
	URL         string
	Timeout     time.Duration
	IdleTimeout time.Duration
}

func (d *WebsocketDialer) Name() string { return TransportWebsocket }

func (d *WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", d.URL, err)
	}

	idle := d.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	c := &wsConn{conn: conn, idle: idle}
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(idle))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(pongWriteWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil
		}
		return err
	})
	return c, nil
}

type wsConn struct {
	conn *websocket.Conn
	idle time.Duration
	once sync.Once
	err  error
}

// Read waits for the next message. It fails once the peer has been silent
// for the idle timeout, and returns ctx.Err() when ctx ends first.
func (c *wsConn) Read(ctx context.Context) ([][]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.idle))
	return [][]byte{msg}, nil
}

func (c *wsConn) Close() error {
	c.once.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.err = c.conn.Close()
	})
	return c.err
}

// PollDialer connects with HTTP long-polling. Dial performs one immediate
// poll so a dead endpoint fails here rather than on the first Read.
type PollDialer struct {
	URL         string
	Timeout     time.Duration
	PollTimeout time.Duration
	Client      *http.Client
}

func (d *PollDialer) Name() string { return TransportPolling }

func (d *PollDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	wait := d.PollTimeout
	if wait <= 0 {
		wait = defaultPollTimeout
	}
	client := d.Client
	if client == nil {
		client = &http.Client{}
	}

	c := &pollConn{url: d.URL, client: client, wait: wait}

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	msgs, err := c.poll(hctx, 0)
	if err != nil {
		return nil, err
	}
	c.pending = msgs
	c.primed = true
	return c, nil
}

type pollConn struct {
	url    string
	client *http.Client
	wait   time.Duration
	cursor string

	pending [][]byte
	primed  bool
}

func (c *pollConn) Read(ctx context.Context) ([][]byte, error) {
	if c.primed {
		c.primed = false
		msgs := c.pending
		c.pending = nil
		return msgs, nil
	}
	return c.poll(ctx, c.wait)
}

func (c *pollConn) poll(ctx context.Context, wait time.Duration) ([][]byte, error) {
	q := url.Values{}
	q.Set("wait", wait.String())
	if c.cursor != "" {
		q.Set("cursor", c.cursor)
	}

	rctx, cancel := context.WithTimeout(ctx, wait+pollSlack)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, c.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPollBody))
		return nil, fmt.Errorf("poll %s: unexpected status %s", c.url, resp.Status)
	}
	if cur := resp.Header.Get(CursorHeader); cur != "" {
		c.cursor = cur
	}

	var frames []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPollBody)).Decode(&frames); err != nil {
		return nil, fmt.Errorf("poll %s: decode: %w", c.url, err)
	}
	msgs := make([][]byte, len(frames))
	for i, f := range frames {
		msgs[i] = f
	}
	return msgs, nil
}

func (c *pollConn) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
