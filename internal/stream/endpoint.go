package stream

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Transport names, in the order they are tried by default.
const (
	TransportWebsocket = "websocket"
	TransportPolling   = "polling"
)

// DefaultTransports is the default transport order.
var DefaultTransports = []string{TransportWebsocket, TransportPolling}

// Endpoint locates the stream server. Path is the sub-path both transports
// hang off, e.g. "/ws" serves "/ws/websocket" and "/ws/poll".
type Endpoint struct {
	Host string
	Port int
	Path string
	TLS  bool
}

func (e Endpoint) hostPort() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) url(scheme, suffix string) string {
	u := url.URL{
		Scheme: scheme,
		Host:   e.hostPort(),
		Path:   strings.TrimRight(e.Path, "/") + suffix,
	}
	return u.String()
}

// WebsocketURL is where the websocket transport dials.
func (e Endpoint) WebsocketURL() string {
	scheme := "ws"
	if e.TLS {
		scheme = "wss"
	}
	return e.url(scheme, "/websocket")
}

// PollURL is where the long-polling transport sends requests.
func (e Endpoint) PollURL() string {
	scheme := "http"
	if e.TLS {
		scheme = "https"
	}
	return e.url(scheme, "/poll")
}

// String is the human form shown in the status line.
func (e Endpoint) String() string {
	return e.hostPort() + e.Path
}

// ParseEndpoint splits a URL such as "http://localhost:8000/ws" into an
// Endpoint. It is what tests use to point the manager at httptest servers.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, err
	}
	port := 80
	tls := u.Scheme == "https" || u.Scheme == "wss"
	if tls {
		port = 443
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, err
		}
	}
	return Endpoint{Host: u.Hostname(), Port: port, Path: u.Path, TLS: tls}, nil
}
