// Package simulator is a development producer for the streamwatch dashboard.
// It generates one sample per interval, scores it for anomalies, keeps a
// history, and serves both stream transports plus a small HTTP API.
package simulator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/rileyhilliard/streamwatch/internal/logger"
	"github.com/rileyhilliard/streamwatch/internal/sample"
	"github.com/rileyhilliard/streamwatch/internal/stream"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultPath          = "/ws"
	DefaultInterval      = time.Second
	DefaultAnomalyZScore = 2.0
	DefaultAnomalyWindow = 60
	DefaultHistorySize   = 1000

	// recentLimit is how many readings the HTTP API returns.
	recentLimit = 100

	shutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Path          string
	Interval      time.Duration
	AnomalyZScore float64
	AnomalyWindow int
	HistorySize   int

	// History defaults to a MemoryHistory of HistorySize.
	History HistoryStore

	// Seed makes generated readings reproducible. Zero seeds randomly.
	Seed uint64

	Logger logger.Logger
}

// Pinger is implemented by history stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the simulator: generator, detector, history and HTTP surface.
type Server struct {
	opts    Options
	engine  *gin.Engine
	history HistoryStore
	metrics *Metrics
	hub     *hub
	frames  *frameLog
	log     logger.Logger

	done     chan struct{}
	doneOnce sync.Once

	// mu serializes publishing so every client sees frames in one order.
	mu     sync.Mutex
	gen    *Generator
	detect *Detector
	latest []byte
	totals totals
}

type totals struct {
	count      int64
	latencySum float64
	buffering  int64
	users      int64
}

// NewServer builds a server and its routes. Nothing runs until Run.
func NewServer(opts Options) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.AnomalyZScore <= 0 {
		opts.AnomalyZScore = DefaultAnomalyZScore
	}
	if opts.AnomalyWindow <= 0 {
		opts.AnomalyWindow = DefaultAnomalyWindow
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.History == nil {
		opts.History = NewMemoryHistory(opts.HistorySize)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	var gen *Generator
	if opts.Seed != 0 {
		gen = NewSeededGenerator(opts.Seed)
	} else {
		gen = NewSeededGenerator(rand.Uint64())
	}

	m := NewMetrics()
	s := &Server{
		opts:    opts,
		history: opts.History,
		metrics: m,
		hub:     newHub(opts.Logger, m.ConnectedClients),
		frames:  newFrameLog(frameLogSize),
		log:     opts.Logger,
		done:    make(chan struct{}),
		gen:     gen,
		detect:  NewDetector(opts.AnomalyZScore, opts.AnomalyWindow),
	}
	s.hub.greeting = s.latestFrame
	s.hub.ingest = func(smp sample.MetricSample) {
		s.Ingest(context.Background(), smp)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/metrics/history", s.handleHistory)
	r.GET("/prometheus", gin.WrapH(s.metrics.Handler()))

	ws := r.Group(s.opts.Path)
	ws.GET("/websocket", func(c *gin.Context) { s.hub.serve(c.Writer, c.Request) })
	ws.GET("/poll", s.handlePoll)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Handler exposes the HTTP surface, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics exposes the Prometheus instruments.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Clients is the number of attached websocket clients.
func (s *Server) Clients() int {
	return s.hub.count()
}

// Run clears the history, serves on addr and emits a sample every interval
// until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.history.Reset(ctx); err != nil {
		s.log.Warn("could not clear history: %v", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("simulator listening on %s (stream path %s, every %s)", addr, s.opts.Path, s.opts.Interval)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Step(ctx)
		case err := <-errCh:
			s.Close()
			if stderrors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return errors.WrapWithCode(err, errors.ErrSim,
				"Simulator failed to listen on "+addr,
				"Pick another address with --listen, or stop whatever is using that port.")
		case <-ctx.Done():
			s.Close()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				return errors.WrapWithCode(err, errors.ErrSim, "Simulator did not shut down cleanly", "")
			}
			return nil
		}
	}
}

// Close wakes long-poll waiters and detaches websocket clients.
func (s *Server) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
		s.hub.closeAll()
	})
}

// Step generates, scores and publishes one reading, followed by its anomaly
// signal.
func (s *Server) Step(ctx context.Context) Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.gen.Next()
	anomalous, z := s.detect.Observe(r.Latency)
	if anomalous {
		s.log.Info("anomaly: latency %.2f ms (z=%.2f)", r.Latency, z)
	}

	s.publish(ctx, r, SourceGenerated)
	s.emit(stream.NewAnomalyFrame(anomalous))
	if anomalous {
		s.metrics.Anomalies.Inc()
	}
	return r
}

// Ingest records a sample pushed by a client and rebroadcasts it to
// everyone. Missing fields count as zero and the timestamp is the time of
// receipt.
func (s *Server) Ingest(ctx context.Context, smp sample.MetricSample) Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	smp.Timestamp = s.gen.now()
	r := NewReading(smp)
	s.publish(ctx, r, SourceIngested)
	return r
}

// publish must be called with mu held.
func (s *Server) publish(ctx context.Context, r Reading, source string) {
	if err := s.history.Push(ctx, r); err != nil {
		s.log.Debug("history push: %v", err)
	}

	s.totals.count++
	s.totals.latencySum += r.Latency
	s.totals.buffering += r.Buffering
	s.totals.users = r.Users

	data, err := json.Marshal(r)
	if err != nil {
		s.log.Error("encode reading: %v", err)
		return
	}
	raw, ok := s.emit(stream.Frame{Event: stream.EventSample, Data: data})
	if ok {
		s.latest = raw
	}

	s.metrics.SamplesEmitted.WithLabelValues(source).Inc()
	s.metrics.SampleLatency.Observe(r.Latency)
}

// emit encodes a frame and hands it to both transports.
func (s *Server) emit(f stream.Frame) ([]byte, bool) {
	raw, err := json.Marshal(f)
	if err != nil {
		s.log.Error("encode %s frame: %v", f.Event, err)
		return nil, false
	}
	s.frames.append(raw)
	s.hub.broadcast(raw)
	return raw, true
}

func (s *Server) latestFrame() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latest != nil
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "streamwatch simulator",
		"stream":  s.opts.Path,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if p, ok := s.history.(Pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"clients": s.hub.count(),
		"host":    hostStats(c.Request.Context()),
	})
}

// handleMetrics reports running totals and the recent history.
func (s *Server) handleMetrics(c *gin.Context) {
	history, err := s.history.Recent(c.Request.Context(), recentLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	t := s.totals
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"current_metrics": gin.H{
			"latency":      t.latencySum / float64(max(1, t.count)),
			"buffer_count": t.buffering,
			"user_count":   t.users,
		},
		"history": history,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := recentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, s.opts.HistorySize)
	}

	history, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
