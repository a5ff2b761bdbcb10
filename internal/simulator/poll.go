package simulator

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rileyhilliard/streamwatch/internal/stream"
)

const (
	// frameLogSize bounds how far behind a long-poll client may fall before
	// it silently skips frames.
	frameLogSize = 256

	maxPollWait = time.Minute
)

// frameLog is a ring of encoded frames numbered by a monotonic sequence.
// Long-poll clients resume from the sequence they last saw.
type frameLog struct {
	mu     sync.Mutex
	frames [][]byte
	next   uint64 // sequence of the next appended frame
	notify chan struct{}
}

func newFrameLog(size int) *frameLog {
	return &frameLog{
		frames: make([][]byte, size),
		notify: make(chan struct{}),
	}
}

// append stores a frame and wakes every waiting poller.
func (l *frameLog) append(frame []byte) {
	l.mu.Lock()
	l.frames[l.next%uint64(len(l.frames))] = frame
	l.next++
	close(l.notify)
	l.notify = make(chan struct{})
	l.mu.Unlock()
}

// since returns the frames at or after cursor, the cursor to resume from,
// and a channel closed on the next append.
func (l *frameLog) since(cursor uint64) ([][]byte, uint64, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	oldest := uint64(0)
	if l.next > uint64(len(l.frames)) {
		oldest = l.next - uint64(len(l.frames))
	}
	if cursor < oldest {
		cursor = oldest
	}
	if cursor > l.next {
		cursor = l.next
	}

	out := make([][]byte, 0, l.next-cursor)
	for seq := cursor; seq < l.next; seq++ {
		out = append(out, l.frames[seq%uint64(len(l.frames))])
	}
	return out, l.next, l.notify
}

// head is the cursor a fresh client starts from.
func (l *frameLog) head() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// handlePoll serves the long-poll transport. A request without a cursor is
// a new client: it gets the latest sample right away and the current head.
// Otherwise the request blocks up to wait for frames past the cursor.
func (s *Server) handlePoll(c *gin.Context) {
	wait := time.Duration(0)
	if raw := c.Query("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "wait must be a non-negative duration"})
			return
		}
		wait = min(d, maxPollWait)
	}

	raw := c.Query("cursor")
	if raw == "" {
		frames := [][]byte{}
		if f, ok := s.latestFrame(); ok {
			frames = append(frames, f)
		}
		s.writePoll(c, frames, s.frames.head())
		return
	}

	cursor, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cursor must be an unsigned integer"})
		return
	}

	frames, next, notify := s.frames.since(cursor)
	if len(frames) == 0 && wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-notify:
			frames, next, _ = s.frames.since(cursor)
		case <-timer.C:
		case <-c.Request.Context().Done():
			return
		case <-s.done:
		}
	}
	s.writePoll(c, frames, next)
}

func (s *Server) writePoll(c *gin.Context, frames [][]byte, next uint64) {
	body := make([]json.RawMessage, len(frames))
	for i, f := range frames {
		body[i] = f
	}
	c.Header(stream.CursorHeader, strconv.FormatUint(next, 10))
	c.JSON(http.StatusOK, body)
}
