// Package state holds the dashboard session state: the rolling window of
// recent samples and the anomaly flag. Both are owned by a single dispatch
// loop and are not safe for concurrent mutation.
package state

import "github.com/rileyhilliard/streamwatch/internal/sample"

// DefaultCapacity is the number of samples kept in the rolling window.
const DefaultCapacity = 100

// Buffer is a fixed-capacity FIFO of samples kept in arrival order.
// Pushing onto a full buffer evicts the single oldest sample.
type Buffer struct {
	data  []sample.MetricSample
	head  int // next write position
	count int
}

// NewBuffer creates a buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]sample.MetricSample, capacity)}
}

// Push appends a sample, evicting the oldest one when the buffer is full.
func (b *Buffer) Push(s sample.MetricSample) {
	b.data[b.head] = s
	b.head = (b.head + 1) % len(b.data)
	if b.count < len(b.data) {
		b.count++
	}
}

// Snapshot returns the buffered samples oldest first. The slice is a copy;
// later pushes never change it.
func (b *Buffer) Snapshot() []sample.MetricSample {
	if b.count == 0 {
		return nil
	}

	out := make([]sample.MetricSample, b.count)
	// head is the next write position, so the oldest sample sits count slots behind it
	start := (b.head - b.count + len(b.data)) % len(b.data)
	for i := 0; i < b.count; i++ {
		out[i] = b.data[(start+i)%len(b.data)]
	}
	return out
}

// Latest returns the most recently pushed sample.
func (b *Buffer) Latest() (sample.MetricSample, bool) {
	if b.count == 0 {
		return sample.MetricSample{}, false
	}
	return b.data[(b.head-1+len(b.data))%len(b.data)], true
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	clear(b.data)
	b.head = 0
	b.count = 0
}
