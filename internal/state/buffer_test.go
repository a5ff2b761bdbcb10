package state

import (
	"testing"
	"time"

	"github.com/rileyhilliard/streamwatch/internal/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleAt(i int) sample.MetricSample {
	return sample.MetricSample{
		Timestamp: epoch.Add(time.Duration(i) * time.Second),
		Latency:   float64(i),
		Buffering: int64(i % 7),
		Users:     int64(i * 10),
	}
}

func TestNewBuffer(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		expected int
	}{
		{"default capacity", 0, DefaultCapacity},
		{"negative capacity", -3, DefaultCapacity},
		{"custom capacity", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(tt.capacity)
			assert.Equal(t, tt.expected, b.Cap())
			assert.Equal(t, 0, b.Len())
			assert.Nil(t, b.Snapshot())
		})
	}
}

func TestBuffer_SinglePush(t *testing.T) {
	b := NewBuffer(DefaultCapacity)
	s := sampleAt(1)

	b.Push(s)

	snap := b.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, s, snap[0])

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, s, latest)
}

func TestBuffer_NeverExceedsCapacity(t *testing.T) {
	b := NewBuffer(DefaultCapacity)

	for i := 0; i < 350; i++ {
		b.Push(sampleAt(i))
		assert.LessOrEqual(t, b.Len(), DefaultCapacity)
	}
	assert.Equal(t, DefaultCapacity, b.Len())
}

func TestBuffer_KeepsLastHundredInOrder(t *testing.T) {
	b := NewBuffer(DefaultCapacity)

	const pushes = 257
	for i := 0; i < pushes; i++ {
		b.Push(sampleAt(i))
	}

	snap := b.Snapshot()
	require.Len(t, snap, DefaultCapacity)
	for i, s := range snap {
		assert.Equal(t, sampleAt(pushes-DefaultCapacity+i), s)
	}

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, sampleAt(pushes-1), latest)
}

func TestBuffer_EvictsExactlyOneOldest(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 3; i++ {
		b.Push(sampleAt(i))
	}

	b.Push(sampleAt(3))

	snap := b.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []sample.MetricSample{sampleAt(1), sampleAt(2), sampleAt(3)}, snap)
}

func TestBuffer_PreservesArrivalOrderForSkewedTimestamps(t *testing.T) {
	b := NewBuffer(5)
	order := []int{5, 1, 4, 2}
	for _, i := range order {
		b.Push(sampleAt(i))
	}

	snap := b.Snapshot()
	require.Len(t, snap, len(order))
	for idx, i := range order {
		assert.Equal(t, sampleAt(i), snap[idx], "arrival order must be kept, not timestamp order")
	}
}

func TestBuffer_SnapshotIsIsolated(t *testing.T) {
	b := NewBuffer(2)
	b.Push(sampleAt(0))
	b.Push(sampleAt(1))

	snap := b.Snapshot()
	b.Push(sampleAt(2))

	assert.Equal(t, []sample.MetricSample{sampleAt(0), sampleAt(1)}, snap)
	assert.Equal(t, []sample.MetricSample{sampleAt(1), sampleAt(2)}, b.Snapshot())
}

func TestBuffer_Reset(t *testing.T) {
	b := NewBuffer(4)
	for i := 0; i < 6; i++ {
		b.Push(sampleAt(i))
	}

	b.Reset()

	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.Snapshot())
	_, ok := b.Latest()
	assert.False(t, ok)

	b.Push(sampleAt(9))
	assert.Equal(t, []sample.MetricSample{sampleAt(9)}, b.Snapshot())
}

func TestAnomalyFlag(t *testing.T) {
	var f AnomalyFlag
	assert.False(t, f.Get(), "flag starts cleared")

	f.Set(true)
	assert.True(t, f.Get())

	f.Set(false)
	assert.False(t, f.Get())

	// No memory of prior values: flapping is reflected exactly
	for _, v := range []bool{true, true, false, true, false, false} {
		f.Set(v)
		assert.Equal(t, v, f.Get())
	}
}
