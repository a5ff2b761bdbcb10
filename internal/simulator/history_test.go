package simulator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/streamwatch/internal/logger"
)

func reading(latency float64) Reading {
	return Reading{Timestamp: "2024-05-01T12:00:00Z", Latency: latency, Buffering: 1, Users: 2}
}

func latencies(rs []Reading) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Latency
	}
	return out
}

func TestMemoryHistory(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		limit  int
		pushes []float64
		recent int
		want   []float64
	}{
		{"empty", 3, nil, 10, []float64{}},
		{"newest first", 5, []float64{1, 2, 3}, 10, []float64{3, 2, 1}},
		{"evicts oldest", 3, []float64{1, 2, 3, 4, 5}, 10, []float64{5, 4, 3}},
		{"recent caps count", 5, []float64{1, 2, 3, 4}, 2, []float64{4, 3}},
		{"zero requested", 5, []float64{1, 2}, 0, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMemoryHistory(tt.limit)
			for _, v := range tt.pushes {
				require.NoError(t, h.Push(ctx, reading(v)))
			}
			got, err := h.Recent(ctx, tt.recent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, latencies(got))
			assert.LessOrEqual(t, h.Len(), tt.limit)
		})
	}
}

func TestMemoryHistory_Reset(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryHistory(3)
	require.NoError(t, h.Push(ctx, reading(1)))
	require.NoError(t, h.Reset(ctx))
	assert.Equal(t, 0, h.Len())
}

func newRedisHistory(t *testing.T, limit int) (*RedisHistory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	h, err := NewRedisHistory(context.Background(), RedisOptions{
		Addr:   mr.Addr(),
		Key:    DefaultHistoryKey,
		Limit:  limit,
		Logger: logger.Noop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, mr
}

func TestRedisHistory_PushTrimsList(t *testing.T) {
	ctx := context.Background()
	h, mr := newRedisHistory(t, 3)

	for _, v := range []float64{1, 2, 3, 4} {
		require.NoError(t, h.Push(ctx, reading(v)))
	}

	list, err := mr.List(DefaultHistoryKey)
	require.NoError(t, err)
	require.Len(t, list, 3)

	var head Reading
	require.NoError(t, json.Unmarshal([]byte(list[0]), &head))
	assert.Equal(t, 4.0, head.Latency)

	got, err := h.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 3}, latencies(got))
}

func TestRedisHistory_KeepsContentStats(t *testing.T) {
	ctx := context.Background()
	h, _ := newRedisHistory(t, 10)

	r := reading(7)
	r.ContentStats = &ContentStats{
		TotalBandwidthMbps: 12.5,
		ActiveStreams:      2,
		CDNDistribution:    map[string]int{"us-east": 2},
		ContentTypes:       map[string]int{"live": 2},
	}
	require.NoError(t, h.Push(ctx, r))

	got, err := h.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].ContentStats)
	assert.Equal(t, 2, got[0].ActiveStreams)
	assert.Equal(t, 12.5, got[0].TotalBandwidthMbps)
}

func TestRedisHistory_FallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	h, mr := newRedisHistory(t, 10)

	require.NoError(t, h.Push(ctx, reading(1)))
	require.NoError(t, h.Push(ctx, reading(2)))

	mr.SetError("ERR injected failure")

	assert.Error(t, h.Push(ctx, reading(3)))

	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1}, latencies(got))
	assert.Error(t, h.Ping(ctx))
}

func TestRedisHistory_ResetDeletesKey(t *testing.T) {
	ctx := context.Background()
	h, mr := newRedisHistory(t, 10)

	require.NoError(t, h.Push(ctx, reading(1)))
	require.True(t, mr.Exists(DefaultHistoryKey))

	require.NoError(t, h.Reset(ctx))
	assert.False(t, mr.Exists(DefaultHistoryKey))

	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisHistory_SkipsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	h, mr := newRedisHistory(t, 10)

	require.NoError(t, h.Push(ctx, reading(1)))
	_, err := mr.Lpush(DefaultHistoryKey, "not json")
	require.NoError(t, err)

	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, latencies(got))
}

func TestNewRedisHistory_PingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("hunter2")

	_, err := NewRedisHistory(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
