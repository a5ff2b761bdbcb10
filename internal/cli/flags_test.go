package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/errors"
)

func TestParseDurationFlag(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		want    time.Duration
		wantErr bool
	}{
		{
			name: "empty string returns zero",
			flag: "",
			want: 0,
		},
		{
			name: "valid seconds",
			flag: "5s",
			want: 5 * time.Second,
		},
		{
			name: "valid minutes",
			flag: "2m",
			want: 2 * time.Minute,
		},
		{
			name: "valid milliseconds",
			flag: "500ms",
			want: 500 * time.Millisecond,
		},
		{
			name: "valid complex duration",
			flag: "1m30s",
			want: 90 * time.Second,
		},
		{
			name:    "bare number returns error",
			flag:    "5",
			wantErr: true,
		},
		{
			name:    "invalid string returns error",
			flag:    "fast",
			wantErr: true,
		},
		{
			name:    "negative duration returns error",
			flag:    "-5s",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationFlag("timeout", tt.flag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				assert.Contains(t, err.Error(), "--timeout")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverrideStream(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{name: "no overrides", wantHost: "localhost", wantPort: 8000},
		{name: "host only", host: "metrics.internal", wantHost: "metrics.internal", wantPort: 8000},
		{name: "port only", port: 9000, wantHost: "localhost", wantPort: 9000},
		{name: "both", host: "10.0.0.5", port: 443, wantHost: "10.0.0.5", wantPort: 443},
		{name: "port too large", port: 70000, wantErr: true},
		{name: "negative port", port: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.DefaultConfig().Stream
			err := overrideStream(&s, tt.host, tt.port)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, s.Host)
			assert.Equal(t, tt.wantPort, s.Port)
		})
	}
}
