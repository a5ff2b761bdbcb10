// Package sample defines the metric observation that flows through streamwatch
// and its lenient wire decoding.
package sample

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field identifies one measured field of a MetricSample.
type Field uint8

const (
	FieldTimestamp Field = 1 << iota
	FieldLatency
	FieldBuffering
	FieldUsers
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldTimestamp, "timestamp"},
	{FieldLatency, "latency"},
	{FieldBuffering, "buffering"},
	{FieldUsers, "users"},
}

// String returns the wire names of the fields in the mask, joined with "|".
// The empty mask is "none".
func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, fn := range fieldNames {
		if f&fn.field != 0 {
			names = append(names, fn.name)
			f &^= fn.field
		}
	}
	if f != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, "|")
}

// MetricSample is one observation reported by the producer.
// Missing has a bit set for every field that was absent or unparseable in
// the payload; the zero value means every field is present.
type MetricSample struct {
	Timestamp time.Time
	Latency   float64 // milliseconds
	Buffering int64   // buffering events
	Users     int64   // concurrent users
	Missing   Field
}

// Has reports whether the field carried a usable value.
func (s MetricSample) Has(f Field) bool {
	return s.Missing&f == 0
}

// Complete reports whether every field is present.
func (s MetricSample) Complete() bool {
	return s.Missing == 0
}

// timestampLayouts are tried in order. Layouts without a zone are read in
// local time, the way a browser reads an ISO string without an offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses the producer's timestamp string. Numeric strings are
// read as Unix milliseconds.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(ms) && !math.IsInf(ms, 0) {
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}

// FormatTimestamp renders a timestamp the way Decode expects it.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// wireSample is the outbound JSON shape.
type wireSample struct {
	Timestamp string  `json:"timestamp"`
	Latency   float64 `json:"latency"`
	Buffering int64   `json:"buffering"`
	Users     int64   `json:"users"`
}

// MarshalJSON encodes the sample in the producer wire format.
func (s MetricSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireSample{
		Timestamp: FormatTimestamp(s.Timestamp),
		Latency:   s.Latency,
		Buffering: s.Buffering,
		Users:     s.Users,
	})
}

// UnmarshalJSON decodes leniently: missing, null, or mistyped fields are
// recorded in Missing instead of failing. Only a payload that is not a JSON
// object is an error.
func (s *MetricSample) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out MetricSample

	if ts, ok := decodeTimestamp(raw["timestamp"]); ok {
		out.Timestamp = ts
	} else {
		out.Missing |= FieldTimestamp
	}

	if v, ok := decodeNumber(raw["latency"]); ok {
		out.Latency = v
	} else {
		out.Missing |= FieldLatency
	}

	if v, ok := decodeCount(raw["buffering"]); ok {
		out.Buffering = v
	} else {
		out.Missing |= FieldBuffering
	}

	if v, ok := decodeCount(raw["users"]); ok {
		out.Users = v
	} else {
		out.Missing |= FieldUsers
	}

	*s = out
	return nil
}

// Decode parses one sample payload.
func Decode(data []byte) (MetricSample, error) {
	var s MetricSample
	err := s.UnmarshalJSON(data)
	return s, err
}

func decodeTimestamp(raw json.RawMessage) (time.Time, bool) {
	if isNull(raw) {
		return time.Time{}, false
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return ParseTimestamp(str)
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}

// decodeNumber accepts a finite JSON number or a quoted one. NaN and the
// infinities count as missing.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		// Some producers quote numbers.
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		if v, err = strconv.ParseFloat(strings.TrimSpace(str), 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// decodeCount is decodeNumber truncated to an int64. Values outside the
// int64 range count as missing.
func decodeCount(raw json.RawMessage) (int64, bool) {
	v, ok := decodeNumber(raw)
	if !ok || v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
