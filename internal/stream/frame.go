package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rileyhilliard/streamwatch/internal/sample"
)

// Event names carried in the frame envelope.
const (
	EventSample  = "sample"
	EventAnomaly = "anomaly"
)

// eventAliases maps the names older producers emit onto the canonical ones.
var eventAliases = map[string]string{
	"metrics_update": EventSample,
	"anomaly_alert":  EventAnomaly,
}

// Frame is the wire envelope shared by every transport.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewSampleFrame wraps a sample for the wire.
func NewSampleFrame(s sample.MetricSample) (Frame, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: EventSample, Data: data}, nil
}

// NewAnomalyFrame wraps an anomaly signal for the wire.
func NewAnomalyFrame(anomalous bool) Frame {
	data, _ := json.Marshal(anomalous)
	return Frame{Event: EventAnomaly, Data: data}
}

// Kind distinguishes the two event streams.
type Kind int

const (
	KindSample Kind = iota
	KindAnomaly
)

func (k Kind) String() string {
	if k == KindAnomaly {
		return EventAnomaly
	}
	return EventSample
}

// Event is a decoded frame tagged with the session that received it.
type Event struct {
	Session uint64
	Kind    Kind
	Sample  sample.MetricSample
	Anomaly bool
}

// errUnknownEvent marks frames that are valid but not for us.
var errUnknownEvent = errors.New("unknown event")

// decodeFrame turns a raw message into an Event. Sample payloads are decoded
// leniently; only payloads that are not JSON objects are rejected.
func decodeFrame(raw []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Event{}, fmt.Errorf("decode frame: %w", err)
	}

	name := f.Event
	if alias, ok := eventAliases[name]; ok {
		name = alias
	}

	switch name {
	case EventSample:
		s, err := sample.Decode(f.Data)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: KindSample, Sample: s}, nil
	case EventAnomaly:
		var flag bool
		if err := json.Unmarshal(f.Data, &flag); err != nil {
			return Event{}, fmt.Errorf("decode anomaly payload: %w", err)
		}
		return Event{Kind: KindAnomaly, Anomaly: flag}, nil
	default:
		return Event{}, fmt.Errorf("%w %q", errUnknownEvent, f.Event)
	}
}
