package simulator

import (
	"fmt"
	"math/rand/v2"
)

var cdnRegions = []string{"us-east", "us-west", "eu-west", "ap-east", "sa-east"}

// contentProfile is the menu a stream of one content type is drawn from.
type contentProfile struct {
	bitrates     []int // kbps
	resolutions  []string
	segmentSizes []int // KB
	titles       []string
}

var contentTypes = map[string]contentProfile{
	"video": {
		bitrates:     []int{500, 1000, 2000, 4000, 8000},
		resolutions:  []string{"480p", "720p", "1080p", "1440p", "4K"},
		segmentSizes: []int{128, 256, 512, 1024, 2048},
		titles: []string{
			"Nature Documentary: Hidden Wonders",
			"Tech Talk: Future of AI",
			"Cooking Masterclass",
			"Space Exploration Series",
			"Historical Chronicles",
		},
	},
	"audio": {
		bitrates:     []int{96, 128, 192, 320},
		resolutions:  []string{"N/A"},
		segmentSizes: []int{32, 64, 96, 128},
		titles: []string{
			"Classical Symphony No. 9",
			"Tech Podcast Episode 42",
			"Audiobook: Science Fiction",
			"Daily News Broadcast",
			"Music Radio Stream",
		},
	},
	"live": {
		bitrates:     []int{1000, 2000, 4000, 8000},
		resolutions:  []string{"720p", "1080p", "1440p", "4K"},
		segmentSizes: []int{256, 512, 1024, 2048},
		titles: []string{
			"Live Sports Event",
			"Breaking News Coverage",
			"Live Concert Stream",
			"Gaming Tournament",
			"Live Tech Conference",
		},
	},
}

// contentTypeOrder keeps draws deterministic for a seeded source.
var contentTypeOrder = []string{"video", "audio", "live"}

// Stream is one piece of simulated content being served.
type Stream struct {
	ID          string
	Title       string
	Type        string
	Bitrate     int
	Resolution  string
	Viewers     int
	SegmentSize int
	Region      string
}

// ContentStats summarizes the active streams. The dashboard ignores these
// fields; they ride along in every sample for other consumers.
type ContentStats struct {
	TotalBandwidthMbps float64        `json:"total_bandwidth_mbps"`
	ActiveStreams      int            `json:"active_streams"`
	CDNDistribution    map[string]int `json:"cdn_distribution"`
	ContentTypes       map[string]int `json:"content_types"`
}

// Catalog tracks the simulated streams. It is not safe for concurrent use.
type Catalog struct {
	rng     *rand.Rand
	streams []*Stream
	nextID  int
}

// NewCatalog seeds a catalog with initial streams.
func NewCatalog(rng *rand.Rand, initial int) *Catalog {
	c := &Catalog{rng: rng}
	for i := 0; i < initial; i++ {
		c.Add("")
	}
	return c
}

// Add starts a new stream. An empty kind picks one at random.
func (c *Catalog) Add(kind string) *Stream {
	if _, ok := contentTypes[kind]; !ok {
		kind = contentTypeOrder[c.rng.IntN(len(contentTypeOrder))]
	}
	p := contentTypes[kind]

	c.nextID++
	s := &Stream{
		ID:          fmt.Sprintf("stream-%04d", c.nextID),
		Title:       pick(c.rng, p.titles),
		Type:        kind,
		Bitrate:     pick(c.rng, p.bitrates),
		Resolution:  pick(c.rng, p.resolutions),
		Viewers:     10 + c.rng.IntN(9991),
		SegmentSize: pick(c.rng, p.segmentSizes),
		Region:      pick(c.rng, cdnRegions),
	}
	c.streams = append(c.streams, s)
	return s
}

// Remove drops the stream with the given id, if present.
func (c *Catalog) Remove(id string) {
	for i, s := range c.streams {
		if s.ID == id {
			c.streams = append(c.streams[:i], c.streams[i+1:]...)
			return
		}
	}
}

// Streams returns the active streams.
func (c *Catalog) Streams() []*Stream {
	return c.streams
}

// Churn advances the catalog one tick: viewer counts drift by up to 100
// either way, a stream starts 10% of the time and one ends 5% of the time.
func (c *Catalog) Churn() {
	for _, s := range c.streams {
		s.Viewers = max(0, s.Viewers+c.rng.IntN(201)-100)
	}
	if c.rng.Float64() < 0.1 {
		c.Add("")
	}
	if c.rng.Float64() < 0.05 && len(c.streams) > 0 {
		c.Remove(c.streams[c.rng.IntN(len(c.streams))].ID)
	}
}

// Stats totals bandwidth and counts streams per region and content type.
func (c *Catalog) Stats() ContentStats {
	stats := ContentStats{
		ActiveStreams:   len(c.streams),
		CDNDistribution: make(map[string]int, len(cdnRegions)),
		ContentTypes:    make(map[string]int, len(contentTypes)),
	}
	for _, r := range cdnRegions {
		stats.CDNDistribution[r] = 0
	}
	for _, t := range contentTypeOrder {
		stats.ContentTypes[t] = 0
	}

	var kbps int
	for _, s := range c.streams {
		kbps += s.Bitrate * s.Viewers
		stats.CDNDistribution[s.Region]++
		stats.ContentTypes[s.Type]++
	}
	stats.TotalBandwidthMbps = float64(kbps) / 1000
	return stats
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}
