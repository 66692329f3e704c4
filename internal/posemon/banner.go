package posemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/Dv04/aixavier/internal/timeutil"
)

// Banner kinds counted by Banners.
const (
	BannerCollapse = "collapse"
	BannerGesture  = "gesture"
	BannerPhone    = "phone"
)

type banner struct {
	label   string
	expires time.Time
}

// Banners keeps emission counts and short-lived display labels. Counts are
// cumulative; labels disappear once their TTL has elapsed. Safe for
// concurrent use.
type Banners struct {
	mu     sync.Mutex
	clock  timeutil.Clock
	ttl    time.Duration
	counts map[string]int
	active []banner
	tracks map[int64]banner
}

// NewBanners creates an empty set with the given label TTL.
func NewBanners(ttl time.Duration, clock timeutil.Clock) *Banners {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Banners{
		clock:  clock,
		ttl:    ttl,
		counts: map[string]int{BannerCollapse: 0, BannerGesture: 0, BannerPhone: 0},
		tracks: make(map[int64]banner),
	}
}

// Record counts one emission of kind and shows label for the TTL, both in
// the HUD list and against trackID when it is positive.
func (b *Banners) Record(kind, label string, trackID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	b.prune(now)
	b.counts[kind]++
	entry := banner{label: label, expires: now.Add(b.ttl)}
	b.active = append(b.active, entry)
	if trackID > 0 {
		b.tracks[trackID] = entry
	}
}

// EventCounts returns a copy of the cumulative counts by kind.
func (b *Banners) EventCounts() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}

// HUDLines returns the count summary followed by every unexpired label.
func (b *Banners) HUDLines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(b.clock.Now())

	lines := make([]string, 0, 1+len(b.active))
	lines = append(lines, fmt.Sprintf("Pose events: collapse=%d gesture=%d phone=%d",
		b.counts[BannerCollapse], b.counts[BannerGesture], b.counts[BannerPhone]))
	for _, e := range b.active {
		lines = append(lines, e.label)
	}
	return lines
}

// TrackLabels returns the unexpired label of each track.
func (b *Banners) TrackLabels() map[int64]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(b.clock.Now())
	out := make(map[int64]string, len(b.tracks))
	for id, e := range b.tracks {
		out[id] = e.label
	}
	return out
}

// prune drops expired labels. Callers hold b.mu.
func (b *Banners) prune(now time.Time) {
	live := b.active[:0]
	for _, e := range b.active {
		if e.expires.After(now) {
			live = append(live, e)
		}
	}
	clear(b.active[len(live):])
	b.active = live
	for id, e := range b.tracks {
		if !e.expires.After(now) {
			delete(b.tracks, id)
		}
	}
}
