package dashboard

import (
	"sort"
	"sync"
	"time"
)

// Frame is one rendered section of a dashboard. A frame with Err set marks
// the section as failed to render.
type Frame struct {
	Dashboard  string    `json:"dashboard"`
	Section    string    `json:"section"`
	Title      string    `json:"title"`
	Data       any       `json:"data,omitempty"`
	Err        string    `json:"error,omitempty"`
	RenderedAt time.Time `json:"renderedAt"`
}

// Failed reports whether the frame carries an error instead of data.
func (f Frame) Failed() bool { return f.Err != "" }

// Sink receives rendered frames.
type Sink interface {
	Publish(Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

// Publish calls fn(f).
func (fn SinkFunc) Publish(f Frame) { fn(f) }

// Tee fans frames out to several sinks in order.
type Tee []Sink

// Publish hands f to every non-nil sink.
func (t Tee) Publish(f Frame) {
	for _, s := range t {
		if s != nil {
			s.Publish(f)
		}
	}
}

// Store keeps the latest frame per dashboard section. Concurrent publishers
// for the same section resolve as last write wins.
type Store struct {
	mu     sync.RWMutex
	frames map[string]map[string]Frame
	order  map[string][]string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		frames: make(map[string]map[string]Frame),
		order:  make(map[string][]string),
	}
}

// Publish records f as the latest frame of its section.
func (s *Store) Publish(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sections, ok := s.frames[f.Dashboard]
	if !ok {
		sections = make(map[string]Frame)
		s.frames[f.Dashboard] = sections
	}
	if _, seen := sections[f.Section]; !seen {
		s.order[f.Dashboard] = append(s.order[f.Dashboard], f.Section)
	}
	sections[f.Section] = f
}

// Frames returns the sections of one dashboard in first-published order.
func (s *Store) Frames(dashboard string) []Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sections := s.frames[dashboard]
	out := make([]Frame, 0, len(sections))
	for _, name := range s.order[dashboard] {
		out = append(out, sections[name])
	}
	return out
}

// Frame returns one section.
func (s *Store) Frame(dashboard, section string) (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[dashboard][section]
	return f, ok
}

// Dashboards lists the dashboards that have published at least one frame.
func (s *Store) Dashboards() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.frames))
	for name := range s.frames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Snapshot copies every frame, keyed by dashboard.
func (s *Store) Snapshot() map[string][]Frame {
	names := s.Dashboards()
	out := make(map[string][]Frame, len(names))
	for _, name := range names {
		out[name] = s.Frames(name)
	}
	return out
}

// UpdatedAt is the newest render time across the sections of dashboard.
func (s *Store) UpdatedAt(dashboard string) time.Time {
	var latest time.Time
	for _, f := range s.Frames(dashboard) {
		if f.RenderedAt.After(latest) {
			latest = f.RenderedAt
		}
	}
	return latest
}
