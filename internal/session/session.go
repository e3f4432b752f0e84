package session

import (
	"context"
	"maps"
	"sync"
)

// Type names a session-level operation.
type Type string

const (
	TypeAudio        Type = "audio"
	TypeImage        Type = "image"
	TypeVideo        Type = "video"
	TypeMultiLingual Type = "multiLingual"
	TypeCaption      Type = "caption"
	TypePDF          Type = "pdf"
	TypeHTML         Type = "html"
	TypeMarkdown     Type = "markdown"
)

// BeatType names a per-beat operation. It also prefixes artifact cache keys.
type BeatType string

const (
	BeatAudio        BeatType = "audio"
	BeatImage        BeatType = "image"
	BeatMovie        BeatType = "movie"
	BeatMultiLingual BeatType = "multiLingual"
	BeatCaption      BeatType = "caption"
	BeatHTML         BeatType = "html"
)

// EventKind distinguishes session-level from beat-level notifications.
type EventKind string

const (
	KindSession EventKind = "session"
	KindBeat    EventKind = "beat"
)

// Event is delivered to observers on every transition. ID is set only for
// beat events.
type Event struct {
	Kind        EventKind
	SessionType string
	ID          string
	InSession   bool
}

// Observer receives events synchronously on the goroutine that caused them.
type Observer func(Event)

// State is a point-in-time copy of tracker state. A beat missing from
// InBeatSession is not running.
type State struct {
	InSession     map[Type]bool
	InBeatSession map[BeatType]map[string]bool
}

// Registry holds the observer set shared by one or more trackers.
type Registry struct {
	mu        sync.Mutex
	nextID    uint64
	observers []registered
}

type registered struct {
	id uint64
	fn Observer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe adds an observer and returns the function that removes it.
// Calling the disposer more than once is harmless.
func (r *Registry) Subscribe(fn Observer) func() {
	if fn == nil {
		return func() {}
	}
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.observers = append(r.observers, registered{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, obs := range r.observers {
				if obs.id == id {
					r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Len returns the number of subscribed observers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

// Reset drops every observer.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.observers = nil
	r.mu.Unlock()
}

func (r *Registry) publish(event Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	snapshot := make([]Observer, len(r.observers))
	for i, obs := range r.observers {
		snapshot[i] = obs.fn
	}
	r.mu.Unlock()
	for _, fn := range snapshot {
		fn(event)
	}
}

// Tracker is the progress state machine for one pipeline run.
type Tracker struct {
	registry *Registry

	mu            sync.Mutex
	inSession     map[Type]bool
	inBeatSession map[BeatType]map[string]bool
}

// NewTracker returns a tracker publishing to registry. A nil registry gets a
// private one.
func NewTracker(registry *Registry) *Tracker {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Tracker{
		registry:      registry,
		inSession:     make(map[Type]bool),
		inBeatSession: make(map[BeatType]map[string]bool),
	}
}

// Registry returns the registry the tracker publishes to.
func (t *Tracker) Registry() *Registry {
	return t.registry
}

// Begin marks a session as running.
func (t *Tracker) Begin(kind Type) {
	t.setSession(kind, true)
}

// End marks a session as finished.
func (t *Tracker) End(kind Type) {
	t.setSession(kind, false)
}

func (t *Tracker) setSession(kind Type, running bool) {
	t.mu.Lock()
	t.inSession[kind] = running
	t.mu.Unlock()
	t.registry.publish(Event{Kind: KindSession, SessionType: string(kind), InSession: running})
}

// BeginBeat marks one beat of a beat-level operation as running.
func (t *Tracker) BeginBeat(kind BeatType, key string) {
	t.mu.Lock()
	beats, ok := t.inBeatSession[kind]
	if !ok {
		beats = make(map[string]bool)
		t.inBeatSession[kind] = beats
	}
	beats[key] = true
	t.mu.Unlock()
	t.registry.publish(Event{Kind: KindBeat, SessionType: string(kind), ID: key, InSession: true})
}

// EndBeat removes the beat from the running set.
func (t *Tracker) EndBeat(kind BeatType, key string) {
	t.mu.Lock()
	if beats, ok := t.inBeatSession[kind]; ok {
		delete(beats, key)
		if len(beats) == 0 {
			delete(t.inBeatSession, kind)
		}
	}
	t.mu.Unlock()
	t.registry.publish(Event{Kind: KindBeat, SessionType: string(kind), ID: key, InSession: false})
}

// InSession reports whether the session is running.
func (t *Tracker) InSession(kind Type) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inSession[kind]
}

// InBeatSession reports whether the beat is running.
func (t *Tracker) InBeatSession(kind BeatType, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inBeatSession[kind][key]
}

// State returns a deep copy of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := State{
		InSession:     maps.Clone(t.inSession),
		InBeatSession: make(map[BeatType]map[string]bool, len(t.inBeatSession)),
	}
	for kind, beats := range t.inBeatSession {
		state.InBeatSession[kind] = maps.Clone(beats)
	}
	return state
}

// Track runs fn between BeginBeat and EndBeat. EndBeat runs even when fn
// panics; the panic is re-raised afterwards.
func (t *Tracker) Track(ctx context.Context, kind BeatType, key string, fn func(context.Context) error) error {
	t.BeginBeat(kind, key)
	defer t.EndBeat(kind, key)
	return fn(ctx)
}

// TrackSession runs fn between Begin and End with the same guarantee as Track.
func (t *Tracker) TrackSession(ctx context.Context, kind Type, fn func(context.Context) error) error {
	t.Begin(kind)
	defer t.End(kind)
	return fn(ctx)
}
