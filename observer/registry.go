package observer

import "time"

const (
	maxHistory   = 50
	maxErrors    = 20
	maxEventLog  = 500
)

// HistoryEntry is one bounded (value, timestamp) sample kept per signal.
type HistoryEntry struct {
	Value any
	At    time.Time
}

// SignalMeta is the registry's metadata record for one signal identity
// (spec §4.8).
type SignalMeta struct {
	ID          uint64
	Name        string
	Kind        CellKind
	CreatedAt   time.Time
	ChangeCount int
	History     []HistoryEntry
	ErrorCount  int
	Errors      []error
	Tags        map[string]bool
	Disposed    bool
}

var (
	signals   = map[uint64]*SignalMeta{}
	tags      = map[string]map[uint64]bool{}
	eventLog  []Event
)

// recordLocked updates the registries and bounded replay cache for e. Must
// be called with mu held.
func recordLocked(e Event) {
	switch e.Kind {
	case EventSignalCreate:
		signals[e.ID] = &SignalMeta{
			ID:        e.ID,
			Name:      e.Name,
			Kind:      e.CellKind,
			CreatedAt: e.Timestamp,
			Tags:      map[string]bool{},
		}
	case EventSignalChange:
		if m, ok := signals[e.ID]; ok {
			m.ChangeCount++
			m.History = append(m.History, HistoryEntry{Value: e.Value, At: e.Timestamp})
			if len(m.History) > maxHistory {
				m.History = m.History[len(m.History)-maxHistory:]
			}
		}
	case EventSignalError:
		if m, ok := signals[e.ID]; ok {
			m.ErrorCount++
			m.Errors = append(m.Errors, e.Err)
			if len(m.Errors) > maxErrors {
				m.Errors = m.Errors[len(m.Errors)-maxErrors:]
			}
		}
	case EventSignalDispose:
		if m, ok := signals[e.ID]; ok {
			m.Disposed = true
		}
	case EventSignalRename:
		if m, ok := signals[e.ID]; ok {
			m.Name = e.Name
		}
	case EventSignalsForget:
		delete(signals, e.ID)
		for _, set := range tags {
			delete(set, e.ID)
		}
	case EventTagCreate:
		if _, ok := tags[e.Tag]; !ok {
			tags[e.Tag] = map[uint64]bool{}
		}
	case EventTagAdd:
		if _, ok := tags[e.Tag]; !ok {
			tags[e.Tag] = map[uint64]bool{}
		}
		tags[e.Tag][e.ID] = true
		if m, ok := signals[e.ID]; ok {
			m.Tags[e.Tag] = true
		}
	case EventTagRemove:
		delete(tags[e.Tag], e.ID)
		if m, ok := signals[e.ID]; ok {
			delete(m.Tags, e.Tag)
		}
	}

	eventLog = append(eventLog, e)
	if len(eventLog) > maxEventLog {
		eventLog = eventLog[len(eventLog)-maxEventLog:]
	}
}

// registrySnapshotEvents returns a copy of the bounded replay cache. Must
// be called with mu held.
func registrySnapshotEvents() []Event {
	out := make([]Event, len(eventLog))
	copy(out, eventLog)
	return out
}

// Forget atomically removes id's signal from the registry without emitting
// a signal:dispose event, for reclaiming an orphaned scope's cells (spec
// §5, "Orphan reclamation"; §4.8, "Forget").
func Forget(id uint64) {
	Emit(Event{Kind: EventSignalsForget, ID: id})
}

// TagCreate declares a new named tag (spec §4.8).
func TagCreate(name string) {
	Emit(Event{Kind: EventTagCreate, Tag: name})
}

// TagAdd adds id to tag's membership set.
func TagAdd(tag string, id uint64) {
	Emit(Event{Kind: EventTagAdd, Tag: tag, ID: id})
}

// TagRemove removes id from tag's membership set.
func TagRemove(tag string, id uint64) {
	Emit(Event{Kind: EventTagRemove, Tag: tag, ID: id})
}

// SignalsSnapshot returns a deep-enough copy of the signals registry for
// read-only consumers (e.g. the graph builder), which must never mutate
// the live registry (spec §4.10).
func SignalsSnapshot() map[uint64]SignalMeta {
	mu.Lock()
	defer mu.Unlock()

	out := make(map[uint64]SignalMeta, len(signals))
	for id, m := range signals {
		cp := *m
		cp.Tags = make(map[string]bool, len(m.Tags))
		for k, v := range m.Tags {
			cp.Tags[k] = v
		}
		cp.History = append([]HistoryEntry(nil), m.History...)
		cp.Errors = append([]error(nil), m.Errors...)
		out[id] = cp
	}
	return out
}

// TagsSnapshot returns a copy of the tags registry.
func TagsSnapshot() map[string]map[uint64]bool {
	mu.Lock()
	defer mu.Unlock()

	out := make(map[string]map[uint64]bool, len(tags))
	for name, set := range tags {
		cp := make(map[uint64]bool, len(set))
		for id, v := range set {
			cp[id] = v
		}
		out[name] = cp
	}
	return out
}

// EventLog returns a copy of the bounded, time-ordered event cache.
func EventLog() []Event {
	mu.Lock()
	defer mu.Unlock()
	return registrySnapshotEvents()
}

// reset clears all registry state. Exposed only to tests in this package.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	signals = map[uint64]*SignalMeta{}
	tags = map[string]map[uint64]bool{}
	eventLog = nil
	hooks = nil
	enabled.Store(false)
}
