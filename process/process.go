// Package process implements the Process Registry: the lifecycle and
// state machine of named simulated processes, keyed by an opaque ID so
// that callbacks enqueued on the Clock never hold a live Go reference to a
// Process — only its ID — the same way an event-loop registry indexes
// promises by a generated uint64 rather than passing pointers around.
package process

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-desim/simtime"
)

// ID is an opaque, registry-assigned process identifier.
type ID uint64

// State is a process's position in its lifecycle.
type State int

const (
	Ready State = iota
	Running
	WaitingForTime
	WaitingForResource
	Finished
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case WaitingForTime:
		return "waiting_for_time"
	case WaitingForResource:
		return "waiting_for_resource"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrDuplicateName is returned when a live process already owns name.
	ErrDuplicateName = errors.New("process: name already in use")
	// ErrUnknownFunction reports an entry function name that no loaded
	// script defines. Registry does not check entry functions and never
	// returns it.
	ErrUnknownFunction = errors.New("process: unknown entry function")
	// ErrUnknownProcess reports a name/ID that does not resolve to a live
	// process. Registry's lookups report a miss with ok=false rather than
	// returning it.
	ErrUnknownProcess = errors.New("process: unknown process")
)

// Record is the Registry's bookkeeping for one process. The VM field is
// typed as `any` so that process does not depend on script; the kernel
// package keeps each process's *script.Host in its own ID-keyed map and
// leaves this field unset.
type Record struct {
	ID         ID
	Name       string
	EntryFn    string
	State      State
	WakeTime   simtime.SimTime
	WaitingRes string
	VM         any
}

// Registry owns every process for the lifetime of one simulation. Names
// are unique across that lifetime — a Finished process's name is not
// reclaimed until Cleanup removes it.
type Registry struct {
	byID    map[ID]*Record
	byName  map[string]ID
	order   []ID // insertion order, for deterministic iteration
	nextID  ID
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[ID]*Record),
		byName: make(map[string]ID),
	}
}

// Create registers a brand-new process named name, running entryFn, in
// state Ready. Fails if name is already live.
func (r *Registry) Create(name, entryFn string) (*Record, error) {
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.nextID++
	id := r.nextID
	rec := &Record{ID: id, Name: name, EntryFn: entryFn, State: Ready}
	r.byID[id] = rec
	r.byName[name] = id
	r.order = append(r.order, id)
	return rec, nil
}

// Get resolves a Record by ID.
func (r *Registry) Get(id ID) (*Record, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// GetByName resolves a Record by its live name.
func (r *Registry) GetByName(name string) (*Record, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// SetReady transitions id to Ready.
func (r *Registry) SetReady(id ID) {
	if rec, ok := r.byID[id]; ok {
		rec.State = Ready
		rec.WaitingRes = ""
	}
}

// SetRunning transitions id to Running.
func (r *Registry) SetRunning(id ID) {
	if rec, ok := r.byID[id]; ok {
		rec.State = Running
	}
}

// SetWaitingForTime transitions id to WaitingForTime(wake).
func (r *Registry) SetWaitingForTime(id ID, wake simtime.SimTime) {
	if rec, ok := r.byID[id]; ok {
		rec.State = WaitingForTime
		rec.WakeTime = wake
	}
}

// SetWaitingForResource transitions id to WaitingForResource(name).
func (r *Registry) SetWaitingForResource(id ID, name string) {
	if rec, ok := r.byID[id]; ok {
		rec.State = WaitingForResource
		rec.WaitingRes = name
	}
}

// SetFinished transitions id to the terminal Finished state.
func (r *Registry) SetFinished(id ID) {
	if rec, ok := r.byID[id]; ok {
		rec.State = Finished
	}
}

// Terminate is an alias for SetFinished, given a distinct name so callers
// document *why* at the cancellation call site.
func (r *Registry) Terminate(id ID) {
	r.SetFinished(id)
}

// State returns id's current state, or Finished if id is unknown (a
// terminated/absent process can't make progress either way).
func (r *Registry) State(id ID) State {
	if rec, ok := r.byID[id]; ok {
		return rec.State
	}
	return Finished
}

// ListActive returns every non-Finished process's ID, in creation order.
func (r *Registry) ListActive() []ID {
	out := make([]ID, 0, len(r.order))
	for _, id := range r.order {
		if rec := r.byID[id]; rec.State != Finished {
			out = append(out, id)
		}
	}
	return out
}

// Cleanup removes every Finished process from the registry entirely —
// byID, byName, and the iteration order — freeing its name for reuse.
// Before Cleanup runs, a Finished process's name stays reserved.
func (r *Registry) Cleanup() {
	live := r.order[:0]
	for _, id := range r.order {
		rec := r.byID[id]
		if rec.State == Finished {
			delete(r.byID, id)
			delete(r.byName, rec.Name)
			continue
		}
		live = append(live, id)
	}
	r.order = live
}
