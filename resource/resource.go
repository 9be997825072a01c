// Package resource implements the Resource Manager: capacity-limited pools
// with strict FIFO wait queues. Request and Release are single atomic
// calls, and each resource accumulates TotalWaitTime across every waiter it
// ever hands off to, not just its current queue.
package resource

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-desim/simtime"
)

var (
	// ErrDuplicateName is returned by Create when name already exists.
	ErrDuplicateName = errors.New("resource: name already exists")
	// ErrEmptyName is returned by Create for an empty name.
	ErrEmptyName = errors.New("resource: name must not be empty")
	// ErrUnknown is returned by Request/Release for an unregistered name.
	ErrUnknown = errors.New("resource: unknown resource")
)

// Outcome is the result of a Request call.
type Outcome int

const (
	Granted Outcome = iota
	Queued
)

func (o Outcome) String() string {
	if o == Granted {
		return "granted"
	}
	return "queued"
}

// waiter is one entry in a resource's FIFO wait list.
type waiter struct {
	process  string
	enqueued simtime.SimTime
}

// resourceState is the internal record for one named resource.
type resourceState struct {
	name           string
	capacity       uint64
	available      uint64
	wait           []waiter
	totalRequests  uint64
	totalWaitTime  simtime.SimTime
}

// Manager owns every named resource in a simulation. Not safe for
// concurrent use — only the Scheduler calls it, per the single-actor
// discipline of the engine as a whole.
type Manager struct {
	resources map[string]*resourceState
	// order preserves resource creation order for deterministic Stats() output.
	order []string
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{resources: make(map[string]*resourceState)}
}

// Create registers a new named resource with the given capacity. Fails if
// name is empty or already registered — creation is never idempotent.
func (m *Manager) Create(name string, capacity uint64) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := m.resources[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	m.resources[name] = &resourceState{name: name, capacity: capacity, available: capacity}
	m.order = append(m.order, name)
	return nil
}

// Request attempts to acquire name for process at time now. It never
// blocks: if capacity is immediately available it is granted synchronously,
// otherwise process is appended to the FIFO wait list and Queued is
// returned.
func (m *Manager) Request(name, process string, now simtime.SimTime) (Outcome, error) {
	r, ok := m.resources[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	r.totalRequests++
	if r.available > 0 {
		r.available--
		return Granted, nil
	}
	r.wait = append(r.wait, waiter{process: process, enqueued: now})
	return Queued, nil
}

// Release gives name back. If the wait list is non-empty, the head waiter
// is granted directly — available is left at zero and its name is
// returned so the caller can move it to Ready. Otherwise available is
// incremented, capped at capacity. A release against a resource already at
// full availability is a no-op (double-release), reported via ok=false so
// the caller can log it.
func (m *Manager) Release(name string, now simtime.SimTime) (handoff string, ok bool, err error) {
	r, present := m.resources[name]
	if !present {
		return "", false, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if len(r.wait) > 0 {
		head := r.wait[0]
		r.wait = r.wait[1:]
		r.totalWaitTime += now.Sub(head.enqueued)
		return head.process, true, nil
	}
	if r.available >= r.capacity {
		return "", false, nil
	}
	r.available++
	return "", true, nil
}

// Forget removes every occurrence of process from name's wait list, used
// when a waiting process is cancelled out-of-band. It is a no-op if
// process is not waiting.
func (m *Manager) Forget(name, process string) {
	r, ok := m.resources[name]
	if !ok {
		return
	}
	out := r.wait[:0]
	for _, w := range r.wait {
		if w.process != process {
			out = append(out, w)
		}
	}
	r.wait = out
}

// Stat is a point-in-time snapshot of one resource.
type Stat struct {
	Name          string
	Capacity      uint64
	Available     uint64
	Utilisation   float64
	QueueLength   uint64
	TotalRequests uint64
	TotalWaitTime simtime.SimTime
}

// Stats returns a snapshot per resource, in creation order.
func (m *Manager) Stats() []Stat {
	out := make([]Stat, 0, len(m.order))
	for _, name := range m.order {
		r := m.resources[name]
		var util float64
		if r.capacity > 0 {
			util = float64(r.capacity-r.available) / float64(r.capacity)
		}
		out = append(out, Stat{
			Name:          r.name,
			Capacity:      r.capacity,
			Available:     r.available,
			Utilisation:   util,
			QueueLength:   uint64(len(r.wait)),
			TotalRequests: r.totalRequests,
			TotalWaitTime: r.totalWaitTime,
		})
	}
	return out
}

// Exists reports whether name has been created.
func (m *Manager) Exists(name string) bool {
	_, ok := m.resources[name]
	return ok
}
