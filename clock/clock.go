// Package clock implements the virtual clock and its priority event queue.
//
// Ordering follows a strict total order: time, then Priority, then
// insertion id — the same three-way tie-break a wall-clock timer wheel
// uses for simultaneous timers, adapted here to simulated time.
package clock

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/joeycumines/go-desim/simtime"
)

// Callback is invoked exactly once when its event is dispatched.
type Callback func()

// ErrEmpty is returned by ProcessNextEvent when the queue has nothing pending.
var ErrEmpty = errors.New("clock: event queue is empty")

// ErrPastSchedule is returned when a caller attempts to schedule an event
// at or deriving a time strictly before the current now — scheduling into
// the past is a kernel bug, never silently normalised.
var ErrPastSchedule = errors.New("clock: cannot schedule in the past")

// ErrNegativeDelay is returned by ScheduleAfter for delta < 0.
var ErrNegativeDelay = errors.New("clock: delta must be non-negative")

// event is one entry in the priority queue.
type event struct {
	time     simtime.SimTime
	priority simtime.Priority
	id       uint64
	cb       Callback
}

// eventHeap implements container/heap.Interface, ordered so the minimum
// (earliest time, then lowest priority value, then lowest id) pops first.
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.time != b.time {
		return a.time < b.time
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.id < b.id
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Clock owns the virtual time and its pending-event queue. It is not safe
// for concurrent use — the Scheduler is its only caller, per the engine's
// single-actor discipline.
type Clock struct {
	now    simtime.SimTime
	queue  eventHeap
	nextID uint64
}

// New returns a Clock starting at simtime.Zero.
func New() *Clock {
	return &Clock{}
}

// Now returns the current virtual time.
func (c *Clock) Now() simtime.SimTime {
	return c.now
}

// ScheduleAt enqueues cb to run at t. It fails if t is strictly before Now.
func (c *Clock) ScheduleAt(t simtime.SimTime, p simtime.Priority, cb Callback) error {
	if t < c.now {
		return fmt.Errorf("%w: now=%s requested=%s", ErrPastSchedule, c.now, t)
	}
	c.nextID++
	heap.Push(&c.queue, &event{time: t, priority: p, id: c.nextID, cb: cb})
	return nil
}

// ScheduleAfter enqueues cb to run delta seconds from Now. delta must be >= 0.
func (c *Clock) ScheduleAfter(delta simtime.SimTime, p simtime.Priority, cb Callback) error {
	if delta < 0 {
		return ErrNegativeDelay
	}
	return c.ScheduleAt(c.now.Add(delta), p, cb)
}

// HasEvents reports whether any event is pending.
func (c *Clock) HasEvents() bool {
	return len(c.queue) > 0
}

// PeekTime returns the time of the earliest pending event without popping
// it. The second return is false when the queue is empty.
func (c *Clock) PeekTime() (simtime.SimTime, bool) {
	if len(c.queue) == 0 {
		return 0, false
	}
	return c.queue[0].time, true
}

// ProcessNextEvent pops the minimum event, advances Now to its time, and
// invokes its callback exactly once. Fails if the queue is empty.
func (c *Clock) ProcessNextEvent() error {
	if len(c.queue) == 0 {
		return ErrEmpty
	}
	e := heap.Pop(&c.queue).(*event)
	c.now = e.time
	e.cb()
	return nil
}

// DrainDueAt processes every event whose time equals t, in priority/id
// order, without advancing Now past t. Used by the scheduler to apply an
// entire batch of simultaneous events.
func (c *Clock) DrainDueAt(t simtime.SimTime) error {
	for len(c.queue) > 0 && c.queue[0].time == t {
		if err := c.ProcessNextEvent(); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceTo moves Now forward to t directly, with no event to dispatch —
// used when the next due instant comes from the Timed Wait Set rather
// than the event queue, or when a run is being clamped to its horizon.
// It fails if t is strictly before Now.
func (c *Clock) AdvanceTo(t simtime.SimTime) error {
	if t < c.now {
		return fmt.Errorf("%w: now=%s requested=%s", ErrPastSchedule, c.now, t)
	}
	c.now = t
	return nil
}

// Clear discards all pending events without running them.
func (c *Clock) Clear() {
	c.queue = nil
}
