// Package simulator is the Public Facade: the embedder-facing
// surface over the Kernel. A Simulator owns exactly one run's worth of
// state — create resources and load processes before calling Run, inspect
// Stats/Errors/Trace afterward. It is not safe for concurrent use by
// multiple goroutines, the same single-actor discipline an event-loop owner
// documents on its own event loop's owner-goroutine contract.
package simulator

import (
	"encoding/json"

	"github.com/joeycumines/go-desim/kernel"
	"github.com/joeycumines/go-desim/simtime"
)

// Simulator is the embedder's entry point into one discrete-event run.
type Simulator struct {
	k *kernel.Kernel
}

// New returns a fresh Simulator. logger may be nil, in which case kernel
// diagnostics and script log() calls are discarded.
func New(logger kernel.Logger) *Simulator {
	return &Simulator{k: kernel.New(logger)}
}

// SetSeed threads a determinism seed into every subsequently loaded or
// spawned process's VM. Call before LoadProcess/Run so repeated runs with
// the same seed reproduce an identical trace.
func (s *Simulator) SetSeed(seed int64) {
	s.k.SetSeed(seed)
}

// CreateResource registers a capacity-limited named resource. name must be
// non-empty and unused.
func (s *Simulator) CreateResource(name string, capacity uint64) error {
	return s.k.CreateResource(name, capacity)
}

// LoadProcess registers scriptSource (retaining it so a later spawn() of
// any function it defines can materialise a fresh VM) and creates one Ready
// process named name running entryFn.
func (s *Simulator) LoadProcess(name, scriptSource, entryFn string) error {
	_, err := s.k.LoadProcess(name, scriptSource, entryFn)
	return err
}

// Terminate cancels a live process out-of-band, forgetting it
// from every resource wait list it may be queued on.
func (s *Simulator) Terminate(name string) {
	s.k.Terminate(name)
}

// Run advances virtual time by duration from the current now. It returns
// when the run horizon is reached, every process finishes and no future
// timer or event remains, or every active process is deadlocked waiting on
// resources that will never be released. Not re-entrant.
func (s *Simulator) Run(duration simtime.SimTime) (RunResult, error) {
	res, err := s.k.Run(duration)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Outcome: res.Outcome.String(), FinalTime: res.FinalTime.Seconds()}, nil
}

// RunResult is the embedder-facing summary of one Run call.
type RunResult struct {
	Outcome   string  // "horizon", "exhausted", or "deadlock"
	FinalTime float64 // seconds
}

// ResourceStat mirrors one resource's row in the stats() JSON shape, plus
// total_wait_time.
type ResourceStat struct {
	Name          string  `json:"name"`
	Capacity      uint64  `json:"capacity"`
	Available     uint64  `json:"available"`
	Utilisation   float64 `json:"utilisation"`
	QueueLength   uint64  `json:"queue_length"`
	TotalRequests uint64  `json:"total_requests"`
	TotalWaitTime float64 `json:"total_wait_time"`
}

// StatsSnapshot is the exact JSON shape of the stats() contract.
type StatsSnapshot struct {
	Time            float64        `json:"time"`
	ActiveProcesses uint64         `json:"active_processes"`
	Resources       []ResourceStat `json:"resources"`
}

// JSON marshals the snapshot, for embedders that want the raw value rather
// than the Go struct (encoding/json is stdlib; no pack library exposes a
// general "encode an arbitrary struct" entry point — stumpy's encoder is
// purpose-built for log-event byte buffers, not ad hoc marshalling).
func (s StatsSnapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Stats reports a point-in-time snapshot.
func (s *Simulator) Stats() StatsSnapshot {
	snap := StatsSnapshot{
		Time:            s.k.Now().Seconds(),
		ActiveProcesses: uint64(s.k.ActiveCount()),
	}
	for _, st := range s.k.ResourceStats() {
		snap.Resources = append(snap.Resources, ResourceStat{
			Name:          st.Name,
			Capacity:      st.Capacity,
			Available:     st.Available,
			Utilisation:   st.Utilisation,
			QueueLength:   st.QueueLength,
			TotalRequests: st.TotalRequests,
			TotalWaitTime: st.TotalWaitTime.Seconds(),
		})
	}
	return snap
}

// Errors returns the accumulated non-fatal error history (bounded ring,
// last 256), for embedders that want more than the log stream.
func (s *Simulator) Errors() []error {
	return s.k.Errors()
}

// TraceEntry is one (time, process, message) observation.
type TraceEntry = kernel.TraceEntry

// Trace returns up to the last n recorded trace entries, or every entry
// retained if n <= 0 or exceeds the ring's length.
func (s *Simulator) Trace(n int) []TraceEntry {
	return s.k.Trace(n)
}

// ProcessState reports a live process's current lifecycle state, for
// embedders and tests (e.g. asserting a deadlocked process is still
// WaitingForResource at horizon).
func (s *Simulator) ProcessState(name string) (string, bool) {
	state, ok := s.k.ProcessState(name)
	if !ok {
		return "", false
	}
	return state.String(), true
}
