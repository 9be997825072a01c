// Package kernel implements the Scheduler: the
// single-threaded cooperative main loop that mirrors time into every
// process VM, wakes timed and resource waiters, drains and resumes the
// ready queue, dispatches the messages that resumption produced, and
// advances virtual time when nothing more is ready.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/joeycumines/go-desim/clock"
	"github.com/joeycumines/go-desim/process"
	"github.com/joeycumines/go-desim/resource"
	"github.com/joeycumines/go-desim/script"
	"github.com/joeycumines/go-desim/simtime"
)

// Outcome describes why Run returned.
type Outcome int

const (
	// OutcomeHorizon means the run stopped because now reached the
	// requested horizon, with further work still pending beyond it.
	OutcomeHorizon Outcome = iota
	// OutcomeExhausted means no more events, timed waits, or ready
	// processes remain — the simulation ran out of work before horizon.
	OutcomeExhausted
	// OutcomeDeadlock means every active process is WaitingForResource
	// and no timer or event will ever fire to unblock any of them.
	OutcomeDeadlock
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHorizon:
		return "horizon"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeDeadlock:
		return "deadlock"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RunResult is returned by Run on a clean (non-fatal) stop.
type RunResult struct {
	Outcome  Outcome
	FinalTime simtime.SimTime
}

// ErrAlreadyRunning is returned when Run is called while another Run call
// on the same Kernel is already in progress.
var ErrAlreadyRunning = errors.New("kernel: Run is not re-entrant")

// TraceEntry records one (time, process, message) observation, used for
// the bounded trace ring.
type TraceEntry struct {
	Time    simtime.SimTime
	Process string
	Kind    string
	Detail  string
}

const traceCapacity = 256

// Kernel owns the Clock, Resource Manager, and Process Registry for one
// simulation, and runs the scheduler loop over them. It is not safe for
// concurrent use.
type Kernel struct {
	clock     *clock.Clock
	resources *resource.Manager
	registry  *process.Registry
	hosts     map[process.ID]*script.Host

	// funcSources maps every top-level function name discovered in any
	// loaded script to the source text that defines it, so spawn(child,
	// fn) can materialise a fresh VM for fn regardless of which
	// load_process call originally brought it in.
	funcSources map[string]string

	ready []process.ID

	logger Logger
	trace  []TraceEntry
	errs   []error

	seed    int64
	running bool
}

// New returns an empty Kernel. logger may be nil, in which case a NopLogger
// is used.
func New(logger Logger) *Kernel {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Kernel{
		clock:       clock.New(),
		resources:   resource.New(),
		registry:    process.NewRegistry(),
		hosts:       make(map[process.ID]*script.Host),
		funcSources: make(map[string]string),
		logger:      logger,
	}
}

// SetSeed threads a determinism seed into every subsequently created VM's
// Math.random. It does not affect VMs
// already created.
func (k *Kernel) SetSeed(seed int64) {
	k.seed = seed
}

// Now returns the current virtual time.
func (k *Kernel) Now() simtime.SimTime {
	return k.clock.Now()
}

// CreateResource registers a new named resource.
func (k *Kernel) CreateResource(name string, capacity uint64) error {
	if err := k.resources.Create(name, capacity); err != nil {
		k.recordError(&ResourceError{Resource: name, Kind: ResourceErrDuplicateCreate, Err: err})
		return err
	}
	return nil
}

// LoadProcess registers script source under entryFn and materialises one
// Ready process named name running it.
func (k *Kernel) LoadProcess(name, source, entryFn string) (process.ID, error) {
	fns, err := script.ListFunctions(source)
	if err != nil {
		return 0, &ScriptError{Process: name, Err: err}
	}
	found := false
	for _, fn := range fns {
		if _, exists := k.funcSources[fn]; !exists {
			k.funcSources[fn] = source
		}
		if fn == entryFn {
			found = true
		}
	}
	if !found {
		err := fmt.Errorf("function %q not defined in script", entryFn)
		k.recordError(&ProcessError{Process: name, Kind: ProcessErrUnknownFunction, Err: err})
		return 0, &ProcessError{Process: name, Kind: ProcessErrUnknownFunction, Err: err}
	}

	rec, err := k.registry.Create(name, entryFn)
	if err != nil {
		k.recordError(&ProcessError{Process: name, Kind: ProcessErrDuplicateName, Err: err})
		return 0, err
	}

	host, err := script.NewHost(source, entryFn, k.seed^int64(rec.ID))
	if err != nil {
		k.registry.SetFinished(rec.ID)
		k.recordError(&ScriptError{Process: name, Err: err})
		return rec.ID, &ScriptError{Process: name, Err: err}
	}
	k.hosts[rec.ID] = host
	k.ready = append(k.ready, rec.ID)
	return rec.ID, nil
}

// Terminate moves name to Finished out-of-band:
// its mailbox is discarded and it is forgotten from every resource's wait
// list.
func (k *Kernel) Terminate(name string) {
	rec, ok := k.registry.GetByName(name)
	if !ok {
		return
	}
	for _, st := range k.resources.Stats() {
		k.resources.Forget(st.Name, name)
	}
	k.registry.SetFinished(rec.ID)
}

// Run advances virtual time by duration from the current now, returning
// when the horizon is reached, the simulation runs out of future work, or
// a deadlock is detected. It is not re-entrant.
func (k *Kernel) Run(duration simtime.SimTime) (RunResult, error) {
	if k.running {
		return RunResult{}, ErrAlreadyRunning
	}
	k.running = true
	defer func() { k.running = false }()

	horizon := k.clock.Now().Add(duration)

	for {
		k.mirrorTime()
		k.wakeTimedDue()

		batch := k.ready
		k.ready = nil

		for _, id := range batch {
			if k.registry.State(id) == process.Finished {
				continue
			}
			k.registry.SetRunning(id)
			if err := k.resumeAndDispatch(id); err != nil {
				var simErr *SimulationError
				if errors.As(err, &simErr) {
					return RunResult{Outcome: OutcomeExhausted, FinalTime: k.clock.Now()}, err
				}
			}
		}

		k.registry.Cleanup()

		if len(k.ready) > 0 {
			continue
		}

		result, done, err := k.tryAdvance(horizon)
		if err != nil {
			return RunResult{}, err
		}
		if done {
			return result, nil
		}
	}
}

// mirrorTime writes now into every live process's VM.
func (k *Kernel) mirrorTime() {
	now := k.clock.Now()
	for _, id := range k.registry.ListActive() {
		if h, ok := k.hosts[id]; ok {
			h.SetNow(now)
		}
	}
}

// wakeTimedDue moves every WaitingForTime process whose wake time has
// arrived to Ready.
func (k *Kernel) wakeTimedDue() {
	now := k.clock.Now()
	for _, id := range k.registry.ListActive() {
		rec, ok := k.registry.Get(id)
		if !ok || rec.State != process.WaitingForTime {
			continue
		}
		if rec.WakeTime <= now {
			k.registry.SetReady(id)
			k.ready = append(k.ready, id)
			k.appendTrace(k.traceEntry(rec.Name, "wait-resume", ""))
		}
	}
}

// resumeAndDispatch resumes one process and applies every message it
// emitted, in emission order, aborting the remainder of that process's
// messages (and finishing it) on a ProcessError/ScriptError/request-time
// ResourceError: errors scoped to one process terminate only that process.
func (k *Kernel) resumeAndDispatch(id process.ID) error {
	rec, _ := k.registry.Get(id)
	host := k.hosts[id]

	status, messages, err := host.Resume()
	if err != nil {
		k.registry.SetFinished(id)
		k.recordError(&ScriptError{Process: rec.Name, Err: err})
		k.logger.Error("script error", map[string]any{"process": rec.Name, "error": err.Error()})
		return nil
	}

	for _, msg := range messages {
		if k.registry.State(id) == process.Finished {
			break
		}
		if abort := k.applyMessage(id, rec.Name, msg); abort {
			k.registry.SetFinished(id)
			break
		}
	}

	if k.registry.State(id) == process.Finished {
		return nil
	}

	switch status {
	case script.StatusFinished:
		k.registry.SetFinished(id)
		k.appendTrace(k.traceEntry(rec.Name, "finished", ""))
	case script.StatusSuspended:
		// resolved to WaitingForTime/WaitingForResource/Ready by applyMessage;
		// if neither wait() nor request() was the last emitted suspending
		// call (a script authoring defect — the generator yielded without
		// the host recording an intent to suspend on) fail that process.
		if rec.State == process.Running {
			err := fmt.Errorf("process suspended without a recorded wait()/request() intent")
			k.registry.SetFinished(id)
			k.recordError(&ScriptError{Process: rec.Name, Err: err})
			k.logger.Error("script error", map[string]any{"process": rec.Name, "error": err.Error()})
		}
	}
	return nil
}

// applyMessage applies one message for process id, returning true if the
// process must be aborted (terminated) as a result.
func (k *Kernel) applyMessage(id process.ID, name string, msg script.Message) bool {
	now := k.clock.Now()
	switch msg.Kind {
	case script.MsgWait:
		k.registry.SetWaitingForTime(id, now.Add(msg.Seconds))
		return false

	case script.MsgRequest:
		outcome, err := k.resources.Request(msg.Name, name, now)
		if err != nil {
			k.recordError(&ResourceError{Resource: msg.Name, Kind: ResourceErrUnknown, Err: err})
			k.recordError(&ScriptError{Process: name, Err: err})
			k.logger.Error("request on unknown resource", map[string]any{"process": name, "resource": msg.Name})
			return true
		}
		if outcome == resource.Granted {
			k.registry.SetReady(id)
			k.ready = append(k.ready, id)
			k.appendTrace(k.traceEntry(name, "granted", msg.Name))
		} else {
			k.registry.SetWaitingForResource(id, msg.Name)
			k.appendTrace(k.traceEntry(name, "queued", msg.Name))
		}
		return false

	case script.MsgRelease:
		handoff, ok, err := k.resources.Release(msg.Name, now)
		if err != nil {
			k.recordError(&ResourceError{Resource: msg.Name, Kind: ResourceErrUnknown, Err: err})
			k.logger.Warn("release on unknown resource", map[string]any{"process": name, "resource": msg.Name})
			return false
		}
		if !ok {
			k.recordError(&ResourceError{Resource: msg.Name, Kind: ResourceErrReleaseWithoutHold, Err: errors.New("double release")})
			k.logger.Warn("double release", map[string]any{"process": name, "resource": msg.Name})
			return false
		}
		if handoff != "" {
			if target, found := k.registry.GetByName(handoff); found {
				k.registry.SetReady(target.ID)
				k.ready = append(k.ready, target.ID)
				k.appendTrace(k.traceEntry(handoff, "granted", msg.Name))
			}
		}
		k.appendTrace(k.traceEntry(name, "release", msg.Name))
		return false

	case script.MsgSpawn:
		if err := k.spawn(msg.Child, msg.Fn); err != nil {
			k.recordError(err)
			k.logger.Error("spawn failed", map[string]any{"process": name, "child": msg.Child, "fn": msg.Fn, "error": err.Error()})
			return true
		}
		return false

	case script.MsgLog:
		k.forwardLog(name, msg)
		return false

	default:
		return false
	}
}

// spawn materialises a brand-new child process running fn, reusing
// whichever previously loaded script source defines it.
func (k *Kernel) spawn(child, fn string) error {
	if _, exists := k.registry.GetByName(child); exists {
		return &ProcessError{Process: child, Kind: ProcessErrDuplicateName, Err: fmt.Errorf("process %q already exists", child)}
	}
	source, ok := k.funcSources[fn]
	if !ok {
		return &ProcessError{Process: child, Kind: ProcessErrSpawnUnknownFunc, Err: fmt.Errorf("function %q was never loaded", fn)}
	}

	rec, err := k.registry.Create(child, fn)
	if err != nil {
		return &ProcessError{Process: child, Kind: ProcessErrDuplicateName, Err: err}
	}

	host, err := script.NewHost(source, fn, k.seed^int64(rec.ID))
	if err != nil {
		k.registry.SetFinished(rec.ID)
		return &ScriptError{Process: child, Err: err}
	}
	k.hosts[rec.ID] = host
	k.ready = append(k.ready, rec.ID)
	return nil
}

func (k *Kernel) forwardLog(process string, msg script.Message) {
	fields := map[string]any{"process": process, "time": k.clock.Now().Seconds()}
	k.appendTrace(k.traceEntry(process, "log", msg.Text))
	switch msg.Level {
	case script.LevelWarn:
		k.logger.Warn(msg.Text, fields)
	case script.LevelError:
		k.logger.Error(msg.Text, fields)
	case script.LevelDebug:
		k.logger.Debug(msg.Text, fields)
	default:
		k.logger.Info(msg.Text, fields)
	}
}

func (k *Kernel) traceEntry(proc, kind, detail string) TraceEntry {
	return TraceEntry{Time: k.clock.Now(), Process: proc, Kind: kind, Detail: detail}
}

// appendTrace appends to the bounded trace ring, dropping (and logging) the
// oldest entry once traceCapacity is exceeded.
func (k *Kernel) appendTrace(e TraceEntry) {
	k.trace = append(k.trace, e)
	if len(k.trace) > traceCapacity {
		dropped := len(k.trace) - traceCapacity
		k.logger.Warn("dropping oldest trace entries past capacity", map[string]any{"dropped": dropped})
		k.trace = k.trace[dropped:]
	}
}

func (k *Kernel) recordError(err error) {
	k.errs = append(k.errs, err)
	if len(k.errs) > traceCapacity {
		dropped := len(k.errs) - traceCapacity
		k.logger.Warn("dropping oldest recorded errors past capacity", map[string]any{"dropped": dropped})
		k.errs = k.errs[dropped:]
	}
}

// tryAdvance runs once the ready queue is empty: it
// either advance the clock to the next due instant (and dispatch whatever
// Event Queue callbacks land exactly there), or decide the run is over.
func (k *Kernel) tryAdvance(horizon simtime.SimTime) (RunResult, bool, error) {
	tTimed, hasTimed := k.earliestTimedWake()
	tEvent, hasEvent := k.clock.PeekTime()

	candidate := simtime.SimTime(math.Inf(1))
	have := false
	if hasTimed {
		candidate = tTimed
		have = true
	}
	if hasEvent && (!have || tEvent < candidate) {
		candidate = tEvent
		have = true
	}

	if !have {
		if k.anyWaitingForResource() {
			return RunResult{Outcome: OutcomeDeadlock, FinalTime: k.clock.Now()}, true, nil
		}
		return RunResult{Outcome: OutcomeExhausted, FinalTime: k.clock.Now()}, true, nil
	}

	if candidate > horizon {
		if err := k.clock.AdvanceTo(horizon); err != nil {
			return RunResult{}, false, &SimulationError{Err: err}
		}
		return RunResult{Outcome: OutcomeHorizon, FinalTime: horizon}, true, nil
	}

	if err := k.clock.AdvanceTo(candidate); err != nil {
		return RunResult{}, false, &SimulationError{Err: err}
	}
	if err := k.clock.DrainDueAt(candidate); err != nil {
		return RunResult{}, false, &SimulationError{Err: err}
	}
	return RunResult{}, false, nil
}

// earliestTimedWake returns the minimum WakeTime across every active
// WaitingForTime process.
func (k *Kernel) earliestTimedWake() (simtime.SimTime, bool) {
	var min simtime.SimTime
	found := false
	for _, id := range k.registry.ListActive() {
		rec, ok := k.registry.Get(id)
		if !ok || rec.State != process.WaitingForTime {
			continue
		}
		if !found || rec.WakeTime < min {
			min = rec.WakeTime
			found = true
		}
	}
	return min, found
}

func (k *Kernel) anyWaitingForResource() bool {
	for _, id := range k.registry.ListActive() {
		rec, ok := k.registry.Get(id)
		if ok && rec.State == process.WaitingForResource {
			return true
		}
	}
	return false
}

// ActiveCount returns the number of non-Finished processes.
func (k *Kernel) ActiveCount() int {
	return len(k.registry.ListActive())
}

// ResourceStats returns a snapshot of every resource.
func (k *Kernel) ResourceStats() []resource.Stat {
	return k.resources.Stats()
}

// Errors returns the bounded history of non-fatal errors recorded so far.
func (k *Kernel) Errors() []error {
	out := make([]error, len(k.errs))
	copy(out, k.errs)
	return out
}

// Trace returns up to the last n recorded (time, process, message) entries.
func (k *Kernel) Trace(n int) []TraceEntry {
	if n <= 0 || n > len(k.trace) {
		n = len(k.trace)
	}
	out := make([]TraceEntry, n)
	copy(out, k.trace[len(k.trace)-n:])
	return out
}

// ProcessState exposes one process's state by name, for tests and
// embedders that need to assert a specific process is stuck waiting.
func (k *Kernel) ProcessState(name string) (process.State, bool) {
	rec, ok := k.registry.GetByName(name)
	if !ok {
		return process.Finished, false
	}
	return rec.State, true
}
