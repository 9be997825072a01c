// Package script is the Script Host: one isolated goja VM per process,
// with the `now`, `wait`, `request`, `release`, `spawn`, `log` API bound
// in, and the entry function driven as a native ES2015 generator coroutine
// (goja's generator support is native — no trampoline or sentinel-exception
// hack is needed to suspend a process body mid-execution).
//
// Script bodies are authored as generator functions that `yield` at the
// two suspending primitives:
//
//	function* main() {
//	  yield wait(5);
//	  log("done");
//	}
package script

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/dop251/goja"

	"github.com/joeycumines/go-desim/simtime"
)

// Level is a script log() call's severity.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelDebug Level = "debug"
)

func normalizeLevel(s string) Level {
	switch Level(s) {
	case LevelInfo, LevelWarn, LevelError, LevelDebug:
		return Level(s)
	default:
		return LevelInfo
	}
}

// MessageKind identifies the kernel message a suspending or non-suspending
// script API call produces.
type MessageKind int

const (
	MsgWait MessageKind = iota
	MsgRequest
	MsgRelease
	MsgSpawn
	MsgLog
)

// Message is one intent emitted by a process body during a single resume.
// wait/request additionally suspend the generator at the point they were
// yielded; release/spawn/log never suspend.
type Message struct {
	Kind    MessageKind
	Seconds simtime.SimTime // MsgWait
	Name    string          // MsgRequest, MsgRelease
	Child   string          // MsgSpawn
	Fn      string          // MsgSpawn
	Text    string          // MsgLog
	Level   Level           // MsgLog
}

// Status is what a single Resume call discovered about the coroutine.
type Status int

const (
	StatusSuspended Status = iota
	StatusFinished
	StatusErrored
)

// ErrNotGenerator is returned when the named entry function's call does not
// yield an object implementing the iterator protocol (next/done/value) —
// i.e. it was not declared `function*`.
var ErrNotGenerator = errors.New("script: entry function is not a generator")

// ErrUnknownFunction is returned when entryFn is absent, or present but not
// callable, in the compiled script.
var ErrUnknownFunction = errors.New("script: entry function not found")

// ErrNegativeWait is the error a script process fails with when it calls
// wait() with a negative duration.
var ErrNegativeWait = errors.New("script: wait() duration must be non-negative")

// Host is one process's private VM plus its suspendable entry coroutine.
// The VM cannot outlive its Host — there is no way to extract *goja.Runtime
// from outside this package.
type Host struct {
	rt       *goja.Runtime
	next     goja.Callable
	genSelf  goja.Value
	mailbox  []Message
	now      float64
	finished bool
}

// NewHost compiles source in a fresh VM, binds the script API, and
// materialises entryFn as a suspended generator coroutine (calling a
// generator function only constructs it — the body does not run until the
// first Resume). seed threads per-process determinism into Math.random.
func NewHost(source, entryFn string, seed int64) (*Host, error) {
	rt := goja.New()
	h := &Host{rt: rt}

	if err := rt.Set("now", func() float64 { return h.now }); err != nil {
		return nil, err
	}
	if err := rt.Set("wait", h.bindWait()); err != nil {
		return nil, err
	}
	if err := rt.Set("request", h.bindRequest()); err != nil {
		return nil, err
	}
	if err := rt.Set("release", h.bindRelease()); err != nil {
		return nil, err
	}
	if err := rt.Set("spawn", h.bindSpawn()); err != nil {
		return nil, err
	}
	if err := rt.Set("log", h.bindLog()); err != nil {
		return nil, err
	}

	seedRandom(rt, seed)

	if _, err := rt.RunString(source); err != nil {
		return nil, fmt.Errorf("script: compiling source: %w", err)
	}

	fnVal := rt.Get(entryFn)
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, entryFn)
	}
	callable, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, entryFn)
	}

	genVal, err := callable(goja.Undefined())
	if err != nil {
		return nil, fmt.Errorf("script: invoking %q: %w", entryFn, err)
	}
	genObj := genVal.ToObject(rt)
	nextVal := genObj.Get("next")
	if nextVal == nil || goja.IsUndefined(nextVal) {
		return nil, fmt.Errorf("%w: %q", ErrNotGenerator, entryFn)
	}
	next, ok := goja.AssertFunction(nextVal)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotGenerator, entryFn)
	}

	h.next = next
	h.genSelf = genVal
	return h, nil
}

// seedRandom overrides Math.random with a math/rand/v2 PCG source seeded
// deterministically, so two runs with the same seed produce the same
// script-visible randomness.
func seedRandom(rt *goja.Runtime, seed int64) {
	src := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	mathObj := rt.GlobalObject().Get("Math").ToObject(rt)
	_ = mathObj.Set("random", func() float64 { return src.Float64() })
}

// SetNow mirrors the kernel's current SimTime into the VM, read by the
// script-visible now() function. It is called before every Resume.
func (h *Host) SetNow(t simtime.SimTime) {
	h.now = t.Seconds()
}

// Resume drives the coroutine forward to its next suspension point (or
// completion): a single Resume call
// advances the generator through at most one yield statement. It returns
// every Message emitted since the previous Resume, in emission order.
func (h *Host) Resume() (Status, []Message, error) {
	if h.finished {
		return StatusFinished, nil, nil
	}
	h.mailbox = h.mailbox[:0]

	res, err := func() (v goja.Value, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("script: panic during resume: %v", r)
			}
		}()
		return h.next(h.genSelf)
	}()
	if err != nil {
		h.finished = true
		return StatusErrored, h.drain(), err
	}

	resObj := res.ToObject(h.rt)
	done := resObj.Get("done").ToBoolean()
	if done {
		h.finished = true
		return StatusFinished, h.drain(), nil
	}
	return StatusSuspended, h.drain(), nil
}

func (h *Host) drain() []Message {
	out := make([]Message, len(h.mailbox))
	copy(out, h.mailbox)
	return out
}

func (h *Host) emit(m Message) {
	h.mailbox = append(h.mailbox, m)
}

// yieldSentinel is returned by wait()/request() for the script to `yield`.
// Its content is never inspected by the host — the real intent was already
// recorded via emit() before this value is constructed — it exists only so
// the generator actually suspends at the call site.
func (h *Host) yieldSentinel(kind string) goja.Value {
	obj := h.rt.NewObject()
	_ = obj.Set("__desim_yield", kind)
	return obj
}

func (h *Host) bindWait() func(seconds float64) goja.Value {
	return func(seconds float64) goja.Value {
		if seconds < 0 {
			panic(h.rt.NewTypeError(ErrNegativeWait.Error()))
		}
		h.emit(Message{Kind: MsgWait, Seconds: simtime.FromSeconds(seconds)})
		return h.yieldSentinel("wait")
	}
}

func (h *Host) bindRequest() func(name string) goja.Value {
	return func(name string) goja.Value {
		if name == "" {
			panic(h.rt.NewTypeError("request() requires a non-empty resource name"))
		}
		h.emit(Message{Kind: MsgRequest, Name: name})
		return h.yieldSentinel("request")
	}
}

func (h *Host) bindRelease() func(name string) {
	return func(name string) {
		if name == "" {
			panic(h.rt.NewTypeError("release() requires a non-empty resource name"))
		}
		h.emit(Message{Kind: MsgRelease, Name: name})
	}
}

func (h *Host) bindSpawn() func(child, fn string) {
	return func(child, fn string) {
		if child == "" || fn == "" {
			panic(h.rt.NewTypeError("spawn() requires non-empty child name and function name"))
		}
		h.emit(Message{Kind: MsgSpawn, Child: child, Fn: fn})
	}
}

func (h *Host) bindLog() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		msg := call.Argument(0).String()
		level := LevelInfo
		if len(call.Arguments) > 1 && !goja.IsUndefined(call.Argument(1)) {
			level = normalizeLevel(call.Argument(1).String())
		}
		h.emit(Message{Kind: MsgLog, Text: msg, Level: level})
		return goja.Undefined()
	}
}
