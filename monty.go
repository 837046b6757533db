// Package monty is the embedding API for the Monty scripting engine:
// construct an Engine from source text, register host callables and
// dataclass factories, and Run it against a set of named inputs.
package monty

import (
	"bytes"
	"fmt"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zond/monty/compiler"
	"github.com/zond/monty/hostbridge"
	"github.com/zond/monty/interp"
	"github.com/zond/monty/limits"
	"github.com/zond/monty/scheduler"
	"github.com/zond/monty/value"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithStack wraps err with a captured stack trace, unless it already
// carries one.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(stackTracer); !ok {
		return errors.WithStack(err)
	}
	return err
}

// StackTrace renders err's captured stack trace, or "" if it has none.
func StackTrace(err error) string {
	buf := &bytes.Buffer{}
	if err, ok := err.(stackTracer); ok {
		for _, f := range err.StackTrace() {
			fmt.Fprintf(buf, "%+v\n", f)
		}
	}
	return buf.String()
}

// Set is a minimal generic set, used for the import allowlist and
// dataclass field-name bookkeeping.
type Set[K comparable] map[K]struct{}

func (s Set[K]) Set(k K) { s[k] = struct{}{} }

func (s Set[K]) Has(k K) bool {
	_, ok := s[k]
	return ok
}

func (s Set[K]) Union(o Set[K]) Set[K] {
	result := Set[K]{}
	for k := range s {
		result.Set(k)
	}
	for k := range o {
		result.Set(k)
	}
	return result
}

// ResourceLimits configures the budgets a Run call enforces (spec.md
// §4.C). It is exactly limits.Config; Engine callers never need to
// import the limits package directly.
type ResourceLimits = limits.Config

// RuntimeError wraps an uncaught script-level exception (or an internal
// fault raised as one) that escaped a Run call, so host code can inspect
// the underlying Value without importing the interp/value packages.
type RuntimeError struct {
	// ClassName is the canonical exception class, e.g. "ValueError".
	ClassName string
	// Message is the str() of the exception's first argument, if any.
	Message string
	Frames  []value.FrameInfo

	// RunID identifies the Run call that produced this error, for
	// correlating it with the diagnostic log (WithDiagnosticLog) when a
	// host embeds many concurrent Run calls against the same Engine.
	RunID uuid.UUID

	Exception value.Value
}

func (e *RuntimeError) Error() string {
	if e.Message == "" {
		return e.ClassName
	}
	return fmt.Sprintf("%s: %s", e.ClassName, e.Message)
}

// hostCallable is either a Sync or an Async host function, registered
// before construction so every engine built from the same Engine value
// (e.g. reused across Run calls) wires the same bridge surface.
type hostCallable struct {
	name  string
	async bool
	sync  hostbridge.Sync
	asyn  hostbridge.Async
}

// dataclassDecl is a user dataclass declared via DeclareDataclass,
// installed into every Run call's globals the same way the script-level
// `class Foo:` form would be (spec.md §3).
type dataclassDecl struct {
	name   string
	fields []string
	frozen bool
}

// Engine compiles and runs one piece of Monty source (spec.md §4
// "embeddable... interpreter"). Register* calls configure the host
// surface; Run executes the program fresh against a set of named inputs
// and a resource budget, once per call, isolating all heap/tracker/
// scheduler state to that single run.
type Engine struct {
	filename string
	source   string

	callables  []hostCallable
	dataclasses []dataclassDecl

	maxConcurrentHostCalls int64

	cache cache.Cache[string, *value.Code]

	logger *lumberjack.Logger
}

// New constructs an Engine compiling source under filename (used only
// for diagnostics and in compile error messages).
func New(filename, source string) *Engine {
	return &Engine{
		filename:               filename,
		source:                 source,
		maxConcurrentHostCalls: 64,
		cache: cache.NewCache[string, *value.Code]().
			WithMaxKeys(256).
			WithTTL(30 * time.Minute).
			WithLRU(),
	}
}

// WithDiagnosticLog directs internal fault diagnostics (not script
// output) to a rotating log file at path, the way the teacher's audit
// logger rotates security events.
func (e *Engine) WithDiagnosticLog(path string, maxSizeMB, maxBackups int) *Engine {
	e.logger = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return e
}

// WithMaxConcurrentHostCalls bounds how many RegisterAsync callables may
// be in flight at once for one Run (spec.md §4.F).
func (e *Engine) WithMaxConcurrentHostCalls(n int64) *Engine {
	e.maxConcurrentHostCalls = n
	return e
}

// RegisterCallable exposes fn to scripts as a synchronous global
// function named name.
func (e *Engine) RegisterCallable(name string, fn hostbridge.Sync) {
	e.callables = append(e.callables, hostCallable{name: name, sync: fn})
}

// RegisterAsyncCallable exposes fn to scripts as an awaitable global
// function named name (spec.md §4.F "async host calls").
func (e *Engine) RegisterAsyncCallable(name string, fn hostbridge.Async) {
	e.callables = append(e.callables, hostCallable{name: name, async: true, asyn: fn})
}

// DeclareDataclass installs a dataclass factory named name with the
// given fields, as if the script itself had written a `class` statement
// (spec.md §3 "classes sufficient for dataclass support").
func (e *Engine) DeclareDataclass(name string, fields []string, frozen bool) {
	e.dataclasses = append(e.dataclasses, dataclassDecl{name: name, fields: fields, frozen: frozen})
}

// compile returns source's compiled Code, consulting and populating the
// engine's source cache so repeated Run calls on the same script skip
// re-parsing (SPEC_FULL.md compiled-source cache).
func (e *Engine) compile(h *value.Heap) (*value.Code, error) {
	if code, ok := e.cache.Get(e.source); ok {
		return code, nil
	}
	code, err := compiler.Compile(h, e.filename, e.source)
	if err != nil {
		return nil, err
	}
	e.cache.Set(e.source, code, 0)
	return code, nil
}

// Run executes the program against a fresh Heap/Tracker/Interp/
// Scheduler/Bridge, enforcing limits (spec.md §4.C). inputs are exposed
// to the script as module-level globals under their given names, the
// way the reference suite feeds named fixtures into a run.
func (e *Engine) Run(inputs map[string]any, rl ResourceLimits) (result any, err error) {
	_, result, err = e.run(inputs, rl)
	return result, err
}

// RunWithTracker runs eng.Run and also returns the limits.Tracker that
// accounted the call, so callers like cmd/monty can print a stats report
// even when the run itself fails.
func RunWithTracker(eng *Engine, inputs map[string]any, rl ResourceLimits) (*limits.Tracker, any, error) {
	return eng.run(inputs, rl)
}

// RunHandle is an in-flight asynchronous Run call (spec.md §4.E "Signal
// delivery", §8 scenario 7): it lets the host deliver a signal — the
// default KeyboardInterrupt, or a custom host-raised exception — to the
// running script before it finishes, the embedding-level counterpart of
// a host process's SIGINT handler.
type RunHandle struct {
	sch    *scheduler.Scheduler
	doneCh chan struct{}
	result any
	err    error
}

// Interrupt delivers a host-raised exception, by class name and
// message, to the running task at its next instruction boundary or
// suspension point (spec.md §8 scenario 7's host-handler-raised
// `ValueError('potato')` case).
func (h *RunHandle) Interrupt(class, message string) {
	h.sch.Interrupt(class, message)
}

// InterruptKeyboard delivers the default SIGINT→KeyboardInterrupt
// signal (spec.md §8 scenario 7's default case).
func (h *RunHandle) InterruptKeyboard() {
	h.sch.InterruptKeyboard()
}

// Wait blocks until the run finishes and returns its result/error, the
// same pair Engine.Run returns synchronously.
func (h *RunHandle) Wait() (any, error) {
	<-h.doneCh
	return h.result, h.err
}

// RunAsync starts the program on its own goroutine and returns
// immediately with a handle the host can use to deliver a signal
// mid-run (spec.md §4.E, §8 scenario 7) or wait for the result — the
// asynchronous counterpart of Run, needed because a signal must reach a
// task while it is still executing, and Run itself blocks until done.
func (e *Engine) RunAsync(inputs map[string]any, rl ResourceLimits) (*RunHandle, error) {
	p, err := e.prepare(inputs, rl)
	if err != nil {
		return nil, err
	}
	h := &RunHandle{sch: p.sch, doneCh: make(chan struct{})}
	go func() {
		defer p.sch.Close()
		defer close(h.doneCh)
		h.result, h.err = e.finish(p, p.sch.Run(p.fn, nil, nil))
	}()
	return h, nil
}

// preparedRun holds everything built from an Engine/inputs/limits triple
// before the program actually executes, shared by the synchronous Run
// path and the asynchronous RunAsync path.
type preparedRun struct {
	tr     *limits.Tracker
	sch    *scheduler.Scheduler
	bridge *hostbridge.Bridge
	fn     value.Value
	runID  uuid.UUID
}

// prepare builds a fresh Heap/Tracker/Interp/Scheduler/Bridge and
// compiles/binds the program against inputs, stopping short of actually
// running it (spec.md §4.C budgets, §4.F host surface, §6 inputs).
func (e *Engine) prepare(inputs map[string]any, rl ResourceLimits) (p *preparedRun, err error) {
	runID := uuid.New()
	tr := limits.New(rl)
	tr.Start()
	h := value.NewHeap(tr)
	in, err := interp.New(h)
	if err != nil {
		return nil, WithStack(err)
	}
	for name, typ := range in.Classes {
		in.Globals[name] = typ
	}

	sch := scheduler.New(in)
	fail := func(cause error) (*preparedRun, error) {
		sch.Close()
		return nil, WithStack(cause)
	}

	bridge := hostbridge.New(in, e.maxConcurrentHostCalls, sch.NotifySettle)
	if err := registerBuiltins(in, bridge); err != nil {
		return fail(err)
	}
	for _, c := range e.callables {
		if c.async {
			if err := bridge.RegisterAsync(c.name, c.asyn); err != nil {
				return fail(err)
			}
		} else if err := bridge.Register(c.name, c.sync); err != nil {
			return fail(err)
		}
	}
	for _, d := range e.dataclasses {
		typ, derr := h.Type(d.name, d.fields, d.frozen)
		if derr != nil {
			return fail(derr)
		}
		in.Globals[d.name] = typ
		in.Classes[d.name] = typ
	}

	for name, x := range inputs {
		v, verr := bridge.ValueFromGo(x)
		if verr != nil {
			return fail(verr)
		}
		in.Globals[name] = v
	}

	code, err := e.compile(h)
	if err != nil {
		return fail(err)
	}

	fn, err := h.Function(code.Name, code, nil, nil, nil)
	if err != nil {
		return fail(err)
	}

	return &preparedRun{tr: tr, sch: sch, bridge: bridge, fn: fn, runID: runID}, nil
}

// finish wraps the result of driving p.fn through p.sch.Run into the
// embedding-friendly (any, error) pair Run/RunAsync return.
func (e *Engine) finish(p *preparedRun, res value.Value, runErr error) (any, error) {
	if runErr != nil {
		wrapped := e.wrapRuntimeError(runErr, p.tr, p.runID)
		e.logFault(wrapped, p.runID)
		return nil, wrapped
	}
	var out any
	if err := p.bridge.GoFromValue(&out, res); err != nil {
		return nil, WithStack(err)
	}
	return out, nil
}

func (e *Engine) run(inputs map[string]any, rl ResourceLimits) (tr *limits.Tracker, result any, err error) {
	p, err := e.prepare(inputs, rl)
	if err != nil {
		// prepare failed before a Tracker could be fully wired to a
		// scheduler; callers like cmd/monty still need a non-nil
		// Tracker to print a stats report, so hand back an unstarted
		// one rather than nil.
		return limits.New(rl), nil, err
	}
	defer p.sch.Close()
	result, err = e.finish(p, p.sch.Run(p.fn, nil, nil))
	return p.tr, result, err
}

// wrapRuntimeError turns a *interp.RaisedException escaping Run into the
// embedding-friendly *RuntimeError envelope (spec.md Open Question (a):
// every uncaught failure, including tracker faults converted to
// exceptions upstream, surfaces through this single envelope type).
func (e *Engine) wrapRuntimeError(err error, tr *limits.Tracker, runID uuid.UUID) error {
	raised, ok := err.(*interp.RaisedException)
	if !ok {
		return WithStack(err)
	}
	exc := raised.Value
	msg := ""
	if args := exc.ExceptionArgs(); args.Len() > 0 {
		first := args.AsTuple()[0]
		if first.Kind() == value.KindStr {
			msg = first.AsStr()
		} else if r, rerr := value.Repr(first, tr); rerr == nil {
			msg = r
		}
	}
	return &RuntimeError{
		ClassName: exc.ExceptionClassName(),
		Message:   msg,
		Frames:    exc.ExceptionFrames(),
		RunID:     runID,
		Exception: exc,
	}
}

// logFault appends a one-line fault record to the diagnostic log, if
// WithDiagnosticLog was configured. Failures to write are swallowed:
// diagnostics must never cause a Run to fail.
func (e *Engine) logFault(err error, runID uuid.UUID) {
	if e.logger == nil || err == nil {
		return
	}
	fmt.Fprintf(e.logger, "%s\t%s\t%s\t%s\n", time.Now().UTC().Format(time.RFC3339), runID, e.filename, err.Error())
}
