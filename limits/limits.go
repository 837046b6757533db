// Package limits implements Monty's centralized resource accountant: the
// single collaborator every allocation and every instruction boundary
// must consult before proceeding (spec.md §4.C).
package limits

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Config mirrors the five host-configurable fields of spec.md §4.C. A
// nil pointer field disables that particular cap. Config doubles as the
// embedding API's ResourceLimits record (spec.md §6): Get returns the
// current value of a named field, and the zero value of Config disables
// every cap.
type Config struct {
	MaxAllocations    *int64
	MaxDurationSecs   *float64
	MaxMemory         *int64
	GCInterval        *int64
	MaxRecursionDepth *int64

	// set records which fields the host explicitly configured, so Repr
	// can emit only those (spec.md §6).
	set map[string]bool
}

// WithMaxAllocations returns a copy of c with MaxAllocations set.
func (c Config) WithMaxAllocations(v int64) Config { return c.with("max_allocations", func(c *Config) { c.MaxAllocations = &v }) }

// WithMaxDurationSecs returns a copy of c with MaxDurationSecs set.
func (c Config) WithMaxDurationSecs(v float64) Config {
	return c.with("max_duration_secs", func(c *Config) { c.MaxDurationSecs = &v })
}

// WithMaxMemory returns a copy of c with MaxMemory set.
func (c Config) WithMaxMemory(v int64) Config { return c.with("max_memory", func(c *Config) { c.MaxMemory = &v }) }

// WithGCInterval returns a copy of c with GCInterval set.
func (c Config) WithGCInterval(v int64) Config { return c.with("gc_interval", func(c *Config) { c.GCInterval = &v }) }

// WithMaxRecursionDepth returns a copy of c with MaxRecursionDepth set.
func (c Config) WithMaxRecursionDepth(v int64) Config {
	return c.with("max_recursion_depth", func(c *Config) { c.MaxRecursionDepth = &v })
}

func (c Config) with(name string, f func(*Config)) Config {
	cp := c
	cp.set = map[string]bool{}
	for k := range c.set {
		cp.set[k] = true
	}
	cp.set[name] = true
	f(&cp)
	return cp
}

// Get returns the current value of a named field (nil if unset), for
// the embedding API's ResourceLimits.get(name).
func (c Config) Get(name string) any {
	switch name {
	case "max_allocations":
		return derefI(c.MaxAllocations)
	case "max_duration_secs":
		return derefF(c.MaxDurationSecs)
	case "max_memory":
		return derefI(c.MaxMemory)
	case "gc_interval":
		return derefI(c.GCInterval)
	case "max_recursion_depth":
		return derefI(c.MaxRecursionDepth)
	default:
		return nil
	}
}

func derefI(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func derefF(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Repr renders only the fields the host explicitly set, as a mapping
// literal (spec.md §6: "repr emits only fields the user explicitly set").
func (c Config) Repr() string {
	order := []string{"max_allocations", "max_duration_secs", "max_memory", "gc_interval", "max_recursion_depth"}
	out := "ResourceLimits("
	first := true
	for _, name := range order {
		if !c.set[name] {
			continue
		}
		if !first {
			out += ", "
		}
		first = false
		out += name + "=" + reprAny(c.Get(name))
	}
	return out + ")"
}

func reprAny(v any) string {
	switch t := v.(type) {
	case int64:
		return humanize.Comma(t)
	case float64:
		return humanize.FtoaWithDigits(t, 6)
	default:
		return "None"
	}
}

// Fault is the typed failure returned by Tracker operations. Every Fault
// is converted by the interpreter into the named language-level
// exception class (spec.md §4.C).
type Fault struct {
	Class   string // "MemoryError" or "RecursionError"
	Message string
}

func (f *Fault) Error() string { return f.Class + ": " + f.Message }

func memoryFault(format string, args ...any) *Fault {
	return &Fault{Class: "MemoryError", Message: sprintf(format, args...)}
}

func recursionFault(format string, args ...any) *Fault {
	return &Fault{Class: "RecursionError", Message: sprintf(format, args...)}
}

// Stat is one line of Tracker.Report(), used by cmd/monty's diagnostic
// table (SPEC_FULL.md §4.C+).
type Stat struct {
	Name  string
	Value string
}

// Tracker is the per-engine resource accountant. All methods are safe to
// call only from the single interpreter goroutine driving a Run call;
// Monty's concurrency model (spec.md §5) never calls a Tracker from two
// goroutines at once.
type Tracker struct {
	cfg Config

	mu sync.Mutex

	allocations   int64
	liveBytes     int64
	peakBytes     int64
	instrSinceGC  int64
	startTime     time.Time
	started       bool
	frameDepths   map[any]int64 // per-task recursion depth, keyed by task id
	activeTaskKey any
}

// New returns a Tracker enforcing cfg. Call Start once, at the beginning
// of Engine.Run, to anchor the wall-clock budget.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, frameDepths: map[any]int64{}}
}

// Start anchors the wall-clock budget. Idempotent after the first call
// within a Run invocation.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		t.startTime = time.Now()
		t.started = true
	}
}

// SetActiveTask selects which task's recursion-depth counter
// EnterFrame/LeaveFrame operate on. The scheduler calls this on every
// context switch (spec.md §4.E, §9: "per task, not global").
func (t *Tracker) SetActiveTask(taskKey any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeTaskKey = taskKey
	if _, ok := t.frameDepths[taskKey]; !ok {
		t.frameDepths[taskKey] = 0
	}
}

// DropTask discards the recursion-depth counter for a finished task.
func (t *Tracker) DropTask(taskKey any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.frameDepths, taskKey)
}

// ChargeAlloc charges bytes against max_allocations and max_memory,
// failing before the allocation becomes observable (spec.md §4.A
// invariant 5).
func (t *Tracker) ChargeAlloc(bytes int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg.MaxAllocations != nil && t.allocations+1 > *t.cfg.MaxAllocations {
		return memoryFault("allocation count would exceed limit of %s", humanize.Comma(*t.cfg.MaxAllocations))
	}
	newLive := t.liveBytes + int64(bytes)
	if t.cfg.MaxMemory != nil && newLive > *t.cfg.MaxMemory {
		return memoryFault("allocation of %s would exceed %s memory limit", humanize.Bytes(uint64(bytes)), humanize.Bytes(uint64(*t.cfg.MaxMemory)))
	}
	t.allocations++
	t.liveBytes = newLive
	if t.liveBytes > t.peakBytes {
		t.peakBytes = t.liveBytes
	}
	return nil
}

// ChargeBulk predicts the byte cost of a not-yet-performed bulk
// allocation (bigint pow/shl/mul, sequence*int) and fails fast before it
// is performed (spec.md §4.C "Cost prediction for int operators").
func (t *Tracker) ChargeBulk(bytes int) error {
	return t.ChargeAlloc(bytes)
}

// ChargeFree credits bytes back on release.
func (t *Tracker) ChargeFree(bytes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.liveBytes -= int64(bytes)
	if t.liveBytes < 0 {
		t.liveBytes = 0
	}
}

// Tick is called at each instruction boundary. instrCount is the number
// of bytecode instructions executed since the previous Tick call (the
// interpreter may batch several before calling Tick). It checks the
// wall-clock budget and runs an opportunistic sweep every gc_interval
// instructions (spec.md §4.C).
func (t *Tracker) Tick(instrCount int64, sweep func()) error {
	t.mu.Lock()
	if t.cfg.MaxDurationSecs != nil && t.started {
		elapsed := time.Since(t.startTime).Seconds()
		if elapsed > *t.cfg.MaxDurationSecs {
			t.mu.Unlock()
			return memoryFault("execution exceeded %s wall-clock limit", humanize.FtoaWithDigits(*t.cfg.MaxDurationSecs, 3))
		}
	}
	due := false
	if t.cfg.GCInterval != nil {
		t.instrSinceGC += instrCount
		if t.instrSinceGC >= *t.cfg.GCInterval {
			t.instrSinceGC = 0
			due = true
		}
	}
	t.mu.Unlock()
	if due && sweep != nil {
		sweep()
	}
	return nil
}

// EnterFrame increments the active task's recursion depth and fails when
// it exceeds max_recursion_depth (spec.md §4.C, §4.E).
func (t *Tracker) EnterFrame() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.frameDepths[t.activeTaskKey] + 1
	if t.cfg.MaxRecursionDepth != nil && d > *t.cfg.MaxRecursionDepth {
		return recursionFault("maximum recursion depth exceeded")
	}
	t.frameDepths[t.activeTaskKey] = d
	return nil
}

// LeaveFrame decrements the active task's recursion depth.
func (t *Tracker) LeaveFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d := t.frameDepths[t.activeTaskKey]; d > 0 {
		t.frameDepths[t.activeTaskKey] = d - 1
	}
}

// Depth returns the active task's current recursion depth, used by
// value's bounded structural-recursion guards for eq/hash/repr (spec.md
// §4.A "Bounded recursion for eq and hash").
func (t *Tracker) Depth() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frameDepths[t.activeTaskKey]
}

// MaxDepth returns the configured max_recursion_depth, or a large
// default when unset, for structural-recursion guards that need a
// concrete bound even without a host-supplied limit.
func (t *Tracker) MaxDepth() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg.MaxRecursionDepth != nil {
		return *t.cfg.MaxRecursionDepth
	}
	return 1 << 20
}

// Report summarizes tracker state for diagnostics (cmd/monty).
func (t *Tracker) Report() []Stat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return []Stat{
		{"allocations", humanize.Comma(t.allocations)},
		{"live_bytes", humanize.Bytes(uint64(t.liveBytes))},
		{"peak_bytes", humanize.Bytes(uint64(t.peakBytes))},
		{"elapsed", time.Since(t.startTime).String()},
	}
}

func sprintf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
