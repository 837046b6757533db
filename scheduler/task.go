package scheduler

import "time"

// waitingTask is one task parked in the reactor's deadline heap,
// waiting on asyncio.sleep or a similar timed wait (spec.md §4.E
// "waiting-set... ordered by deadline").
type waitingTask struct {
	deadline time.Time
	wake     chan struct{}
}

// taskHandle is the opaque payload stashed in a value.Task's handle
// field (value/async.go). Its pointer identity is the comparable key
// the tracker uses for that task's recursion-depth counter (spec.md
// §4.E) — stable for the task's lifetime, unlike the value.Value
// wrapper which scripts may copy freely.
type taskHandle struct{}
