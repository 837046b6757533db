package scheduler

import "github.com/zond/monty/value"

// Gather implements asyncio.gather's collection logic (spec.md §4.E):
// each item is a coroutine (spawned as its own Task), an existing Task,
// or a Future. Every item runs to completion; results are collected in
// argument order. If one or more items raised, the first exception in
// argument order is raised once everything has settled (resolved Open
// Question, see DESIGN.md). Gather itself never touches the execution
// token — it only waits on settleCond for CreateTask's own goroutines to
// report progress — so it is safe to run from the background goroutine
// gatherBuiltin spawns, not just from a token-holding task.
func (sch *Scheduler) Gather(items []value.Value) (value.Value, error) {
	pollers := make([]func() (bool, value.Value, error), len(items))
	for i, it := range items {
		switch it.Kind() {
		case value.KindCoroutine:
			t, err := sch.CreateTask(it)
			if err != nil {
				return value.Value{}, err
			}
			pollers[i] = t.TaskPoll
		case value.KindTask:
			v := it
			pollers[i] = v.TaskPoll
		case value.KindFuture:
			v := it
			pollers[i] = v.FuturePoll
		default:
			return value.Value{}, sch.in.Raisef("TypeError", "An asyncio.Future, a coroutine or an awaitable is required")
		}
	}
	if len(pollers) == 0 {
		return sch.in.Heap.List(nil)
	}

	sch.settleCond.L.Lock()
	for {
		allReady := true
		for _, poll := range pollers {
			if ready, _, _ := poll(); !ready {
				allReady = false
				break
			}
		}
		if allReady {
			break
		}
		sch.settleCond.Wait()
	}
	sch.settleCond.L.Unlock()

	results := make([]value.Value, len(pollers))
	var firstErr error
	for i, poll := range pollers {
		_, result, err := poll()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results[i] = result
	}
	if firstErr != nil {
		return value.Value{}, firstErr
	}
	return sch.in.Heap.List(results)
}

// gatherBuiltin implements the asyncio.gather callable: it returns a
// Future immediately, without blocking the calling task, so that script
// code can write `await asyncio.gather(...)` the normal way — the
// collection work runs on its own goroutine and resolves the Future
// once every item has settled.
func (sch *Scheduler) gatherBuiltin(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	futVal, err := sch.in.Heap.Future(nil)
	if err != nil {
		return value.Value{}, err
	}
	items := append([]value.Value{}, args...)
	sch.wg.Add(1)
	go func() {
		defer sch.wg.Done()
		result, gerr := sch.Gather(items)
		sch.in.Heap.ResolveFuture(futVal, result, gerr)
		sch.notifySettle()
	}()
	return futVal, nil
}
