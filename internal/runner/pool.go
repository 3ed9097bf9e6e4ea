package runner

import (
	"runtime"
	"sync"
)

// runParallel runs fn once per item concurrently, bounded to runtime.NumCPU()
// workers, and returns the results in the same order as items. Grounded on
// the teacher's pkg/thread.FallbackPool -- a task channel drained by a fixed
// worker count rather than one goroutine per item -- generalized from audio
// task indices to arbitrary work closures.
func runParallel[T, R any](items []T, fn func(T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	workers := runtime.NumCPU()
	if workers > len(items) {
		workers = len(items)
	}

	type job struct {
		index int
		item  T
	}
	jobs := make(chan job, len(items))
	for i, item := range items {
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = fn(j.item)
			}
		}()
	}
	wg.Wait()
	return results
}

// runMaybeParallel dispatches through runParallel when parallel is true, or
// runs serially in submission order otherwise -- mirroring util.rs's
// map_parallel, which the original uses for every fan-out point in
// validator.rs (library paths, library tests, plugins, plugin tests).
func runMaybeParallel[T, R any](parallel bool, items []T, fn func(T) R) []R {
	if parallel {
		return runParallel(items, fn)
	}
	results := make([]R, len(items))
	for i, item := range items {
		results[i] = fn(item)
	}
	return results
}
