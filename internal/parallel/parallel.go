// Package parallel runs independent work items on a bounded set of
// goroutines.
//
// The numeric core is single-threaded; parallelism is applied only across
// items that share no mutable state, such as adaptation episodes for
// different regularisation levels.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine.
}

// DefaultConfig uses one worker per CPU. Episodes are expensive, so every
// item may get its own goroutine.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// Sequential runs every item on the calling goroutine.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if cfg.MinChunkSize < 1 {
		cfg.MinChunkSize = 1
	}
	if !cfg.Enabled || cfg.NumWorkers < 2 || n <= cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// Map applies f to every element of in and collects results and errors by
// index.
func Map[T, R any](in []T, f func(T) (R, error), cfg Config) ([]R, []error) {
	out := make([]R, len(in))
	errs := make([]error, len(in))
	For(len(in), func(i int) {
		out[i], errs[i] = f(in[i])
	}, cfg)
	return out, errs
}
