// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package workerpool provides a persistent pool of goroutines for
// data-parallel loops over independent elements.
//
// Create one pool per process (or per pipeline) and reuse it across calls;
// spawning goroutines per buffer costs more than the work for small inputs.
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	pool.ParallelFor(len(src), func(start, end int) {
//	    kernel(src[start:end], dst[start:end])
//	})
package workerpool

import (
	"sync"
	"sync/atomic"
)

// Executor runs data-parallel loops. Implementations must call fn exactly
// once for every index in [0, n) and return only after all calls finish.
type Executor interface {
	// ParallelFor splits [0, n) into contiguous ranges and calls fn on each.
	ParallelFor(n int, fn func(start, end int))

	// ParallelForAtomic calls fn for every index in [0, n), handing indices
	// out one at a time. Use it when per-index cost is uneven.
	ParallelForAtomic(n int, fn func(i int))

	// NumWorkers returns the degree of parallelism.
	NumWorkers() int
}

// Pool is an Executor backed by a fixed set of goroutines.
type Pool struct {
	workers int
	jobs    chan func()
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// New starts a pool of n workers. n < 1 is treated as 1.
func New(n int) *Pool {
	n = max(n, 1)
	p := &Pool{
		workers: n,
		jobs:    make(chan func()),
	}
	for range n {
		p.wg.Go(func() {
			for job := range p.jobs {
				job()
			}
		})
	}
	return p
}

// NumWorkers returns the number of worker goroutines.
func (p *Pool) NumWorkers() int {
	return p.workers
}

// Close stops the workers after in-flight jobs finish. Loops started after
// Close run on the calling goroutine. Close must not race with a running loop.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}

// submit hands job to an idle worker, or runs it inline when none is free.
// Running inline keeps nested loops from deadlocking a saturated pool.
func (p *Pool) submit(job func()) {
	if p.closed.Load() {
		job()
		return
	}
	select {
	case p.jobs <- job:
	default:
		job()
	}
}

// ParallelFor splits [0, n) into at most NumWorkers contiguous chunks.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	chunks := min(p.workers, n)
	if chunks == 1 {
		fn(0, n)
		return
	}
	size := (n + chunks - 1) / chunks

	var wg sync.WaitGroup
	for start := size; start < n; start += size {
		end := min(start+size, n)
		wg.Add(1)
		p.submit(func() {
			defer wg.Done()
			fn(start, end)
		})
	}
	// The caller takes the first chunk.
	fn(0, min(size, n))
	wg.Wait()
}

// ParallelForAtomic distributes indices through a shared atomic counter.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	var next atomic.Int64
	work := func() {
		for {
			i := int(next.Add(1) - 1)
			if i >= n {
				return
			}
			fn(i)
		}
	}

	helpers := min(p.workers, n) - 1
	var wg sync.WaitGroup
	for range helpers {
		wg.Add(1)
		p.submit(func() {
			defer wg.Done()
			work()
		})
	}
	work()
	wg.Wait()
}

// Sequential is an Executor that runs every loop on the calling goroutine.
type Sequential struct{}

func (Sequential) ParallelFor(n int, fn func(start, end int)) {
	if n > 0 {
		fn(0, n)
	}
}

func (Sequential) ParallelForAtomic(n int, fn func(i int)) {
	for i := range n {
		fn(i)
	}
}

func (Sequential) NumWorkers() int { return 1 }
