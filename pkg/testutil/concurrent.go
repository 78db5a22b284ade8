package testutil

import (
	"errors"
	"sync"

	"warden/pkg/platform/sentinel"
)

// ConcurrentResult tallies the outcomes of RunConcurrent by store sentinel.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	NotFounds int32
	Errors    int32
}

// Total is the number of calls that returned.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.NotFounds + r.Errors
}

func (r *ConcurrentResult) record(err error) {
	switch {
	case err == nil:
		r.Successes++
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrAlreadyUsed):
		r.Conflicts++
	case errors.Is(err, sentinel.ErrNotFound):
		r.NotFounds++
	default:
		r.Errors++
	}
}

// RunConcurrent calls fn from n goroutines released together, so racing
// claims on the same key actually overlap.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		start = make(chan struct{})
		res   = &ConcurrentResult{}
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := fn(i)
			mu.Lock()
			res.record(err)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()
	return res
}
