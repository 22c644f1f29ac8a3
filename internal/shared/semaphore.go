package shared

import (
	"sync"
	"time"
)

// Semaphore is a counting semaphore with a timed acquire, used by the GUI
// invoker to bound how long the worker thread waits for the GUI thread to
// finish a posted call.
type Semaphore struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

// NewSemaphore creates a semaphore with n initial permits.
func NewSemaphore(n int) *Semaphore {
	s := &Semaphore{count: n}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Acquire blocks until n permits are available, then takes them.
func (s *Semaphore) Acquire(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.count < n {
		s.cond.Wait()
	}
	s.count -= n
}

// TryAcquire blocks up to d waiting for n permits. It reports whether the
// permits were acquired; on timeout no permits are taken.
func (s *Semaphore) TryAcquire(n int, d time.Duration) bool {
	deadline := time.Now().Add(d)
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.count < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.AfterFunc(remaining, func() {
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		s.cond.Wait()
		timer.Stop()
	}
	s.count -= n
	return true
}

// Release returns n permits to the pool.
func (s *Semaphore) Release(n int) {
	s.mu.Lock()
	s.count += n
	s.mu.Unlock()
	s.cond.Broadcast()
}
