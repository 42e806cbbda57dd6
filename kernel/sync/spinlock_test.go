package sync

import (
	"sync"
	"testing"
	"time"
)

func TestSpinlock(t *testing.T) {
	var (
		sl         Spinlock
		wg         sync.WaitGroup
		numWorkers = 10
	)

	sl.Acquire()

	if sl.TryToAcquire() != false {
		t.Error("expected TryToAcquire to return false when lock is held")
	}

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			sl.Acquire()
			sl.Release()
			wg.Done()
		}()
	}

	<-time.After(100 * time.Millisecond)
	sl.Release()
	wg.Wait()
}

func TestSpinlockSerializesMutations(t *testing.T) {
	var (
		sl      Spinlock
		wg      sync.WaitGroup
		counter int
	)

	wg.Add(4)
	for i := 0; i < 4; i++ {
		go func() {
			for j := 0; j < 1000; j++ {
				sl.Acquire()
				counter++
				sl.Release()
			}
			wg.Done()
		}()
	}
	wg.Wait()

	if exp := 4000; counter != exp {
		t.Fatalf("expected counter to be %d; got %d", exp, counter)
	}
}
