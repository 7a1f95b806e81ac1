package worker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDLocksSerializeSameID(t *testing.T) {
	locks := newIDLocks()

	release := locks.Acquire("a")

	acquired := make(chan struct{})
	go func() {
		r := locks.Acquire("a")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while the lock was held")
	default:
	}

	release()
	<-acquired
}

func TestIDLocksIndependentIDs(t *testing.T) {
	locks := newIDLocks()

	releaseA := locks.Acquire("a")
	releaseB := locks.Acquire("b")
	releaseB()
	releaseA()
}

func TestIDLocksDropReleasedEntries(t *testing.T) {
	locks := newIDLocks()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Acquire("a")
			release()
		}()
	}
	wg.Wait()

	releaseB := locks.Acquire("b")
	releaseB()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	require.Empty(t, locks.locks)
}
