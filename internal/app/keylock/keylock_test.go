package keylock

import (
	"sync"
	"testing"
)

func TestSameKeySerializes(t *testing.T) {
	set := NewSet()

	const workers = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock := set.Lock("order:1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("counter = %d, want %d", counter, workers)
	}
}

func TestDistinctKeysIndependent(t *testing.T) {
	set := NewSet()

	unlockA := set.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := set.Lock("b")
		unlockB()
		close(done)
	}()
	<-done // must not deadlock while "a" is still held
	unlockA()
}

func TestLockReusableAfterUnlock(t *testing.T) {
	set := NewSet()
	unlock := set.Lock("k")
	unlock()
	unlock = set.Lock("k")
	unlock()
}
