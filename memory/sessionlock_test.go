package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionLocks_SameKeySerializes(t *testing.T) {
	t.Parallel()
	locks := newSessionLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.acquire("s1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestSessionLocks_DifferentKeysIndependent(t *testing.T) {
	t.Parallel()
	locks := newSessionLocks()

	// Holding s1 must not block s2.
	unlock1 := locks.acquire("s1")
	defer unlock1()

	done := make(chan struct{})
	go func() {
		unlock2 := locks.acquire("s2")
		unlock2()
		close(done)
	}()
	<-done
}

func TestSessionLocks_InstancesDoNotShareState(t *testing.T) {
	t.Parallel()
	a := newSessionLocks()
	b := newSessionLocks()

	// Same key on two registries: independent mutexes.
	unlockA := a.acquire("s1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := b.acquire("s1")
		unlockB()
		close(done)
	}()
	<-done
}
