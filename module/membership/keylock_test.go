package membership

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := NewKeyLock()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			unlock := kl.LockAll("user/a", "list/b")
			defer unlock()
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Len(t, order, 16)
}

func TestKeyLockDuplicateKeys(t *testing.T) {
	kl := NewKeyLock()

	// duplicate keys must dedupe, not self-deadlock
	done := make(chan struct{})
	go func() {
		unlock := kl.LockAll("user/a", "user/a", "user/a")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("LockAll deadlocked on duplicate keys")
	}
}

func TestKeyLockOppositeOrderNoDeadlock(t *testing.T) {
	kl := NewKeyLock()

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := kl.LockAll("user/a", "user/b")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := kl.LockAll("user/b", "user/a")
			unlock()
		}()
	}
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposite-order acquisition deadlocked")
	}
}

func TestKeyLockIndependentKeysDontBlock(t *testing.T) {
	kl := NewKeyLock()

	unlockA := kl.LockAll("user/a")
	defer unlockA()

	got := make(chan struct{})
	go func() {
		unlockB := kl.LockAll("user/b")
		unlockB()
		close(got)
	}()
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("independent key blocked behind an unrelated lock")
	}
	require.NotNil(t, unlockA)
}
