package portfolio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountLocker_SerializesSameAccount(t *testing.T) {
	l := NewAccountLocker()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("ACC-1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, l.held(), "entries are released after use")
}

func TestAccountLocker_IndependentAccounts(t *testing.T) {
	l := NewAccountLocker()

	unlockA := l.Lock("ACC-A")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("ACC-B")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different account blocked")
	}
	assert.Equal(t, 1, l.held())
}
