package brca

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := km.Lock("agent-1")
			defer unlock()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			time.Sleep(time.Millisecond)
		}(i)
	}
	wg.Wait()
	assert.Len(t, order, 5)
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	km := newKeyedMutex()
	unlockA := km.Lock("agent-a")
	unlockB := km.Lock("agent-b")
	unlockA()
	unlockB()
}
