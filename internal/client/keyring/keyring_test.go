package keyring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGetClear(t *testing.T) {
	k := New()

	_, ok := k.Get()
	assert.False(t, ok)

	key := []byte{1, 2, 3, 4}
	k.Set(key)

	got, ok := k.Get()
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	// the keyring must own its copy
	key[0] = 99
	got, _ = k.Get()
	assert.Equal(t, byte(1), got[0])

	k.Clear()
	_, ok = k.Get()
	assert.False(t, ok)
}

func TestConcurrentReaders(t *testing.T) {
	k := New()
	k.Set([]byte{42})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := k.Get()
			assert.True(t, ok)
			assert.Equal(t, byte(42), got[0])
		}()
	}
	wg.Wait()
}
