package dedup_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LoganBarnett/dns-smart-block/internal/dedup"
)

func TestSeenOrAdd(t *testing.T) {
	s := dedup.New()
	assert.False(t, s.SeenOrAdd("example.com"))
	assert.True(t, s.SeenOrAdd("example.com"))
	assert.False(t, s.SeenOrAdd("other.com"))
}

func TestSeenOrAddConcurrentSafe(t *testing.T) {
	s := dedup.New()
	var wg sync.WaitGroup
	var firstCount int
	var mu sync.Mutex

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !s.SeenOrAdd("shared.example.com") {
				mu.Lock()
				firstCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, firstCount)
}
