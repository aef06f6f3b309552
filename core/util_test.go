package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Bowling Night":        "bowling-night",
		"  Résumé Workshop!  ": "r-sum-workshop",
		"CS 61A -- Review":     "cs-61a-review",
		"already-a-slug":       "already-a-slug",
		"***":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Ann", CleanString("  Ann \n"))
	assert.Equal(t, "ann@berkeley.edu", CleanString(" Ann@Berkeley.edu ", true))
}

func TestKeyedMutex(t *testing.T) {
	var km KeyedMutex

	// same key: strictly serialized
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("2:14")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, km.locks, "released keys are forgotten")

	// distinct keys: independent
	unlockA := km.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another key blocked")
	}
	unlockA()
}
