package reactor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StampsStartAfterCurrent(t *testing.T) {
	c := NewClock()
	assert.Zero(t, c.Current())
	assert.Equal(t, []int64{1, 2, 3}, []int64{c.Next(), c.Next(), c.Next()})
	assert.Equal(t, int64(3), c.Current(), "Current does not advance")
	assert.Equal(t, int64(3), c.Current())
}

// A clock resumed from the last journaled seq continues numbering after it.
func TestClock_ResumeFromJournal(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(41), c.Current())
	assert.Equal(t, int64(42), c.Next())
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const workers, per = 8, 250

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, workers*per)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*per)
	assert.Equal(t, int64(workers*per), c.Current())
}
