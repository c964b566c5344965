package ordernum

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	value int64
}

func (c *fakeCounter) Next(context.Context) (int64, error) {
	return atomic.AddInt64(&c.value, 1), nil
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

func TestNextFormat(t *testing.T) {
	gen := NewGenerator(Params{
		Counter: &fakeCounter{value: 999},
		Clock:   fixedClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
	})

	number, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-1000", number)
}

func TestNextPadsShortSequences(t *testing.T) {
	gen := NewGenerator(Params{
		Counter: &fakeCounter{value: 6},
		Clock:   fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	})

	number, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0007", number)
}

func TestNextGrowsBeyondFourDigits(t *testing.T) {
	gen := NewGenerator(Params{
		Counter: &fakeCounter{value: 123455},
		Clock:   fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	})

	number, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-123456", number)
}

func TestNextNeverRepeatsUnderConcurrency(t *testing.T) {
	gen := NewGenerator(Params{
		Counter: &fakeCounter{},
		Clock:   fixedClock{t: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
	})

	const workers = 50
	const perWorker = 20

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	pattern := regexp.MustCompile(`^ORD-2026-\d{4,}$`)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				number, err := gen.Next(context.Background())
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[number] = struct{}{}
				mu.Unlock()
				if !pattern.MatchString(number) {
					t.Errorf("malformed order number %q", number)
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
