package quotering

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullhash/draizer/internal/domain"
)

func mkQuote(seq uint64) domain.Quote {
	return domain.NewQuote("BTCUSD", "spot", 100+float64(seq), 1, seq, seq)
}

func TestPushPopRoundTrip(t *testing.T) {
	r := New(8)
	require.Equal(t, 8, r.Capacity())

	const k = 7 // capacity - 1
	for i := uint64(0); i < k; i++ {
		require.True(t, r.Push(mkQuote(i)))
	}

	// One more push must fail: ring is full.
	assert.False(t, r.Push(mkQuote(999)))

	var out domain.Quote
	for i := uint64(0); i < k; i++ {
		require.True(t, r.Pop(&out))
		assert.Equal(t, i, out.Sequence)
	}
	assert.False(t, r.Pop(&out))
}

func TestPopOnEmptyFails(t *testing.T) {
	r := New(4)
	var out domain.Quote
	assert.False(t, r.Pop(&out))
}

func TestPushRejectsWhenNextEqualsTail(t *testing.T) {
	r := New(4)
	for i := 0; i < 3; i++ {
		require.True(t, r.Push(mkQuote(uint64(i))))
	}
	assert.False(t, r.Push(mkQuote(99)))
}

func TestCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	r := New(5)
	assert.Equal(t, 8, r.Capacity())
}

func TestConcurrentProducerConsumerPreservesOrder(t *testing.T) {
	r := New(256)
	const n = 100_000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := uint64(0); i < n; i++ {
			for !r.Push(mkQuote(i)) {
				// wait-free means we just spin in the test, not in the ring itself
			}
		}
	}()

	results := make([]uint64, 0, n)
	go func() {
		defer wg.Done()
		var out domain.Quote
		for uint64(len(results)) < n {
			if r.Pop(&out) {
				results = append(results, out.Sequence)
			}
		}
	}()

	wg.Wait()

	require.Len(t, results, n)
	for i, v := range results {
		assert.Equal(t, uint64(i), v, "value out of order or duplicated at index %d", i)
	}
}
