package funding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingSymbolReadsZero(t *testing.T) {
	r := New()
	fr := r.Get("BTCUSD")
	assert.Equal(t, 0.0, fr.RateBps)
	assert.Equal(t, uint64(0), fr.UpdatedCycles)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	r := New()
	r.Set("BTCUSD", 4.5, 1000)
	fr := r.Get("BTCUSD")
	assert.Equal(t, 4.5, fr.RateBps)
	assert.Equal(t, uint64(1000), fr.UpdatedCycles)
}

func TestSetOverwritesPreviousReading(t *testing.T) {
	r := New()
	r.Set("ETHUSD", 1.0, 10)
	r.Set("ETHUSD", -2.0, 20)
	fr := r.Get("ETHUSD")
	assert.Equal(t, -2.0, fr.RateBps)
	assert.Equal(t, uint64(20), fr.UpdatedCycles)
}
