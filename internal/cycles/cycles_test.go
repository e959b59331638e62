package cycles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowCyclesMonotonic(t *testing.T) {
	a := NowCycles()
	time.Sleep(time.Millisecond)
	b := NowCycles()
	assert.Greater(t, b, a)
}

func TestCalibrateProducesUsableMultiplier(t *testing.T) {
	if testing.Short() {
		t.Skip("calibration sleeps 100ms, skip in -short")
	}
	c := New()
	require.False(t, c.Calibrated())
	require.NoError(t, c.Calibrate())
	assert.True(t, c.Calibrated())

	start := NowCycles()
	time.Sleep(10 * time.Millisecond)
	end := NowCycles()

	ns := c.CyclesToNs(end - start)
	// Allow generous slack: scheduler jitter on a loaded CI box is real.
	assert.InDelta(t, 10*time.Millisecond, time.Duration(ns), float64(8*time.Millisecond))
}

func TestCyclesToNsBeforeCalibrationIsIdentity(t *testing.T) {
	c := New()
	assert.Equal(t, uint64(12345), c.CyclesToNs(12345))
}

func TestElapsedUsZeroForFutureTimestamp(t *testing.T) {
	c := New()
	require.NoError(t, c.Calibrate())
	assert.Equal(t, uint64(0), c.ElapsedUs(NowCycles()+1_000_000_000))
}
