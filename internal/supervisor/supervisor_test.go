package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullhash/draizer/config"
	"github.com/nullhash/draizer/internal/domain"
	"github.com/nullhash/draizer/internal/shm"
)

func TestNewWiresRiskStateFromConfig(t *testing.T) {
	cfg := &config.Config{
		CapitalUSD: 2000,
		PaperMode:  true,
		Strategies: config.StrategiesConfig{
			CrossExchange: config.StrategyConfig{Enabled: true, Priority: 0},
		},
	}

	s, err := New(Options{
		Config:  cfg,
		Symbols: []string{"BTCUSD"},
	})
	require.NoError(t, err)
	defer shm.Unlink(domain.ShmName)
	defer s.region.Close()

	assert.Equal(t, 2000.0, s.risk.BalanceUSD)
	assert.True(t, s.risk.Strategies[domain.StrategyCrossExchange].Enabled)
	assert.False(t, s.risk.Strategies[domain.StrategyStatistical].Enabled)
}

func TestStopFlipsRunningFlag(t *testing.T) {
	s := &Supervisor{}
	s.running.Store(true)
	s.Stop()
	assert.False(t, s.running.Load())
}
