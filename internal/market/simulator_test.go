package market

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"commodity-sim-go/internal/config"
	"commodity-sim-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMarketConfig() *config.Market {
	return &config.Market{
		TickInterval: 2,
		HistorySize:  10,
		PriceFloor:   0.01,
		Instruments: []config.InstrumentConfig{
			{Symbol: "Au", StartPrice: 1800, Volatility: 5},
			{Symbol: "Ag", StartPrice: 25, Volatility: 0.25},
		},
	}
}

func newTestSimulator(t *testing.T, cfg *config.Market) *Simulator {
	t.Helper()
	return NewWithSource(cfg, zap.NewNop(), rand.NewSource(1))
}

func TestCurrentPrice_StartsAtConfiguredPrice(t *testing.T) {
	sim := newTestSimulator(t, testMarketConfig())

	price, err := sim.CurrentPrice(models.Gold)
	require.NoError(t, err)
	assert.Equal(t, 1800.0, price)

	price, err = sim.CurrentPrice(models.Silver)
	require.NoError(t, err)
	assert.Equal(t, 25.0, price)
}

func TestCurrentPrice_UnknownInstrument(t *testing.T) {
	sim := newTestSimulator(t, testMarketConfig())

	_, err := sim.CurrentPrice(models.Instrument("Pt"))
	assert.ErrorIs(t, err, ErrUnknownInstrument)

	_, err = sim.HistorySnapshot(models.Instrument("Pt"))
	assert.ErrorIs(t, err, ErrUnknownInstrument)
}

func TestTick_PerturbationIsBounded(t *testing.T) {
	sim := newTestSimulator(t, testMarketConfig())

	prev, err := sim.CurrentPrice(models.Gold)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		sim.Tick()
		cur, err := sim.CurrentPrice(models.Gold)
		require.NoError(t, err)
		assert.LessOrEqual(t, math.Abs(cur-prev), 5.0,
			"one tick moved the price by more than the configured volatility")
		prev = cur
	}
}

func TestTick_ClampsAtPriceFloor(t *testing.T) {
	cfg := &config.Market{
		TickInterval: 2,
		HistorySize:  10,
		PriceFloor:   0.01,
		Instruments: []config.InstrumentConfig{
			// Volatility dwarfs the start price, so draws routinely
			// try to push the price negative.
			{Symbol: "Au", StartPrice: 0.05, Volatility: 100},
		},
	}
	sim := newTestSimulator(t, cfg)

	for i := 0; i < 200; i++ {
		sim.Tick()
		price, err := sim.CurrentPrice(models.Gold)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, price, 0.01)
	}
}

func TestTick_HistoryWindowIsBounded(t *testing.T) {
	sim := newTestSimulator(t, testMarketConfig())

	for i := 0; i < 15; i++ {
		sim.Tick()
	}

	for _, ins := range sim.Instruments() {
		history, err := sim.HistorySnapshot(ins)
		require.NoError(t, err)
		require.Len(t, history, 10)

		for i := 1; i < len(history); i++ {
			assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp),
				"history must stay in chronological order")
		}

		current, err := sim.CurrentPrice(ins)
		require.NoError(t, err)
		assert.Equal(t, history[len(history)-1].Price, current,
			"current price must equal the most recent history point")
	}
}

func TestHistorySnapshot_IsDetachedCopy(t *testing.T) {
	sim := newTestSimulator(t, testMarketConfig())
	sim.Tick()

	snap, err := sim.HistorySnapshot(models.Gold)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	first := snap[0]

	for i := 0; i < 20; i++ {
		sim.Tick()
	}

	assert.Equal(t, first, snap[0], "snapshot must not change after later ticks")
}

func TestTick_ConcurrentReads(t *testing.T) {
	sim := newTestSimulator(t, testMarketConfig())

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sim.Tick()
		}
		close(done)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				price, err := sim.CurrentPrice(models.Gold)
				assert.NoError(t, err)
				assert.Greater(t, price, 0.0)

				history, err := sim.HistorySnapshot(models.Silver)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(history), 10)
			}
		}()
	}

	wg.Wait()
}
