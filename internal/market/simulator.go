package market

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"commodity-sim-go/internal/config"
	"commodity-sim-go/internal/models"
	"go.uber.org/zap"
)

// ErrUnknownInstrument is returned when a read names an instrument the
// simulator was not configured with. This is a wiring mistake, not a
// recoverable runtime condition.
var ErrUnknownInstrument = errors.New("unknown instrument")

// defaultPriceFloor keeps a price strictly positive when a perturbation
// would push it to zero or below.
const defaultPriceFloor = 0.01

type series struct {
	current    float64
	volatility float64
	history    []models.PricePoint
}

// Simulator produces an evolving, boundedly-random price for each
// configured instrument. It is the only writer of its price state;
// reads are safe to call concurrently with Tick.
type Simulator struct {
	mu       sync.RWMutex
	series   map[models.Instrument]*series
	order    []models.Instrument // configured order, for deterministic draws
	capacity int
	interval time.Duration
	floor    float64
	rng      *rand.Rand
	logger   *zap.Logger
}

// New creates a simulator seeded from the wall clock.
func New(cfg *config.Market, logger *zap.Logger) *Simulator {
	return NewWithSource(cfg, logger, rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource creates a simulator with an explicit random source, so
// tests can drive it deterministically.
func NewWithSource(cfg *config.Market, logger *zap.Logger, src rand.Source) *Simulator {
	floor := cfg.PriceFloor
	if floor <= 0 {
		floor = defaultPriceFloor
	}

	s := &Simulator{
		series:   make(map[models.Instrument]*series, len(cfg.Instruments)),
		capacity: cfg.HistorySize,
		interval: time.Duration(cfg.TickInterval) * time.Second,
		floor:    floor,
		rng:      rand.New(src),
		logger:   logger.Named("market"),
	}
	for _, ic := range cfg.Instruments {
		ins := models.Instrument(ic.Symbol)
		s.series[ins] = &series{current: ic.StartPrice, volatility: ic.Volatility}
		s.order = append(s.order, ins)
	}
	return s
}

// Run ticks the simulator on its configured interval until the context
// is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting price simulation loop",
		zap.Duration("interval", s.interval),
		zap.Int("instruments", len(s.order)))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping price simulation loop")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances every instrument's price by one bounded symmetric
// perturbation and appends the sample to its history window, evicting
// the oldest point beyond capacity. Tick never fails.
func (s *Simulator) Tick() {
	now := time.Now()

	// Draw outside the lock; only the state swap is guarded.
	draws := make([]float64, len(s.order))
	for i, ins := range s.order {
		draws[i] = (s.rng.Float64() - 0.5) * 2 * s.series[ins].volatility
	}

	s.mu.Lock()
	for i, ins := range s.order {
		sr := s.series[ins]
		next := sr.current + draws[i]
		if next < s.floor {
			next = s.floor
		}
		sr.current = next
		sr.history = append(sr.history, models.PricePoint{Timestamp: now, Price: next})
		if len(sr.history) > s.capacity {
			sr.history = append(sr.history[:0], sr.history[1:]...)
		}
		s.logger.Debug("Tick applied",
			zap.String("instrument", string(ins)),
			zap.Float64("price", next))
	}
	s.mu.Unlock()
}

// CurrentPrice returns the latest simulated price for the instrument.
func (s *Simulator) CurrentPrice(instrument models.Instrument) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.series[instrument]
	if !ok {
		return 0, ErrUnknownInstrument
	}
	return sr.current, nil
}

// HistorySnapshot returns a copy of the instrument's current history
// window, oldest first. The copy is detached: a concurrent Tick cannot
// mutate it.
func (s *Simulator) HistorySnapshot(instrument models.Instrument) ([]models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.series[instrument]
	if !ok {
		return nil, ErrUnknownInstrument
	}
	out := make([]models.PricePoint, len(sr.history))
	copy(out, sr.history)
	return out, nil
}

// Instruments returns the configured instruments in configuration order.
func (s *Simulator) Instruments() []models.Instrument {
	out := make([]models.Instrument, len(s.order))
	copy(out, s.order)
	return out
}
