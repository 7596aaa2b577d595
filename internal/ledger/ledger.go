package ledger

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"commodity-sim-go/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PriceSource is the ledger's only view of the market: the current
// price of one instrument. The market simulator satisfies it.
type PriceSource interface {
	CurrentPrice(instrument models.Instrument) (float64, error)
}

// SortOrder selects how TransactionHistory orders its projection.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Ledger owns one user's cash balance, holdings and transaction log.
// Buy and Sell are the only mutating entry points; both validate and
// apply as one unit under the ledger lock, so a rejected trade leaves
// the state exactly as it was. The same lock covers teardown.
type Ledger struct {
	mu       sync.Mutex
	balance  float64
	holdings map[models.Instrument]float64
	log      []models.Transaction
	closed   bool

	prices PriceSource
	logger *zap.Logger
}

// New creates a ledger with the given starting cash balance, empty
// holdings and an empty transaction log.
func New(startingBalance float64, prices PriceSource, logger *zap.Logger) *Ledger {
	return &Ledger{
		balance:  startingBalance,
		holdings: make(map[models.Instrument]float64),
		prices:   prices,
		logger:   logger.Named("ledger"),
	}
}

func validateQuantity(quantity float64) error {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, quantity)
	}
	return nil
}

// Buy purchases quantity units of the instrument at the simulator's
// current price. The price is read once, under the same lock as the
// balance check, so a concurrent tick between validation and apply
// cannot change the executed price.
func (l *Ledger) Buy(instrument models.Instrument, quantity float64) (*models.Transaction, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	price, err := l.prices.CurrentPrice(instrument)
	if err != nil {
		return nil, fmt.Errorf("price lookup for %s: %w", instrument, err)
	}

	cost := price * quantity
	if l.balance < cost {
		return nil, fmt.Errorf("%w: balance %.2f, cost %.2f", ErrInsufficientBalance, l.balance, cost)
	}

	l.balance -= cost
	l.holdings[instrument] += quantity
	tx := l.appendTransaction(models.TradeBuy, instrument, quantity, price)

	l.logger.Info("Trade executed",
		zap.String("kind", tx.Kind),
		zap.String("instrument", string(instrument)),
		zap.Float64("quantity", quantity),
		zap.Float64("unit_price", price),
		zap.Float64("balance", l.balance))
	return tx, nil
}

// Sell liquidates quantity units of the instrument at the simulator's
// current price, symmetric to Buy.
func (l *Ledger) Sell(instrument models.Instrument, quantity float64) (*models.Transaction, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	price, err := l.prices.CurrentPrice(instrument)
	if err != nil {
		return nil, fmt.Errorf("price lookup for %s: %w", instrument, err)
	}

	if l.holdings[instrument] < quantity {
		return nil, fmt.Errorf("%w: held %v, requested %v", ErrInsufficientHoldings, l.holdings[instrument], quantity)
	}

	l.balance += price * quantity
	l.holdings[instrument] -= quantity
	tx := l.appendTransaction(models.TradeSell, instrument, quantity, price)

	l.logger.Info("Trade executed",
		zap.String("kind", tx.Kind),
		zap.String("instrument", string(instrument)),
		zap.Float64("quantity", quantity),
		zap.Float64("unit_price", price),
		zap.Float64("balance", l.balance))
	return tx, nil
}

// appendTransaction must be called with the ledger lock held.
func (l *Ledger) appendTransaction(kind string, instrument models.Instrument, quantity, price float64) *models.Transaction {
	tx := models.Transaction{
		ID:         uuid.NewString(),
		Kind:       kind,
		Instrument: instrument,
		Quantity:   quantity,
		UnitPrice:  price,
		Timestamp:  time.Now(),
	}
	l.log = append(l.log, tx)
	return &tx
}

// TransactionHistory returns a freshly ordered projection of the log
// by timestamp. The underlying log keeps insertion order; ties on
// timestamp keep insertion order in either direction.
func (l *Ledger) TransactionHistory(order SortOrder) []models.Transaction {
	l.mu.Lock()
	out := make([]models.Transaction, len(l.log))
	copy(out, l.log)
	l.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if order == Descending {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// TotalValue reports cash plus the mark-to-market value of every
// holding, using the supplied price lookup. Pure read.
func (l *Ledger) TotalValue(priceLookup func(models.Instrument) (float64, error)) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.balance
	for instrument, quantity := range l.holdings {
		price, err := priceLookup(instrument)
		if err != nil {
			return 0, fmt.Errorf("price lookup for %s: %w", instrument, err)
		}
		total += quantity * price
	}
	return total, nil
}

// Balance returns the current cash balance.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Holding returns the held quantity of one instrument (zero if none).
func (l *Ledger) Holding(instrument models.Instrument) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holdings[instrument]
}

// Holdings returns a copy of all non-zero holdings.
func (l *Ledger) Holdings() map[models.Instrument]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[models.Instrument]float64, len(l.holdings))
	for instrument, quantity := range l.holdings {
		out[instrument] = quantity
	}
	return out
}

// Close tears the ledger down. It waits for any in-flight trade to
// finish and rejects every trade after it.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// Snapshot captures the ledger state for persistence.
func (l *Ledger) Snapshot() models.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := models.LedgerSnapshot{
		Balance:      l.balance,
		Holdings:     make(map[models.Instrument]float64, len(l.holdings)),
		Transactions: make([]models.Transaction, len(l.log)),
	}
	for instrument, quantity := range l.holdings {
		snap.Holdings[instrument] = quantity
	}
	copy(snap.Transactions, l.log)
	return snap
}

// Restore rebuilds a ledger from a persisted snapshot.
func Restore(snap models.LedgerSnapshot, prices PriceSource, logger *zap.Logger) *Ledger {
	l := New(snap.Balance, prices, logger)
	for instrument, quantity := range snap.Holdings {
		l.holdings[instrument] = quantity
	}
	l.log = append(l.log, snap.Transactions...)
	return l
}
