// internal/position/position.go
package position

import (
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
)

// Record is a copyable view of a position.
type Record struct {
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Creator      solana.PublicKey
	Name         string
	Symbol       string
	URI          string

	CreateSignature solana.Signature
	CreateSlot      uint64
	HasCreateSlot   bool

	State      State
	DetectedAt time.Time

	BuyAmountLamports uint64
	BuySignature      solana.Signature
	BuyTime           time.Time
	SellSignature     solana.Signature
	LastSellTime      time.Time

	BuyError    string
	BuySimError string
	SellError   string
	SellReason  string

	// last balance seen on-chain or left after a confirmed sell
	TokensHeld       TokenBalance
	BalanceFetchedAt time.Time

	Curve          *pumpfun.BondingCurve
	CurveFetchedAt time.Time

	InitialMC    decimal.NullDecimal
	CurrentMC    decimal.NullDecimal
	MaxMC        decimal.NullDecimal
	LastMCUpdate time.Time
	LastNewMaxAt time.Time

	TP1Fired bool
	TP2Fired bool
}

// Position хранит запись о единственной открытой позиции. Все изменения идут через методы.
type Position struct {
	mu       sync.RWMutex
	rec      Record
	recorded bool
}

// New creates a position in the detected state from a creation event.
func New(ev *pumpfun.CreateEvent, buyAmountLamports uint64, now time.Time) *Position {
	return &Position{rec: Record{
		Mint:              ev.Mint,
		BondingCurve:      ev.BondingCurve,
		Creator:           ev.Creator,
		Name:              ev.Name,
		Symbol:            ev.Symbol,
		URI:               ev.URI,
		CreateSignature:   ev.Signature,
		CreateSlot:        ev.Slot,
		HasCreateSlot:     ev.HasSlot,
		State:             StateDetected,
		DetectedAt:        now,
		BuyAmountLamports: buyAmountLamports,
		TokensHeld:        Unknown(),
	}}
}

// Snapshot returns a copy of the record. The curve pointer is shared but curves
// are replaced wholesale, never mutated.
func (p *Position) Snapshot() Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rec
}

func (p *Position) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rec.State
}

func (p *Position) Mint() solana.PublicKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rec.Mint
}

// Transition moves the position along one edge of the lifecycle graph.
func (p *Position) Transition(to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transitionLocked(to)
}

// TransitionFrom moves to `to` only when the current state is `from`.
// It reports whether the move happened.
func (p *Position) TransitionFrom(from, to State) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rec.State != from {
		return false, nil
	}
	if err := p.transitionLocked(to); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Position) transitionLocked(to State) error {
	if !p.rec.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.rec.State, to)
	}
	p.rec.State = to
	return nil
}

// Update applies fn to the record under the write lock. fn cannot change the
// state, and a sold or failed record is left as it is. It reports whether fn ran.
func (p *Position) Update(fn func(r *Record)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.rec.State
	if state.Terminal() {
		return false
	}
	fn(&p.rec)
	p.rec.State = state
	return true
}

// UpdateAndTransition applies fn and then moves to `to`, atomically. On an
// invalid edge nothing is changed.
func (p *Position) UpdateAndTransition(to State, fn func(r *Record)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.rec.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.rec.State, to)
	}
	fn(&p.rec)
	p.rec.State = to
	return nil
}

// MarkRecorded returns true exactly once, for the caller that should emit the
// trade record.
func (p *Position) MarkRecorded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.recorded {
		return false
	}
	p.recorded = true
	return true
}
