// internal/position/manager.go
package position

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
)

// AdmitResult says what happened to a creation event.
type AdmitResult int

const (
	Accepted AdmitResult = iota
	Busy
	ShuttingDown
	Stale
)

func (r AdmitResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Busy:
		return "busy"
	case ShuttingDown:
		return "shutting_down"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// SlotSource reports the latest observed chain slot.
type SlotSource interface {
	CurrentSlot() (uint64, bool)
}

// BuyFunc runs the buy for a freshly installed position in the buying state.
type BuyFunc func(ctx context.Context, p *Position) error

// Manager держит не более одной активной позиции. Приём нового события
// сериализован мьютексом; пока идёт покупка, остальные события отбрасываются.
type Manager struct {
	admitMu  sync.Mutex
	active   atomic.Pointer[Position]
	shutdown atomic.Bool

	slots      SlotSource
	maxSlotAge uint64
	buyAmount  uint64
	now        func() time.Time
	logger     *zap.Logger
}

// NewManager creates a manager. slots may be nil and maxSlotAge 0 to disable
// the stale-event filter.
func NewManager(buyAmountLamports uint64, slots SlotSource, maxSlotAge uint64, logger *zap.Logger) *Manager {
	return &Manager{
		slots:      slots,
		maxSlotAge: maxSlotAge,
		buyAmount:  buyAmountLamports,
		now:        time.Now,
		logger:     logger.Named("position-manager"),
	}
}

// Admit tries to open a position for ev. On acceptance the position is created,
// moved to buying, installed and buy runs while admission is still locked. A
// buy error clears the slot and is returned alongside Accepted.
func (m *Manager) Admit(ctx context.Context, ev *pumpfun.CreateEvent, buy BuyFunc) (AdmitResult, error) {
	if m.shutdown.Load() {
		return ShuttingDown, nil
	}
	if m.isStale(ev) {
		return Stale, nil
	}
	if m.active.Load() != nil {
		return Busy, nil
	}

	m.admitMu.Lock()
	defer m.admitMu.Unlock()

	if m.shutdown.Load() {
		return ShuttingDown, nil
	}
	if m.active.Load() != nil {
		return Busy, nil
	}

	p := New(ev, m.buyAmount, m.now())
	if err := p.Transition(StateBuying); err != nil {
		return Accepted, err
	}
	m.active.Store(p)
	m.logger.Info("Position opened",
		zap.String("mint", ev.Mint.String()),
		zap.String("symbol", ev.Symbol))

	if err := buy(ctx, p); err != nil {
		m.Release(p)
		return Accepted, err
	}
	return Accepted, nil
}

func (m *Manager) isStale(ev *pumpfun.CreateEvent) bool {
	if m.maxSlotAge == 0 || m.slots == nil || !ev.HasSlot {
		return false
	}
	current, ok := m.slots.CurrentSlot()
	if !ok || current <= ev.Slot {
		return false
	}
	if age := current - ev.Slot; age > m.maxSlotAge {
		m.logger.Debug("Dropping stale create event",
			zap.String("mint", ev.Mint.String()),
			zap.Uint64("age_slots", age))
		return true
	}
	return false
}

// Active returns the installed position or nil.
func (m *Manager) Active() *Position {
	return m.active.Load()
}

// IsActive reports whether p is the installed position.
func (m *Manager) IsActive(p *Position) bool {
	return p != nil && m.active.Load() == p
}

// Release clears the slot only if p is still the installed position.
func (m *Manager) Release(p *Position) bool {
	if m.active.CompareAndSwap(p, nil) {
		m.logger.Info("Position released",
			zap.String("mint", p.Mint().String()),
			zap.String("state", p.State().String()))
		return true
	}
	return false
}

// Shutdown sets the one-way flag; later events are dropped before the lock.
func (m *Manager) Shutdown() {
	m.shutdown.Store(true)
}

func (m *Manager) ShuttingDown() bool {
	return m.shutdown.Load()
}
