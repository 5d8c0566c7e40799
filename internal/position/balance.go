// internal/position/balance.go
package position

import "strconv"

// TokenBalance is either unknown or a known raw amount. Unknown never equals zero.
type TokenBalance struct {
	amount uint64
	known  bool
}

func Unknown() TokenBalance { return TokenBalance{} }

func Known(amount uint64) TokenBalance { return TokenBalance{amount: amount, known: true} }

// Get returns the amount and whether it is known.
func (b TokenBalance) Get() (uint64, bool) { return b.amount, b.known }

func (b TokenBalance) IsKnown() bool { return b.known }

func (b TokenBalance) String() string {
	if !b.known {
		return "unknown"
	}
	return strconv.FormatUint(b.amount, 10)
}
