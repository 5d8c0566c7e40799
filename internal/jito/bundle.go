// internal/jito/bundle.go
package jito

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// MaxBundleSize is the block engine's hard limit on transactions per bundle.
const MaxBundleSize = 5

var (
	ErrBundleTooLarge = errors.New("bundle exceeds transaction limit")
	ErrEmptyBundle    = errors.New("bundle has no transactions")
)

// Bundle is an ordered, size-capped group of signed transactions.
type Bundle struct {
	txs   []*solana.Transaction
	limit int
}

// NewBundle creates an empty bundle. A limit outside (0, MaxBundleSize] is clamped.
func NewBundle(limit int) *Bundle {
	if limit <= 0 || limit > MaxBundleSize {
		limit = MaxBundleSize
	}
	return &Bundle{limit: limit}
}

// Add appends txs, rejecting the whole batch if it would overflow the limit.
func (b *Bundle) Add(txs ...*solana.Transaction) error {
	if len(b.txs)+len(txs) > b.limit {
		return fmt.Errorf("%w: %d > %d", ErrBundleTooLarge, len(b.txs)+len(txs), b.limit)
	}
	for _, tx := range txs {
		if tx == nil {
			return errors.New("nil transaction in bundle")
		}
	}
	b.txs = append(b.txs, txs...)
	return nil
}

func (b *Bundle) Len() int { return len(b.txs) }

// Signatures returns the first signature of every transaction in order.
func (b *Bundle) Signatures() []solana.Signature {
	sigs := make([]solana.Signature, 0, len(b.txs))
	for _, tx := range b.txs {
		if len(tx.Signatures) > 0 {
			sigs = append(sigs, tx.Signatures[0])
		}
	}
	return sigs
}

// Encode serializes every transaction as base58 wire bytes.
func (b *Bundle) Encode() ([]string, error) {
	if len(b.txs) == 0 {
		return nil, ErrEmptyBundle
	}
	out := make([]string, 0, len(b.txs))
	for i, tx := range b.txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize transaction %d: %w", i, err)
		}
		out = append(out, base58.Encode(raw))
	}
	return out, nil
}
