// internal/blockchain/solbc/retry.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
)

// RetryPolicy is a fixed-delay retry budget.
type RetryPolicy struct {
	MaxTries uint
	Delay    time.Duration
}

var (
	DefaultRetry = RetryPolicy{MaxTries: 3, Delay: 250 * time.Millisecond}
	CurveRetry   = RetryPolicy{MaxTries: 5, Delay: 300 * time.Millisecond}
	BalanceRetry = RetryPolicy{MaxTries: 5, Delay: 300 * time.Millisecond}
)

var (
	// ErrBalanceUnknown означает, что баланс не удалось получить ни с одной попытки.
	ErrBalanceUnknown = errors.New("token balance unknown")
	// ErrCurveNotFound is returned when the bonding curve never became visible.
	ErrCurveNotFound = errors.New("bonding curve account not found")
)

// Retry runs op until it succeeds, returns a backoff.Permanent error or the
// policy runs out of tries. The final error names the label and attempt count.
func Retry[T any](ctx context.Context, policy RetryPolicy, label string, op func(context.Context) (T, error)) (T, error) {
	attempts := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		return op(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Delay)),
		backoff.WithMaxTries(policy.MaxTries),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return res, fmt.Errorf("%s failed after %d attempt(s): %w", label, attempts, err)
	}
	return res, nil
}

// FetchCurveWithRetry retries only while the account is reported missing.
// Any other failure aborts on the current attempt.
func FetchCurveWithRetry(ctx context.Context, client pumpfun.AccountFetcher, bondingCurve solana.PublicKey, commitment rpc.CommitmentType, policy RetryPolicy) (*pumpfun.BondingCurve, error) {
	curve, err := Retry(ctx, policy, "fetch bonding curve", func(ctx context.Context) (*pumpfun.BondingCurve, error) {
		curve, err := pumpfun.FetchBondingCurve(ctx, client, bondingCurve, commitment)
		if err == nil {
			return curve, nil
		}
		if IsAccountNotFoundError(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	})
	if err != nil && IsAccountNotFoundError(err) {
		return nil, fmt.Errorf("%w: %w", ErrCurveNotFound, err)
	}
	return curve, err
}

// BalanceFetcher is the token-balance slice of the RPC client.
type BalanceFetcher interface {
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

var errNoAmount = errors.New("token balance has no amount")

// FetchBalanceWithRetry returns the raw token amount held in account.
// Exhaustion yields ErrBalanceUnknown; callers must not treat it as zero.
func FetchBalanceWithRetry(ctx context.Context, client BalanceFetcher, account solana.PublicKey, commitment rpc.CommitmentType, policy RetryPolicy) (uint64, error) {
	amount, err := Retry(ctx, policy, "fetch token balance", func(ctx context.Context) (uint64, error) {
		res, err := client.GetTokenAccountBalance(ctx, account, commitment)
		if err != nil {
			return 0, err
		}
		if res == nil || res.Value == nil || res.Value.Amount == "" {
			return 0, errNoAmount
		}
		n, err := strconv.ParseUint(res.Value.Amount, 10, 64)
		if err != nil {
			return 0, backoff.Permanent(fmt.Errorf("invalid token amount %q: %w", res.Value.Amount, err))
		}
		return n, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrBalanceUnknown, err)
	}
	return amount, nil
}
