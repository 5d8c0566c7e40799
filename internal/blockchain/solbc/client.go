// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
// Он удовлетворяет узким интерфейсам fetcher'ов пакета, поэтому тесты подменяют его фейками.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// IsAccountNotFoundError reports whether err means the account does not exist yet.
// Fresh bonding curves and token accounts are briefly invisible to lagging nodes.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "account does not exist") ||
		strings.Contains(msg, "account not found") ||
		strings.Contains(msg, "could not find account")
}

func (c *Client) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, account, opts)
	if err != nil && !IsAccountNotFoundError(err) {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", account.String()),
			zap.Error(err))
	}
	return res, err
}

func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	res, err := c.rpc.GetTokenAccountBalance(ctx, account, commitment)
	if err != nil && !IsAccountNotFoundError(err) {
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
	}
	return res, err
}

func (c *Client) GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return c.rpc.GetSignatureStatuses(ctx, searchHistory, sigs...)
}

func (c *Client) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, commitment)
	if err != nil {
		c.logger.Warn("GetLatestBlockhash error", zap.Error(err))
	}
	return res, err
}

// GetSOLBalance возвращает баланс кошелька в лампортах.
func (c *Client) GetSOLBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

func (c *Client) GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	return c.rpc.GetSlot(ctx, commitment)
}

func (c *Client) Close() error {
	return c.rpc.Close()
}
