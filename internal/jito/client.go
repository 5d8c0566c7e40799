// internal/jito/client.go
package jito

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// Submitter sends bundles to a block engine.
type Submitter interface {
	SendBundle(ctx context.Context, bundle *Bundle) (string, error)
}

// BundleError carries the block engine's structured rejection.
type BundleError struct {
	Message string
	Code    int
	Details string
}

func (e *BundleError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("bundle rejected: %s, code: %d, details: %s", e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("bundle rejected: %s, code: %d", e.Message, e.Code)
}

// Client говорит с block engine по JSON-RPC (sendBundle, getTipAccounts).
type Client struct {
	rpc    jsonrpc.RPCClient
	url    string
	logger *zap.Logger
}

// NewClient creates a block-engine client. authUUID is sent as x-jito-auth when set.
func NewClient(endpoint, authUUID string, logger *zap.Logger) *Client {
	headers := map[string]string{}
	if authUUID != "" {
		headers["x-jito-auth"] = authUUID
	}
	return &Client{
		rpc:    jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{CustomHeaders: headers}),
		url:    endpoint,
		logger: logger.Named("jito"),
	}
}

// SendBundle submits the bundle and returns its id.
func (c *Client) SendBundle(ctx context.Context, bundle *Bundle) (string, error) {
	encoded, err := bundle.Encode()
	if err != nil {
		return "", err
	}

	var bundleID string
	if err := c.rpc.CallForInto(ctx, &bundleID, "sendBundle", []interface{}{encoded}); err != nil {
		err = asBundleError(err)
		c.logger.Error("Failed to send bundle",
			zap.Int("txs", bundle.Len()),
			zap.Stringers("signatures", bundle.Signatures()),
			zap.Error(err))
		return "", err
	}
	if bundleID == "" {
		return "", &BundleError{Message: "empty bundle id in response"}
	}

	c.logger.Debug("Bundle accepted",
		zap.String("bundle_id", bundleID),
		zap.Stringers("signatures", bundle.Signatures()))
	return bundleID, nil
}

// GetTipAccounts lists the accounts the block engine accepts tips on.
func (c *Client) GetTipAccounts(ctx context.Context) ([]solana.PublicKey, error) {
	var raw []string
	if err := c.rpc.CallForInto(ctx, &raw, "getTipAccounts", []interface{}{}); err != nil {
		return nil, asBundleError(err)
	}

	accounts := make([]solana.PublicKey, 0, len(raw))
	for _, s := range raw {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("invalid tip account %q: %w", s, err)
		}
		accounts = append(accounts, pk)
	}
	return accounts, nil
}

func asBundleError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}
	be := &BundleError{Message: rpcErr.Message, Code: rpcErr.Code}
	if rpcErr.Data != nil {
		be.Details = fmt.Sprint(rpcErr.Data)
	}
	return be
}
