// internal/stream/ws.go
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
)

// WSSubscriber subscribes to logs over the RPC node's websocket at processed commitment.
type WSSubscriber struct {
	url string
}

func NewWSSubscriber(url string) *WSSubscriber {
	return &WSSubscriber{url: url}
}

func (s *WSSubscriber) Subscribe(ctx context.Context, program solana.PublicKey) (Subscription, error) {
	client, err := ws.Connect(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect websocket: %w", err)
	}

	sub, err := client.LogsSubscribeMentions(program, rpc.CommitmentProcessed)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("logsSubscribe: %w", err)
	}
	return &wsSubscription{client: client, sub: sub}, nil
}

type wsSubscription struct {
	client *ws.Client
	sub    *ws.LogSubscription
}

// Recv skips failed transactions. Notifications carry no block time, so the
// receipt time stands in.
func (w *wsSubscription) Recv(ctx context.Context) (*pumpfun.LogTransaction, error) {
	for {
		res, err := w.sub.Recv(ctx)
		if err != nil {
			if errors.Is(err, ws.ErrSubscriptionClosed) {
				return nil, ErrStreamClosed
			}
			return nil, err
		}
		if res == nil {
			return nil, ErrStreamClosed
		}
		if res.Value.Err != nil {
			continue
		}

		return &pumpfun.LogTransaction{
			Signature: res.Value.Signature,
			Slot:      res.Context.Slot,
			HasSlot:   res.Context.Slot > 0,
			BlockTime: time.Now(),
			Meta:      &pumpfun.TxMeta{Logs: res.Value.Logs},
		}, nil
	}
}

func (w *wsSubscription) Close() {
	w.sub.Unsubscribe()
	w.client.Close()
}
