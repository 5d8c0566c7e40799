// Package pumpfun contains the Pump.fun bonding-curve program bindings used by the sniper.
//
// This package provides:
// - Program addresses, discriminators and PDA helpers (config.go).
// - Buy/sell quote and market cap math mirroring the on-chain integer arithmetic (pricing.go).
// - Bonding curve account decoding and fetching (bonding_curve.go).
// - Create event decoding from "Program data:" log lines (event.go).
// - Buy and sell instruction builders (instructions.go).
//
// Usage example:
//
//	curve, err := pumpfun.FetchBondingCurve(ctx, rpcClient, ev.BondingCurve, rpc.CommitmentProcessed)
//	if err != nil {
//	    return err
//	}
//	quote, err := pumpfun.BuyQuote(curve.VirtualSolReserves, curve.VirtualTokenReserves, lamports, 500)
//	if err != nil {
//	    return err
//	}
//	ix, err := pumpfun.GetDefaultConfig().BuildBuyInstruction(accounts, quote.MinOut, quote.MaxCost)
package pumpfun
