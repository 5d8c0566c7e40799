// ==============================================
// File: internal/dex/pumpfun/event.go
// ==============================================
package pumpfun

import (
	"bytes"
	"encoding/base64"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// ProgramDataPrefix marks anchor event payloads in transaction logs.
	ProgramDataPrefix = "Program data: "

	// discriminator + mint + bonding curve + user
	createEventMinLen = 8 + 3*32

	unknownName   = "Unknown"
	unknownSymbol = "UNK"
)

// TxMeta is the execution metadata of a streamed transaction.
type TxMeta struct {
	Err  interface{}
	Logs []string
}

// LogTransaction is one transaction record delivered by the stream.
type LogTransaction struct {
	Signature solana.Signature
	Slot      uint64
	HasSlot   bool
	// BlockTime is zero when the stream did not provide one.
	BlockTime time.Time
	Meta      *TxMeta
}

// CreateEvent is a decoded token creation event.
type CreateEvent struct {
	Signature    solana.Signature
	BlockTime    time.Time
	Slot         uint64
	HasSlot      bool
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Creator      solana.PublicKey
	Name         string
	Symbol       string
	URI          string
}

// DecodeCreateEvent scans the transaction logs for a create event.
// It returns false for anything that is not a well-formed create event and never panics.
func DecodeCreateEvent(tx *LogTransaction) (*CreateEvent, bool) {
	if tx == nil || tx.Meta == nil || tx.Meta.Err != nil || len(tx.Meta.Logs) == 0 {
		return nil, false
	}

	for _, line := range tx.Meta.Logs {
		if !strings.HasPrefix(line, ProgramDataPrefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, ProgramDataPrefix))
		if err != nil || len(raw) < createEventMinLen {
			continue
		}
		if !bytes.Equal(raw[:8], CreateEventDiscriminator) {
			continue
		}

		ev, err := decodeCreatePayload(raw[8:])
		if err != nil {
			continue
		}

		ev.Signature = tx.Signature
		ev.Slot = tx.Slot
		ev.HasSlot = tx.HasSlot
		ev.BlockTime = tx.BlockTime
		if ev.BlockTime.IsZero() {
			ev.BlockTime = time.Now()
		}
		return ev, true
	}
	return nil, false
}

func decodeCreatePayload(data []byte) (*CreateEvent, error) {
	dec := bin.NewBorshDecoder(data)

	name, err := dec.ReadString()
	if err != nil {
		return nil, err
	}
	symbol, err := dec.ReadString()
	if err != nil {
		return nil, err
	}
	uri, err := dec.ReadString()
	if err != nil {
		return nil, err
	}

	var keys [3]solana.PublicKey
	for i := range keys {
		b, err := dec.ReadNBytes(32)
		if err != nil {
			return nil, err
		}
		keys[i] = solana.PublicKeyFromBytes(b)
	}

	if name == "" {
		name = unknownName
	}
	if symbol == "" {
		symbol = unknownSymbol
	}

	return &CreateEvent{
		Name:         name,
		Symbol:       symbol,
		URI:          uri,
		Mint:         keys[0],
		BondingCurve: keys[1],
		Creator:      keys[2],
	}, nil
}

// EncodeCreateEvent builds the raw event payload (discriminator included).
func EncodeCreateEvent(ev *CreateEvent) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(CreateEventDiscriminator, false); err != nil {
		return nil, err
	}
	for _, s := range []string{ev.Name, ev.Symbol, ev.URI} {
		if err := enc.WriteString(s); err != nil {
			return nil, err
		}
	}
	for _, key := range []solana.PublicKey{ev.Mint, ev.BondingCurve, ev.Creator} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// CreateEventLogLine renders the payload as it appears in program logs.
func CreateEventLogLine(ev *CreateEvent) (string, error) {
	raw, err := EncodeCreateEvent(ev)
	if err != nil {
		return "", err
	}
	return ProgramDataPrefix + base64.StdEncoding.EncodeToString(raw), nil
}
