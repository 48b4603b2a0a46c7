// Package models defines the entity types persisted by the UTXO Store (C3)
// and shared across every downstream component.
package models

import "time"

// ScriptType mirrors the handful of output script classes the chainstate
// dump and block decoder can resolve.
type ScriptType string

const (
	ScriptTypePubKeyHash ScriptType = "p2pkh"
	ScriptTypeScriptHash ScriptType = "p2sh"
	ScriptTypeWitnessV0  ScriptType = "p2wpkh"
	ScriptTypeWitnessV1  ScriptType = "p2tr"
	ScriptTypeMultisig   ScriptType = "multisig"
	ScriptTypeNonStandard ScriptType = "nonstandard"
	ScriptTypeNullData   ScriptType = "nulldata" // OP_RETURN — no address
)

// SatsPerBTC is the canonical satoshi/BTC conversion factor.
const SatsPerBTC = 100_000_000

// Outpoint identifies a UTXO: the pair (transaction id, output index).
type Outpoint struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

// UTXO is the central record of the analytical store: one row per outpoint,
// creation attributes always set, spend attributes nullable until spent.
//
// Invariants (Id1, Id2): exactly one row per outpoint; spend fields are
// all-or-nothing and never revert once set.
type UTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`

	CreationHeight    int64     `json:"creation_height"`
	CreationTimestamp time.Time `json:"creation_timestamp"`
	Satoshis          int64     `json:"satoshis"`
	CreationPriceUSD  *float64  `json:"creation_price_usd"` // null if price unknown for that date
	Coinbase          bool      `json:"coinbase"`
	ScriptType        ScriptType `json:"script_type"`
	Address           *string   `json:"address"` // null for OP_RETURN / unparseable scripts

	Spent           bool       `json:"spent"`
	SpendHeight     *int64     `json:"spend_height"`
	SpendTimestamp  *time.Time `json:"spend_timestamp"`
	SpendPriceUSD   *float64   `json:"spend_price_usd"`
}

// Outpoint returns the UTXO's identifying key.
func (u UTXO) Outpoint() Outpoint {
	return Outpoint{TxID: u.TxID, Vout: u.Vout}
}

// BTCValue is satoshis/1e8 — the derived `btc_value` column.
func (u UTXO) BTCValue() float64 {
	return float64(u.Satoshis) / SatsPerBTC
}

// RealizedValueUSD is creation_price_usd × btc_value, or nil when the
// creation price is unknown.
func (u UTXO) RealizedValueUSD() *float64 {
	if u.CreationPriceUSD == nil {
		return nil
	}
	v := *u.CreationPriceUSD * u.BTCValue()
	return &v
}

// AgeDays is (spend_ts - creation_ts)/86400, nil until spent.
func (u UTXO) AgeDays() *float64 {
	if !u.Spent || u.SpendTimestamp == nil {
		return nil
	}
	d := u.SpendTimestamp.Sub(u.CreationTimestamp).Hours() / 24
	return &d
}

// IsUnspentAsOf reports whether the UTXO was unspent at the end of block
// height lastBlock — the historical-point test used by Realized Cap / Market
// Cap / Supply P&L: spent=false OR spend_block > lastBlock.
func (u UTXO) IsUnspentAsOf(lastBlock int64) bool {
	if !u.Spent {
		return true
	}
	return u.SpendHeight != nil && *u.SpendHeight > lastBlock
}

// CreationRow is the minimal shape the Block Ingestor / Chainstate Bootstrap
// emit for a newly observed output, before it is appended to the store.
type CreationRow struct {
	TxID              string
	Vout              uint32
	CreationHeight    int64
	CreationTimestamp time.Time
	Satoshis          int64
	Coinbase          bool
	ScriptType        ScriptType
	Address           *string
}

// SpendRecord is the minimal shape the Block Ingestor emits for an observed
// input; it is staged and later joined against the UTXO table by outpoint.
type SpendRecord struct {
	TxID           string // outpoint being spent
	Vout           uint32
	SpendHeight    int64
	SpendTimestamp time.Time
	SpendPriceUSD  *float64 // price on the spend block's date, nil if unknown
}
