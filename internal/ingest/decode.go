package ingest

import (
	"time"

	"github.com/rawblock/utxo-lifecycle-engine/internal/chainrpc"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// decodedBlock is the Decode & Emit stage's (spec §4.5 step 2) output for
// one block: creation rows, spend records, and cluster-hint transactions,
// kept together so the caller can apply them in strict ascending height
// order.
type decodedBlock struct {
	height    int64
	blockMeta models.BlockHeight
	creations []models.CreationRow
	spends    []models.SpendRecord
	txs       []models.Transaction
}

// decodeBlock turns one raw getblock(verbosity=3) response into the three
// emission streams the ingestor accumulates before a batch flush.
func decodeBlock(raw *chainrpc.RawBlock) decodedBlock {
	ts := time.Unix(raw.Time, 0).UTC()
	out := decodedBlock{
		height:    raw.Height,
		blockMeta: models.BlockHeight{Height: raw.Height, Hash: raw.Hash, Timestamp: ts},
	}

	for txIndex, tx := range raw.Tx {
		isCoinbase := txIndex == 0

		for _, vout := range tx.Vout {
			addr := vout.ScriptPubKey.ResolvedAddress()
			var addrPtr *string
			if addr != "" {
				addrPtr = &addr
			}
			out.creations = append(out.creations, models.CreationRow{
				TxID:              tx.Txid,
				Vout:              vout.N,
				CreationHeight:    raw.Height,
				CreationTimestamp: ts,
				Satoshis:          btcToSats(vout.Value),
				Coinbase:          isCoinbase,
				ScriptType:        mapScriptType(vout.ScriptPubKey.Type),
				Address:           addrPtr,
			})
		}

		if isCoinbase {
			continue
		}

		var inAddrs []string
		for _, vin := range tx.Vin {
			if vin.Coinbase != "" {
				continue
			}
			out.spends = append(out.spends, models.SpendRecord{
				TxID:           vin.Txid,
				Vout:           vin.Vout,
				SpendHeight:    raw.Height,
				SpendTimestamp: ts,
			})
			if vin.Prevout != nil {
				if a := vin.Prevout.ScriptPubKey.ResolvedAddress(); a != "" {
					inAddrs = append(inAddrs, a)
				}
			}
		}

		if len(inAddrs) >= 2 {
			txIns := make([]models.TxIn, 0, len(inAddrs))
			for _, a := range inAddrs {
				txIns = append(txIns, models.TxIn{Address: a})
			}
			out.txs = append(out.txs, models.Transaction{TxID: tx.Txid, Inputs: txIns})
		}
	}

	return out
}

// btcToSats converts a getblock-reported BTC float amount to an exact
// satoshi integer via btcutil.NewAmount, avoiding naive float math — same
// conversion the teacher uses in internal/api/routes.go's btcToSats, just
// inverted (BTC -> sats instead of sats -> BTC).
func btcToSats(btc float64) int64 {
	amt, err := btcAmountFromBTC(btc)
	if err != nil {
		return int64(btc * models.SatsPerBTC)
	}
	return amt
}

// mapScriptType translates Core's getblock scriptPubKey.type strings into
// the engine's ScriptType enum.
func mapScriptType(t string) models.ScriptType {
	switch t {
	case "pubkeyhash":
		return models.ScriptTypePubKeyHash
	case "scripthash":
		return models.ScriptTypeScriptHash
	case "witness_v0_keyhash":
		return models.ScriptTypeWitnessV0
	case "witness_v1_taproot":
		return models.ScriptTypeWitnessV1
	case "multisig":
		return models.ScriptTypeMultisig
	case "nulldata":
		return models.ScriptTypeNullData
	default:
		return models.ScriptTypeNonStandard
	}
}
