package models

// TxIn is a decoded transaction input, resolved against its prevout so the
// Block Ingestor never needs a second lookup for address/amount.
type TxIn struct {
	PrevTxID string
	PrevVout uint32
	Value    int64 // satoshis, from the prevout
	Address  string
}

// TxOut is a decoded transaction output.
type TxOut struct {
	Value        int64 // satoshis
	Address      string
	ScriptPubKey string
	ScriptType   ScriptType
}

// Transaction is the decoded shape the Block Ingestor works with internally
// before splitting it into CreationRow/SpendRecord/cluster-hint emissions.
type Transaction struct {
	TxID     string
	Inputs   []TxIn
	Outputs  []TxOut
	Coinbase bool
}

// InputAddresses returns the set of distinct, resolvable input addresses —
// the set C6's multi-input heuristic unions when len >= 2.
func (tx Transaction) InputAddresses() []string {
	seen := make(map[string]bool, len(tx.Inputs))
	out := make([]string, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if in.Address == "" || seen[in.Address] {
			continue
		}
		seen[in.Address] = true
		out = append(out, in.Address)
	}
	return out
}
