// Package chainrpc is the Chain Source Adapter (C1): it fetches block
// hashes, full blocks with resolved prevouts, and the chain tip from a
// trusted Bitcoin Core node over JSON-RPC.
//
// Adapted from the teacher's internal/bitcoin/client.go: the same
// rpcclient/btcjson wrapping style, the same raw-HTTP-POST escape hatch for
// calls the btcjson wrapper doesn't model (there, scantxoutset and
// gettxoutsetinfo; here, getblock verbosity=3 and JSON-RPC batching).
package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
)

// Config holds the node connection parameters. Per spec §4.1 the adapter
// opens one connection per call rather than sharing a mutable connection —
// simpler correctness than pooling, and it avoids head-of-line blocking
// under the Block Ingestor's bursty fan-out.
type Config struct {
	Host           string
	User           string
	Pass           string
	TimeoutSeconds int // per-RPC timeout; default 120s per spec §5
}

// Adapter is the Chain Source Adapter. It is safe for concurrent use by
// many workers: every exported method dials its own short-lived RPC
// connection.
type Adapter struct {
	cfg Config
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 120
	}
	return &Adapter{cfg: cfg}
}

func (a *Adapter) connConfig() *rpcclient.ConnConfig {
	return &rpcclient.ConnConfig{
		Host:         a.cfg.Host,
		User:         a.cfg.User,
		Pass:         a.cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
}

// newClient opens a fresh RPC connection for the duration of one call.
func (a *Adapter) newClient() (*rpcclient.Client, error) {
	c, err := rpcclient.New(a.connConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: dial: %w", err)
	}
	return c, nil
}

// TipHeight returns the current chain tip height.
func (a *Adapter) TipHeight(ctx context.Context) (int64, error) {
	var height int64
	err := a.withRetry(ctx, func() error {
		c, err := a.newClient()
		if err != nil {
			return err
		}
		defer c.Shutdown()
		h, err := c.GetBlockCount()
		if err != nil {
			return err
		}
		height = h
		return nil
	})
	return height, err
}

// BlockHashAt returns the block hash at the given height. For a height
// above the current tip the node's error is retried like any other failure
// and then returned; BatchBlockHashes instead omits such heights.
func (a *Adapter) BlockHashAt(ctx context.Context, height int64) (string, error) {
	var hash string
	err := a.withRetry(ctx, func() error {
		c, err := a.newClient()
		if err != nil {
			return err
		}
		defer c.Shutdown()
		var h *chainhash.Hash
		h, err = c.GetBlockHash(height)
		if err != nil {
			return err
		}
		hash = h.String()
		return nil
	})
	return hash, err
}

// RawBlock is the decoded shape of `getblock <hash> 3` (verbosity=3), the
// only verbosity level that carries prevout data inline for every
// non-coinbase input. Requires Bitcoin Core 25.0+.
type RawBlock struct {
	Hash   string  `json:"hash"`
	Height int64   `json:"height"`
	Time   int64   `json:"time"`
	Tx     []RawTx `json:"tx"`
}

type RawTx struct {
	Txid string   `json:"txid"`
	Vin  []RawVin `json:"vin"`
	Vout []RawVout `json:"vout"`
}

type RawVin struct {
	Txid     string      `json:"txid"`
	Vout     uint32      `json:"vout"`
	Coinbase string      `json:"coinbase"` // non-empty for the coinbase input
	Prevout  *RawPrevout `json:"prevout"`
}

type RawPrevout struct {
	Value        float64         `json:"value"`
	Height       int64           `json:"height"`
	ScriptPubKey RawScriptPubKey `json:"scriptPubKey"`
}

type RawVout struct {
	Value        float64         `json:"value"`
	N            uint32          `json:"n"`
	ScriptPubKey RawScriptPubKey `json:"scriptPubKey"`
}

type RawScriptPubKey struct {
	Hex       string   `json:"hex"`
	Type      string   `json:"type"`
	Address   string   `json:"address"`   // Core 22+ single-address field
	Addresses []string `json:"addresses"` // legacy multisig/pre-22 field
}

// ResolvedAddress returns the single address a scriptPubKey resolves to, or
// "" for OP_RETURN / unparseable / multisig scripts.
func (s RawScriptPubKey) ResolvedAddress() string {
	if s.Address != "" {
		return s.Address
	}
	if len(s.Addresses) == 1 {
		return s.Addresses[0]
	}
	return ""
}

// Block fetches a single block with full prevout data.
func (a *Adapter) Block(ctx context.Context, hash string) (*RawBlock, error) {
	var block RawBlock
	err := a.withRetry(ctx, func() error {
		raw, err := a.rawRequest(ctx, "getblock", []interface{}{hash, 3})
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &block)
	})
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// rawBlockHeader is the shape of `getblockheader <hash> true`, verbosity
// enough to read a block's timestamp without paying for the full
// transaction list — the Chainstate Bootstrap (C4) resolves many heights'
// timestamps and doesn't need prevout data for that.
type rawBlockHeader struct {
	Time int64 `json:"time"`
}

// BlockHeaderTime returns a block's Unix timestamp by hash, cheaper than
// Block when only the timestamp is needed (C4 bootstrap height->timestamp
// resolution).
func (a *Adapter) BlockHeaderTime(ctx context.Context, hash string) (int64, error) {
	var header rawBlockHeader
	err := a.withRetry(ctx, func() error {
		raw, err := a.rawRequest(ctx, "getblockheader", []interface{}{hash, true})
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &header)
	})
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}

// BatchBlockHashes resolves many heights to hashes in one HTTP round trip.
// A height above the tip is not an error: it is simply omitted from the
// result, so the caller observes a shorter slice (spec §4.1).
func (a *Adapter) BatchBlockHashes(ctx context.Context, heights []int64) ([]string, error) {
	calls := make([]batchCall, len(heights))
	for i, h := range heights {
		calls[i] = batchCall{Method: "getblockhash", Params: []interface{}{h}}
	}
	raws, err := a.rawBatch(ctx, calls)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(raws))
	for _, r := range raws {
		if r.err != nil {
			continue // missing block: observed as a shorter slice, not an error
		}
		var hash string
		if err := json.Unmarshal(r.result, &hash); err != nil {
			continue
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// BatchBlockHeaderTimes resolves many hashes' timestamps in one HTTP round
// trip, indexed by hash — used by the Chainstate Bootstrap to backfill
// BlockHeight for the CSV's referenced heights in bulk rather than one RPC
// per distinct height.
func (a *Adapter) BatchBlockHeaderTimes(ctx context.Context, hashes []string) (map[string]int64, error) {
	calls := make([]batchCall, len(hashes))
	for i, h := range hashes {
		calls[i] = batchCall{Method: "getblockheader", Params: []interface{}{h, true}}
	}
	raws, err := a.rawBatch(ctx, calls)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raws))
	for i, r := range raws {
		if r.err != nil || i >= len(hashes) {
			continue
		}
		var header rawBlockHeader
		if err := json.Unmarshal(r.result, &header); err != nil {
			continue
		}
		out[hashes[i]] = header.Time
	}
	return out, nil
}

// BatchBlocks fetches many blocks (with prevouts) in one HTTP round trip.
func (a *Adapter) BatchBlocks(ctx context.Context, hashes []string) ([]*RawBlock, error) {
	calls := make([]batchCall, len(hashes))
	for i, h := range hashes {
		calls[i] = batchCall{Method: "getblock", Params: []interface{}{h, 3}}
	}
	raws, err := a.rawBatch(ctx, calls)
	if err != nil {
		return nil, err
	}
	blocks := make([]*RawBlock, 0, len(raws))
	for _, r := range raws {
		if r.err != nil {
			continue
		}
		var b RawBlock
		if err := json.Unmarshal(r.result, &b); err != nil {
			continue
		}
		blocks = append(blocks, &b)
	}
	return blocks, nil
}

// --- raw HTTP plumbing, grounded on the teacher's ScanTxOutset/GetTxOutSetInfoLong ---

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *jsonRPCError   `json:"error"`
}

func (a *Adapter) httpClient() *http.Client {
	return &http.Client{Timeout: time.Duration(a.cfg.TimeoutSeconds) * time.Second}
}

func (a *Adapter) rawRequest(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	body, _ := json.Marshal(jsonRPCRequest{JSONRPC: "1.0", ID: 1, Method: method, Params: params})

	url := fmt.Sprintf("http://%s", a.cfg.Host)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chainrpc: %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.cfg.User, a.cfg.Pass)

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: %s: http: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &authError{method: method, status: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: %s: read body: %w", method, err)
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("chainrpc: %s: unmarshal response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, &rpcError{code: rpcResp.Error.Code, message: rpcResp.Error.Message}
	}
	return rpcResp.Result, nil
}

type batchCall struct {
	Method string
	Params []interface{}
}

type batchResult struct {
	result json.RawMessage
	err    error
}

// rawBatch packs multiple JSON-RPC requests into one HTTP POST body (a JSON
// array), per spec §4.1's batching requirement, and returns results ordered
// to match the input calls.
func (a *Adapter) rawBatch(ctx context.Context, calls []batchCall) ([]batchResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	reqs := make([]jsonRPCRequest, len(calls))
	for i, c := range calls {
		reqs[i] = jsonRPCRequest{JSONRPC: "1.0", ID: i, Method: c.Method, Params: c.Params}
	}
	body, _ := json.Marshal(reqs)

	url := fmt.Sprintf("http://%s", a.cfg.Host)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chainrpc: batch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.cfg.User, a.cfg.Pass)

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: batch: http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: batch: read body: %w", err)
	}

	var rpcResps []jsonRPCResponse
	if err := json.Unmarshal(respBody, &rpcResps); err != nil {
		return nil, fmt.Errorf("chainrpc: batch: unmarshal response: %w", err)
	}

	byID := make(map[int]jsonRPCResponse, len(rpcResps))
	for _, r := range rpcResps {
		byID[r.ID] = r
	}

	out := make([]batchResult, len(calls))
	for i := range calls {
		r, ok := byID[i]
		if !ok {
			out[i] = batchResult{err: fmt.Errorf("chainrpc: batch: missing response for call %d", i)}
			continue
		}
		if r.Error != nil {
			out[i] = batchResult{err: &rpcError{code: r.Error.Code, message: r.Error.Message}}
			continue
		}
		out[i] = batchResult{result: r.Result}
	}
	return out, nil
}

type rpcError struct {
	code    int
	message string
}

func (e *rpcError) Error() string { return fmt.Sprintf("%d: %s", e.code, e.message) }

type authError struct {
	method string
	status int
}

func (e *authError) Error() string {
	return fmt.Sprintf("chainrpc: %s: HTTP %d (bad credentials)", e.method, e.status)
}

// IsAuthError reports whether err is an authentication/permission failure —
// these surface immediately, without retry, per spec §7.
func IsAuthError(err error) bool {
	_, ok := err.(*authError)
	return ok
}
