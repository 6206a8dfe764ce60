// Package soroban talks to a Stellar RPC node: simulating contract calls, assembling and
// submitting signed invocations, and decoding their return values.
package soroban

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Transaction statuses reported by sendTransaction and getTransaction.
const (
	SendStatusPending       = "PENDING"
	SendStatusDuplicate     = "DUPLICATE"
	SendStatusTryAgainLater = "TRY_AGAIN_LATER"
	SendStatusError         = "ERROR"

	TxStatusSuccess  = "SUCCESS"
	TxStatusFailed   = "FAILED"
	TxStatusNotFound = "NOT_FOUND"
)

// RPCError is a JSON-RPC level error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// SimulateResult is the subset of simulateTransaction the invoker consumes.
type SimulateResult struct {
	Error           string `json:"error"`
	TransactionData string `json:"transactionData"`
	MinResourceFee  string `json:"minResourceFee"`
	LatestLedger    uint32 `json:"latestLedger"`
	Results         []struct {
		Auth []string `json:"auth"`
		XDR  string   `json:"xdr"`
	} `json:"results"`
}

// SendResult is the sendTransaction response.
type SendResult struct {
	Status         string `json:"status"`
	Hash           string `json:"hash"`
	ErrorResultXDR string `json:"errorResultXdr"`
	LatestLedger   uint32 `json:"latestLedger"`
}

// TransactionResult is the getTransaction response.
type TransactionResult struct {
	Status        string `json:"status"`
	ResultXDR     string `json:"resultXdr"`
	ResultMetaXDR string `json:"resultMetaXdr"`
	ReturnValue   string `json:"returnValue"`
	Ledger        uint32 `json:"ledger"`
}

// Client is a minimal Stellar RPC client.
type Client struct {
	http *resty.Client
	url  string
	seq  atomic.Uint64
}

// ClientOption configures Client construction parameters.
type ClientOption func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = resty.NewWithClient(hc)
		}
	}
}

// WithRequestTimeout bounds each RPC round trip.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// NewClient targets the RPC endpoint at url.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{http: resty.New(), url: url}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetRetryCount(0).SetHeader("Content-Type", "application/json")
	return c
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	req := rpcRequest{JSONRPC: "2.0", ID: c.seq.Add(1), Method: method, Params: params}
	resp, err := c.http.R().SetContext(ctx).SetBody(req).Post(c.url)
	if err != nil {
		return errors.Wrapf(err, "rpc %s", method)
	}
	if !resp.IsSuccess() {
		return errors.Errorf("rpc %s: unexpected status %d", method, resp.StatusCode())
	}
	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return errors.Wrapf(err, "rpc %s: decode envelope", method)
	}
	if envelope.Error != nil {
		return errors.WithMessagef(envelope.Error, "rpc %s", method)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return errors.Wrapf(err, "rpc %s: decode result", method)
	}
	return nil
}

// SimulateTransaction dry-runs a base64 envelope.
func (c *Client) SimulateTransaction(ctx context.Context, txXDR string) (*SimulateResult, error) {
	var out SimulateResult
	if err := c.call(ctx, "simulateTransaction", map[string]string{"transaction": txXDR}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendTransaction submits a signed base64 envelope.
func (c *Client) SendTransaction(ctx context.Context, txXDR string) (*SendResult, error) {
	var out SendResult
	if err := c.call(ctx, "sendTransaction", map[string]string{"transaction": txXDR}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransaction looks up a submitted transaction by hash.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*TransactionResult, error) {
	var out TransactionResult
	if err := c.call(ctx, "getTransaction", map[string]string{"hash": hash}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
