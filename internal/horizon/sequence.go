// Package horizon resolves the sequence number an account's next transaction must carry.
package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"

	"govdash/internal/metrics"
)

// State is the non-error outcome of a lookup.
type State int

const (
	// StateIdle means the query was disabled and nothing was fetched.
	StateIdle State = iota
	// StateFound carries the next sequence number.
	StateFound
	// StateAccountMissing is the expected outcome for unfunded accounts.
	StateAccountMissing
)

func (s State) String() string {
	switch s {
	case StateFound:
		return "found"
	case StateAccountMissing:
		return "account_missing"
	default:
		return "idle"
	}
}

// Query describes one sequence lookup.
type Query struct {
	PublicKey  string
	HorizonURL string
	Headers    map[string]string
	// UniqueID disambiguates cache entries for the same key.
	UniqueID string
	Enabled  bool
}

// Result is a completed lookup. NextSequence is set only for StateFound.
type Result struct {
	State        State
	AccountID    string
	NextSequence string
	Message      string
}

// Value returns the next sequence, or ErrAccountNotFound when the account does not exist.
func (r Result) Value() (string, error) {
	switch r.State {
	case StateFound:
		return r.NextSequence, nil
	case StateAccountMissing:
		return "", ErrAccountNotFound
	default:
		return "", errors.New("sequence query is disabled")
	}
}

// Fetcher is satisfied by Client and Cache.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (Result, error)
}

// Client performs sequence lookups against Horizon's /accounts endpoint.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// Option configures Client construction parameters.
type Option func(*Client)

// WithTimeout bounds every lookup. Zero leaves the transport default in place.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithHTTPClient swaps the underlying transport (tests use httptest clients).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = resty.NewWithClient(hc)
		}
	}
}

// NewClient constructs a lookup client that never retries.
func NewClient(log zerolog.Logger, opts ...Option) *Client {
	c := &Client{http: resty.New(), log: log}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetRetryCount(0)
	return c
}

type accountResponse struct {
	Sequence string `json:"sequence"`
	Status   *int   `json:"status"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Extras   struct {
		Reason string `json:"reason"`
	} `json:"extras"`
}

func (r *accountResponse) reason() string {
	if r.Extras.Reason != "" {
		return r.Extras.Reason
	}
	return r.Detail
}

// Fetch resolves q.PublicKey to its base account and returns currentSequence+1.
func (c *Client) Fetch(ctx context.Context, q Query) (Result, error) {
	if !q.Enabled {
		return Result{State: StateIdle}, nil
	}
	res, err := c.fetch(ctx, q)
	if err != nil {
		err = normalize(err)
		var typed *Error
		if errors.As(err, &typed) {
			metrics.SequenceFetches.WithLabelValues(string(typed.Kind)).Inc()
		}
		c.log.Warn().Err(err).Str("account", q.PublicKey).Msg("sequence lookup failed")
		return Result{}, err
	}
	metrics.SequenceFetches.WithLabelValues(res.State.String()).Inc()
	c.log.Debug().
		Str("account", res.AccountID).
		Str("state", res.State.String()).
		Str("next", res.NextSequence).
		Msg("sequence lookup")
	return res, nil
}

func (c *Client) fetch(ctx context.Context, q Query) (Result, error) {
	accountID, err := BaseAccountID(q.PublicKey)
	if err != nil {
		return Result{}, err
	}
	endpoint := fmt.Sprintf("%s/accounts/%s", strings.TrimSuffix(q.HorizonURL, "/"), url.PathEscape(accountID))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(q.Headers).
		Get(endpoint)
	if err != nil {
		return Result{}, err
	}

	status := resp.StatusCode()
	if status == http.StatusNotFound {
		return Result{State: StateAccountMissing, AccountID: accountID, Message: AccountNotFoundMessage}, nil
	}
	if !resp.IsSuccess() {
		var body accountResponse
		_ = json.Unmarshal(resp.Body(), &body)
		msg := body.reason()
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
		}
		return Result{}, requestFailed(status, msg)
	}

	var body accountResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Result{}, errors.Wrap(err, "decode account response")
	}
	if body.Status != nil {
		embedded := *body.Status
		if embedded == 0 {
			return Result{}, serverUnreachable(q.HorizonURL)
		}
		// Embedded statuses are HTTP codes; only the 4xx range is a client error.
		if embedded >= 400 && embedded < 500 {
			if body.Title == "Resource Missing" {
				return Result{State: StateAccountMissing, AccountID: accountID, Message: AccountNotFoundMessage}, nil
			}
			msg := body.reason()
			if msg == "" {
				msg = genericFailureMessage
			}
			return Result{}, requestFailed(embedded, msg)
		}
	}

	next, err := incrementSequence(body.Sequence)
	if err != nil {
		return Result{}, err
	}
	return Result{State: StateFound, AccountID: accountID, NextSequence: next}, nil
}

func incrementSequence(raw string) (string, error) {
	seq, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return "", errors.Errorf("invalid sequence %q", raw)
	}
	return seq.Add(seq, big.NewInt(1)).String(), nil
}

// BaseAccountID maps a muxed (M...) address to its underlying G... account and returns any
// other input unchanged.
func BaseAccountID(publicKey string) (string, error) {
	if !strkey.IsValidMuxedAccountEd25519PublicKey(publicKey) {
		return publicKey, nil
	}
	muxed, err := xdr.AddressToMuxedAccount(publicKey)
	if err != nil {
		return "", errors.Wrap(err, "decode muxed account")
	}
	accountID := muxed.ToAccountId()
	return accountID.Address(), nil
}
