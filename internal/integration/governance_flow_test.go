package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"govdash/internal/app"
	"govdash/internal/config"
	"govdash/internal/governance"
	"govdash/internal/journal"
	"govdash/internal/soroban"
)

// chain fakes Horizon and the RPC node closely enough for one execute_change round trip.
type chain struct {
	t       *testing.T
	mu      sync.Mutex
	ratio   uint32
	methods []string
	sent    *txnbuild.Transaction
}

func (c *chain) horizon(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(`{"sequence":"100"}`))
}

func (c *chain) rpc(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64            `json:"id"`
		Method string            `json:"method"`
		Params map[string]string `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.t.Errorf("decode rpc request: %v", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods = append(c.methods, req.Method)

	var result any
	switch req.Method {
	case "simulateTransaction":
		tx := c.parse(req.Params["transaction"])
		op := tx.Operations()[0].(*txnbuild.InvokeHostFunction)
		switch op.HostFunction.InvokeContract.FunctionName {
		case "minimum_collateralization_ratio":
			result = c.simulation(soroban.U32Arg(c.ratio))
		case "execute_change":
			result = c.simulation(op.HostFunction.InvokeContract.Args[1])
		}
	case "sendTransaction":
		c.sent = c.parse(req.Params["transaction"])
		c.ratio = uint32(*c.sent.Operations()[0].(*txnbuild.InvokeHostFunction).HostFunction.InvokeContract.Args[1].U32)
		result = map[string]any{"status": "PENDING", "hash": "c0ffee"}
	case "getTransaction":
		ret, _ := xdr.MarshalBase64(soroban.U32Arg(c.ratio))
		result = map[string]any{"status": "SUCCESS", "returnValue": ret, "ledger": 77}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func (c *chain) parse(envelope string) *txnbuild.Transaction {
	parsed, err := txnbuild.TransactionFromXDR(envelope)
	if err != nil {
		c.t.Fatalf("parse envelope: %v", err)
	}
	tx, ok := parsed.Transaction()
	if !ok {
		c.t.Fatalf("unexpected fee bump envelope")
	}
	return tx
}

func (c *chain) simulation(ret xdr.ScVal) map[string]any {
	data, _ := xdr.MarshalBase64(xdr.SorobanTransactionData{})
	val, _ := xdr.MarshalBase64(ret)
	return map[string]any{
		"transactionData": data,
		"minResourceFee":  "5000",
		"results":         []map[string]any{{"xdr": val, "auth": []string{}}},
		"latestLedger":    76,
	}
}

func contractID(t *testing.T, fill byte) string {
	t.Helper()
	id, err := strkey.Encode(strkey.VersionByteContract, bytes.Repeat([]byte{fill}, 32))
	if err != nil {
		t.Fatalf("encode contract id: %v", err)
	}
	return id
}

func TestGovernanceFlowExecutesAndReReads(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fake := &chain{t: t, ratio: 11000}
	horizonSrv := httptest.NewServer(http.HandlerFunc(fake.horizon))
	defer horizonSrv.Close()
	rpcSrv := httptest.NewServer(http.HandlerFunc(fake.rpc))
	defer rpcSrv.Close()

	signer := keypair.MustRandom()
	t.Setenv(config.EnvSecretKey, signer.Seed())

	cfg := &config.Config{
		App:        config.App{Name: "govdash-test", LogLevel: "info"},
		Network:    config.Network{HorizonURL: horizonSrv.URL, RPCURL: rpcSrv.URL, Passphrase: network.TestNetworkPassphrase, PollInterval: 1},
		Contracts:  config.Contracts{Governance: contractID(t, 7), XAsset: contractID(t, 8)},
		Dashboard:  config.Dashboard{JournalPath: filepath.Join(t.TempDir(), "journal.jsonl")},
		Governance: config.Governance{MinRatioBP: 10000, MaxRatioBP: 50000},
	}

	var buf bytes.Buffer
	a, err := app.New(cfg, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("app.New returned error: %v", err)
	}
	flow := a.NewFlow("it")

	v, err := flow.LoadRatio(ctx)
	if err != nil || v.RatioPercent != "110.00%" {
		t.Fatalf("expected initial ratio 110.00%%, got %q (%v)", v.RatioPercent, err)
	}

	v, err = flow.ExecuteChange(ctx, cfg.Contracts.XAsset, "15000")
	if err != nil {
		t.Fatalf("ExecuteChange returned error: %v", err)
	}
	if v.Execute.Phase != governance.Succeeded {
		t.Fatalf("expected execute to succeed, got %s: %s", v.Execute.Phase, v.Execute.Message)
	}
	if v.Execute.Message != "Successfully updated! Returned value: 15000 (150%)" {
		t.Fatalf("unexpected execute message %q", v.Execute.Message)
	}
	if v.RatioPercent != "150.00%" || v.Refresh.Phase != governance.Succeeded {
		t.Fatalf("expected re-read ratio 150.00%%, got %q", v.RatioPercent)
	}

	fake.mu.Lock()
	sent := fake.sent
	methods := strings.Join(fake.methods, ",")
	fake.mu.Unlock()
	want := "simulateTransaction,simulateTransaction,sendTransaction,getTransaction,simulateTransaction"
	if methods != want {
		t.Fatalf("unexpected rpc sequence %s", methods)
	}
	if sent.SequenceNumber() != 101 {
		t.Fatalf("expected sequence 101 from horizon, got %d", sent.SequenceNumber())
	}
	if sent.SourceAccount().AccountID != signer.Address() {
		t.Fatalf("expected wallet as source account")
	}
	hash, err := sent.Hash(network.TestNetworkPassphrase)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(sent.Signatures()) != 1 || signer.Verify(hash[:], sent.Signatures()[0].Signature) != nil {
		t.Fatalf("expected envelope signed by the wallet")
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	entries, err := journal.ReadFile(cfg.Dashboard.JournalPath)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one journal entry, got %d (%v)", len(entries), err)
	}
	if entries[0].Outcome != journal.OutcomeSucceeded || entries[0].TxHash != "c0ffee" {
		t.Fatalf("unexpected journal entry %+v", entries[0])
	}
	if !strings.Contains(buf.String(), "change executed") {
		t.Fatalf("expected log output to include change executed, got %s", buf.String())
	}
}

func TestGovernanceFlowRejectsOutOfBounds(t *testing.T) {
	fake := &chain{t: t, ratio: 11000}
	rpcSrv := httptest.NewServer(http.HandlerFunc(fake.rpc))
	defer rpcSrv.Close()
	t.Setenv(config.EnvSecretKey, keypair.MustRandom().Seed())

	a, err := app.New(&config.Config{
		Network:    config.Network{RPCURL: rpcSrv.URL, Passphrase: network.TestNetworkPassphrase},
		Contracts:  config.Contracts{Governance: contractID(t, 7), XAsset: contractID(t, 8)},
		Governance: config.Governance{MinRatioBP: 10000, MaxRatioBP: 50000},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("app.New returned error: %v", err)
	}
	defer a.Close()

	v, err := a.NewFlow("it").ExecuteChange(context.Background(), contractID(t, 8), "9000")
	if err != nil {
		t.Fatalf("ExecuteChange returned error: %v", err)
	}
	if v.Execute.Phase != governance.Failed || !strings.Contains(v.Execute.Message, "outside the allowed range") {
		t.Fatalf("expected bounds rejection, got %+v", v.Execute)
	}
	if len(fake.methods) != 0 {
		t.Fatalf("expected no rpc calls, got %v", fake.methods)
	}
}
