package soroban

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	mu        sync.Mutex
	sim       *SimulateResult
	send      *SendResult
	txs       []*TransactionResult
	simulated []string
	sent      []string
	polls     int
}

func (n *fakeNode) SimulateTransaction(ctx context.Context, txXDR string) (*SimulateResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.simulated = append(n.simulated, txXDR)
	return n.sim, nil
}

func (n *fakeNode) SendTransaction(ctx context.Context, txXDR string) (*SendResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, txXDR)
	return n.send, nil
}

func (n *fakeNode) GetTransaction(ctx context.Context, hash string) (*TransactionResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	res := n.txs[n.polls]
	if n.polls < len(n.txs)-1 {
		n.polls++
	}
	return res, nil
}

type fixedSequence int64

func (s fixedSequence) NextSequence(ctx context.Context, accountID string) (int64, error) {
	return int64(s), nil
}

func testContractID(t *testing.T, fill byte) string {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = fill
	}
	id, err := strkey.Encode(strkey.VersionByteContract, raw)
	require.NoError(t, err)
	return id
}

func scValB64(t *testing.T, v xdr.ScVal) string {
	t.Helper()
	s, err := xdr.MarshalBase64(v)
	require.NoError(t, err)
	return s
}

func simulationOK(t *testing.T, ret xdr.ScVal, fee string) *SimulateResult {
	t.Helper()
	data, err := xdr.MarshalBase64(xdr.SorobanTransactionData{})
	require.NoError(t, err)
	sim := &SimulateResult{TransactionData: data, MinResourceFee: fee}
	sim.Results = append(sim.Results, struct {
		Auth []string `json:"auth"`
		XDR  string   `json:"xdr"`
	}{XDR: scValB64(t, ret)})
	return sim
}

func TestSimulateReturnsValue(t *testing.T) {
	node := &fakeNode{sim: simulationOK(t, U32Arg(11000), "0")}
	inv := NewInvoker(node, nil, "Test SDF Network ; September 2015", zerolog.Nop())

	raw, err := inv.Simulate(context.Background(), "", Call{ContractID: testContractID(t, 1), Function: "minimum_collateralization_ratio"})
	require.NoError(t, err)
	require.NotNil(t, raw.Value)
	assert.Equal(t, xdr.Uint32(11000), *raw.Value.U32)

	require.Len(t, node.simulated, 1)
	parsed, err := txnbuild.TransactionFromXDR(node.simulated[0])
	require.NoError(t, err)
	tx, ok := parsed.Transaction()
	require.True(t, ok)
	assert.Equal(t, SimulationAccount, tx.SourceAccount().AccountID)
}

func TestSimulateSurfacesFailure(t *testing.T) {
	node := &fakeNode{sim: &SimulateResult{Error: "HostError: Error(Contract, #4)"}}
	inv := NewInvoker(node, nil, "Test SDF Network ; September 2015", zerolog.Nop())

	raw, err := inv.Simulate(context.Background(), "", Call{ContractID: testContractID(t, 1), Function: "minimum_collateralization_ratio"})
	require.NoError(t, err)
	assert.Nil(t, raw.Value)
	assert.Contains(t, raw.Failure, "#4")
}

func TestSimulateRejectsBadContractID(t *testing.T) {
	inv := NewInvoker(&fakeNode{}, nil, "Test SDF Network ; September 2015", zerolog.Nop())
	_, err := inv.Simulate(context.Background(), "", Call{ContractID: "nope", Function: "x"})
	require.Error(t, err)
}

func TestPrepareSignAndSend(t *testing.T) {
	source := keypair.MustRandom()
	node := &fakeNode{
		sim:  simulationOK(t, U32Arg(15000), "4200"),
		send: &SendResult{Status: SendStatusPending, Hash: "abc123"},
		txs: []*TransactionResult{
			{Status: TxStatusNotFound},
			{Status: TxStatusSuccess, ReturnValue: scValB64(t, U32Arg(15000)), Ledger: 77},
		},
	}
	inv := NewInvoker(node, fixedSequence(101), "Test SDF Network ; September 2015", zerolog.Nop(), WithPollInterval(time.Millisecond))

	target, err := AddressArg(testContractID(t, 2))
	require.NoError(t, err)
	tx, err := inv.Prepare(context.Background(), source.Address(), Call{
		ContractID: testContractID(t, 1),
		Function:   "execute_change",
		Args:       []xdr.ScVal{target, U32Arg(15000)},
	})
	require.NoError(t, err)

	var signedFor string
	raw, err := tx.SignAndSend(context.Background(), func(ctx context.Context, txXDR, passphrase string) (string, error) {
		signedFor = passphrase
		parsed, err := txnbuild.TransactionFromXDR(txXDR)
		require.NoError(t, err)
		unsigned, ok := parsed.Transaction()
		require.True(t, ok)
		assert.Equal(t, int64(101), unsigned.SequenceNumber())
		assert.Equal(t, int64(txnbuild.MinBaseFee)+4200, unsigned.BaseFee())
		signed, err := unsigned.Sign(passphrase, source)
		require.NoError(t, err)
		return signed.Base64()
	})
	require.NoError(t, err)
	assert.Equal(t, "Test SDF Network ; September 2015", signedFor)
	assert.Equal(t, "abc123", raw.Hash)
	require.NotNil(t, raw.Value)
	assert.Equal(t, xdr.Uint32(15000), *raw.Value.U32)
	assert.Len(t, node.sent, 1)
}

func TestSignAndSendWithoutSigner(t *testing.T) {
	node := &fakeNode{sim: simulationOK(t, U32Arg(1), "0")}
	inv := NewInvoker(node, fixedSequence(1), "Test SDF Network ; September 2015", zerolog.Nop())

	tx, err := inv.Prepare(context.Background(), keypair.MustRandom().Address(), Call{ContractID: testContractID(t, 1), Function: "execute_change"})
	require.NoError(t, err)
	_, err = tx.SignAndSend(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSigner)
	assert.Empty(t, node.sent)
}

func TestPrepareSimulationFailureSkipsSubmission(t *testing.T) {
	node := &fakeNode{sim: &SimulateResult{Error: "HostError: Error(Auth, InvalidAction)"}}
	inv := NewInvoker(node, fixedSequence(1), "Test SDF Network ; September 2015", zerolog.Nop())

	tx, err := inv.Prepare(context.Background(), keypair.MustRandom().Address(), Call{ContractID: testContractID(t, 1), Function: "execute_change"})
	require.NoError(t, err)
	raw, err := tx.SignAndSend(context.Background(), func(ctx context.Context, txXDR, passphrase string) (string, error) {
		return "", errors.New("must not be called")
	})
	require.NoError(t, err)
	assert.Contains(t, raw.Failure, "InvalidAction")
	assert.Empty(t, node.sent)
}

func TestSignAndSendRejected(t *testing.T) {
	node := &fakeNode{
		sim:  simulationOK(t, U32Arg(1), "0"),
		send: &SendResult{Status: SendStatusError, Hash: "deadbeef"},
	}
	inv := NewInvoker(node, fixedSequence(1), "Test SDF Network ; September 2015", zerolog.Nop())

	tx, err := inv.Prepare(context.Background(), keypair.MustRandom().Address(), Call{ContractID: testContractID(t, 1), Function: "execute_change"})
	require.NoError(t, err)
	raw, err := tx.SignAndSend(context.Background(), func(ctx context.Context, txXDR, passphrase string) (string, error) {
		return txXDR, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "transaction rejected: unknown result", raw.Failure)
	assert.Equal(t, "deadbeef", raw.Hash)
}
