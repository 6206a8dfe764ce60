package soroban

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// SimulationAccount stands in as the source of read-only simulations when no wallet is connected.
const SimulationAccount = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"

const (
	defaultPollInterval = time.Second
	txTimeoutSeconds    = 300
)

// ErrNoSigner is returned by SignAndSend when no signing capability was supplied.
var ErrNoSigner = errors.New("Wallet signer not available")

// SignFunc signs a base64 transaction envelope for the given network and returns the signed envelope.
type SignFunc func(ctx context.Context, txXDR, networkPassphrase string) (string, error)

// SequenceSource supplies the sequence number a new transaction from account must use.
type SequenceSource interface {
	NextSequence(ctx context.Context, accountID string) (int64, error)
}

// Node is the RPC surface the invoker needs; *Client satisfies it.
type Node interface {
	SimulateTransaction(ctx context.Context, txXDR string) (*SimulateResult, error)
	SendTransaction(ctx context.Context, txXDR string) (*SendResult, error)
	GetTransaction(ctx context.Context, hash string) (*TransactionResult, error)
}

// Invoker builds contract invocations, simulates them, and submits signed ones.
type Invoker struct {
	node         Node
	sequences    SequenceSource
	passphrase   string
	pollInterval time.Duration
	log          zerolog.Logger
}

// InvokerOption configures Invoker construction parameters.
type InvokerOption func(*Invoker)

// WithPollInterval overrides the getTransaction polling cadence.
func WithPollInterval(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		if d > 0 {
			i.pollInterval = d
		}
	}
}

// NewInvoker wires an RPC node, a sequence source for write transactions, and the network passphrase.
func NewInvoker(node Node, sequences SequenceSource, passphrase string, log zerolog.Logger, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		node:         node,
		sequences:    sequences,
		passphrase:   passphrase,
		pollInterval: defaultPollInterval,
		log:          log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Passphrase is the network passphrase transactions are built for.
func (i *Invoker) Passphrase() string { return i.passphrase }

// Call describes a single contract function invocation.
type Call struct {
	ContractID string
	Function   string
	Args       []xdr.ScVal
}

func (c Call) operation() (*txnbuild.InvokeHostFunction, error) {
	addr, err := ContractAddress(c.ContractID)
	if err != nil {
		return nil, err
	}
	return &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: addr,
				FunctionName:    xdr.ScSymbol(c.Function),
				Args:            c.Args,
			},
		},
	}, nil
}

// Simulate runs a read-only call and returns its raw outcome. source may be empty.
func (i *Invoker) Simulate(ctx context.Context, source string, call Call) (Raw, error) {
	if source == "" {
		source = SimulationAccount
	}
	op, err := call.operation()
	if err != nil {
		return Raw{}, err
	}
	tx, err := buildTx(&txnbuild.SimpleAccount{AccountID: source, Sequence: 0}, op, int64(txnbuild.MinBaseFee))
	if err != nil {
		return Raw{}, err
	}
	envelope, err := tx.Base64()
	if err != nil {
		return Raw{}, errors.Wrap(err, "encode transaction")
	}
	sim, err := i.node.SimulateTransaction(ctx, envelope)
	if err != nil {
		return Raw{}, err
	}
	if sim.Error != "" {
		return Raw{Failure: sim.Error}, nil
	}
	if len(sim.Results) == 0 {
		return Raw{}, errors.New("simulation returned no results")
	}
	val, err := decodeScVal(sim.Results[0].XDR)
	if err != nil {
		return Raw{}, err
	}
	i.log.Debug().Str("contract", call.ContractID).Str("fn", call.Function).Msg("simulated call")
	return Raw{Value: val}, nil
}

// Prepare builds a write invocation from source, simulates it, and assembles the footprint,
// authorization entries, and resource fee into a transaction ready to sign.
func (i *Invoker) Prepare(ctx context.Context, source string, call Call) (*Tx, error) {
	if i.sequences == nil {
		return nil, errors.New("no sequence source configured")
	}
	seq, err := i.sequences.NextSequence(ctx, source)
	if err != nil {
		return nil, errors.WithMessage(err, "load source account")
	}
	account := &txnbuild.SimpleAccount{AccountID: source, Sequence: seq}

	op, err := call.operation()
	if err != nil {
		return nil, err
	}
	draft, err := buildTx(account, op, int64(txnbuild.MinBaseFee))
	if err != nil {
		return nil, err
	}
	envelope, err := draft.Base64()
	if err != nil {
		return nil, errors.Wrap(err, "encode transaction")
	}
	sim, err := i.node.SimulateTransaction(ctx, envelope)
	if err != nil {
		return nil, err
	}
	if sim.Error != "" {
		return &Tx{invoker: i, call: call, failure: sim.Error}, nil
	}
	if len(sim.Results) == 0 {
		return nil, errors.New("simulation returned no results")
	}

	var data xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(sim.TransactionData, &data); err != nil {
		return nil, errors.Wrap(err, "decode transaction data")
	}
	auth := make([]xdr.SorobanAuthorizationEntry, 0, len(sim.Results[0].Auth))
	for _, entry := range sim.Results[0].Auth {
		var decoded xdr.SorobanAuthorizationEntry
		if err := xdr.SafeUnmarshalBase64(entry, &decoded); err != nil {
			return nil, errors.Wrap(err, "decode auth entry")
		}
		auth = append(auth, decoded)
	}
	resourceFee, err := strconv.ParseInt(sim.MinResourceFee, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "parse resource fee %q", sim.MinResourceFee)
	}

	op.Auth = auth
	op.Ext = xdr.TransactionExt{V: 1, SorobanData: &data}
	tx, err := buildTx(account, op, int64(txnbuild.MinBaseFee)+resourceFee)
	if err != nil {
		return nil, err
	}
	return &Tx{invoker: i, call: call, tx: tx}, nil
}

func buildTx(source txnbuild.Account, op *txnbuild.InvokeHostFunction, fee int64) (*txnbuild.Transaction, error) {
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        source,
		IncrementSequenceNum: false,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              fee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(txTimeoutSeconds)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "build transaction")
	}
	return tx, nil
}

// ContractAddress converts a C... strkey into an ScAddress.
func ContractAddress(contractID string) (xdr.ScAddress, error) {
	raw, err := strkey.Decode(strkey.VersionByteContract, contractID)
	if err != nil {
		return xdr.ScAddress{}, errors.Wrapf(err, "invalid contract id %q", contractID)
	}
	var id xdr.Hash
	copy(id[:], raw)
	return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &id}, nil
}

// AddressArg wraps a contract id as an ScVal argument.
func AddressArg(contractID string) (xdr.ScVal, error) {
	addr, err := ContractAddress(contractID)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: &addr}, nil
}

// U32Arg wraps v as an ScVal argument.
func U32Arg(v uint32) xdr.ScVal {
	u := xdr.Uint32(v)
	return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &u}
}

func decodeScVal(b64 string) (*xdr.ScVal, error) {
	var val xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(b64, &val); err != nil {
		return nil, errors.Wrap(err, "decode return value")
	}
	return &val, nil
}
