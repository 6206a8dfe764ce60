package soroban

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// Tx is an assembled, unsigned invocation. A Tx whose simulation already failed carries the
// failure and submits nothing.
type Tx struct {
	invoker *Invoker
	call    Call
	tx      *txnbuild.Transaction
	failure string
}

// XDR returns the unsigned base64 envelope.
func (t *Tx) XDR() (string, error) {
	if t.tx == nil {
		return "", errors.New("transaction was not assembled")
	}
	return t.tx.Base64()
}

// SignAndSend has sign sign the envelope, submits it, and waits for the node to apply it.
func (t *Tx) SignAndSend(ctx context.Context, sign SignFunc) (Raw, error) {
	if t.failure != "" {
		return Raw{Failure: t.failure}, nil
	}
	if sign == nil {
		return Raw{}, ErrNoSigner
	}
	unsigned, err := t.XDR()
	if err != nil {
		return Raw{}, errors.Wrap(err, "encode transaction")
	}
	signed, err := sign(ctx, unsigned, t.invoker.passphrase)
	if err != nil {
		return Raw{}, errors.WithMessage(err, "sign transaction")
	}

	node := t.invoker.node
	sent, err := node.SendTransaction(ctx, signed)
	if err != nil {
		return Raw{}, err
	}
	log := t.invoker.log.With().Str("hash", sent.Hash).Str("fn", t.call.Function).Logger()
	switch sent.Status {
	case SendStatusPending, SendStatusDuplicate:
	case SendStatusError:
		return Raw{Hash: sent.Hash, Failure: rejectionReason(sent.ErrorResultXDR)}, nil
	default:
		return Raw{}, errors.Errorf("transaction not accepted: %s", sent.Status)
	}
	log.Info().Str("status", sent.Status).Msg("transaction submitted")

	ticker := time.NewTicker(t.invoker.pollInterval)
	defer ticker.Stop()
	for {
		res, err := node.GetTransaction(ctx, sent.Hash)
		if err != nil {
			return Raw{}, err
		}
		switch res.Status {
		case TxStatusSuccess:
			val, err := returnValue(res)
			if err != nil {
				return Raw{}, err
			}
			log.Info().Uint32("ledger", res.Ledger).Msg("transaction applied")
			return Raw{Hash: sent.Hash, Value: val}, nil
		case TxStatusFailed:
			log.Warn().Uint32("ledger", res.Ledger).Msg("transaction failed")
			return Raw{Hash: sent.Hash, Failure: failedReason(res.ResultXDR)}, nil
		}
		select {
		case <-ctx.Done():
			return Raw{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func returnValue(res *TransactionResult) (*xdr.ScVal, error) {
	if res.ReturnValue != "" {
		return decodeScVal(res.ReturnValue)
	}
	var meta xdr.TransactionMeta
	if err := xdr.SafeUnmarshalBase64(res.ResultMetaXDR, &meta); err != nil {
		return nil, errors.Wrap(err, "decode result meta")
	}
	v3, ok := meta.GetV3()
	if !ok || v3.SorobanMeta == nil {
		return nil, errors.New("result meta carries no return value")
	}
	val := v3.SorobanMeta.ReturnValue
	return &val, nil
}

func rejectionReason(resultXDR string) string {
	return "transaction rejected: " + resultCode(resultXDR)
}

func failedReason(resultXDR string) string {
	return "transaction failed: " + resultCode(resultXDR)
}

func resultCode(resultXDR string) string {
	var result xdr.TransactionResult
	if resultXDR == "" || xdr.SafeUnmarshalBase64(resultXDR, &result) != nil {
		return "unknown result"
	}
	return result.Result.Code.String()
}
