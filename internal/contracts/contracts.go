// Package contracts exposes typed clients for the deployed governance and xasset contracts.
package contracts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"

	"govdash/internal/soroban"
)

const (
	fnMinimumCollateralizationRatio = "minimum_collateralization_ratio"
	fnExecuteChange                 = "execute_change"
)

// Invoker is the soroban surface the clients call through; *soroban.Invoker satisfies it.
type Invoker interface {
	Simulate(ctx context.Context, source string, call soroban.Call) (soroban.Raw, error)
	Prepare(ctx context.Context, source string, call soroban.Call) (*soroban.Tx, error)
}

// XAsset is the asset contract holding protocol parameters.
type XAsset struct {
	id      string
	invoker Invoker
}

func NewXAsset(contractID string, invoker Invoker) *XAsset {
	return &XAsset{id: contractID, invoker: invoker}
}

func (x *XAsset) ContractID() string { return x.id }

// MinimumCollateralizationRatio reads the ratio in basis points. Read-only, no auth required.
func (x *XAsset) MinimumCollateralizationRatio(ctx context.Context, source string) (soroban.Raw, error) {
	return x.invoker.Simulate(ctx, source, soroban.Call{
		ContractID: x.id,
		Function:   fnMinimumCollateralizationRatio,
	})
}

// Governance is the contract authorized to change other contracts' parameters.
type Governance struct {
	id      string
	invoker Invoker
}

func NewGovernance(contractID string, invoker Invoker) *Governance {
	return &Governance{id: contractID, invoker: invoker}
}

func (g *Governance) ContractID() string { return g.id }

// ExecuteChange assembles execute_change(contract, new_value) from source. The returned Tx
// still needs signing.
func (g *Governance) ExecuteChange(ctx context.Context, source, target string, newValue uint32) (*soroban.Tx, error) {
	if g.id == "" {
		return nil, errors.New("governance contract ID not configured")
	}
	addr, err := soroban.AddressArg(target)
	if err != nil {
		return nil, err
	}
	return g.invoker.Prepare(ctx, source, soroban.Call{
		ContractID: g.id,
		Function:   fnExecuteChange,
		Args:       []xdr.ScVal{addr, soroban.U32Arg(newValue)},
	})
}
