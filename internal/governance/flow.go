// Package governance drives the ratio read and change execution a dashboard session performs.
package governance

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"govdash/internal/journal"
	"govdash/internal/metrics"
	"govdash/internal/risk"
	"govdash/internal/soroban"
	"govdash/internal/wallet"
)

// ErrActionPending rejects a trigger while the same action is still running.
var ErrActionPending = errors.New("action already in progress")

// ValidationError is a precondition failure detected before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// RatioReader reads the current minimum collateralization ratio.
type RatioReader interface {
	ContractID() string
	MinimumCollateralizationRatio(ctx context.Context, source string) (soroban.Raw, error)
}

// ChangeExecutor assembles governance changes.
type ChangeExecutor interface {
	ContractID() string
	ExecuteChange(ctx context.Context, source, target string, newValue uint32) (*soroban.Tx, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	XAsset     RatioReader
	Governance ChangeExecutor
	Wallet     wallet.Wallet
	Limits     risk.Limits
	Journal    journal.Recorder
	Log        zerolog.Logger
	// Notify, when set, receives a snapshot after every state transition.
	Notify func(session string, v View)
}

// Flow holds one session's form state. Methods are safe for concurrent use; network calls run
// without holding the lock.
type Flow struct {
	deps    Deps
	session string
	log     zerolog.Logger

	mu    sync.Mutex
	state FormState
}

// NewFlow starts a session with the target defaulted to the xasset contract.
func NewFlow(deps Deps, session string) *Flow {
	f := &Flow{
		deps:    deps,
		session: session,
		log:     deps.Log.With().Str("session", session).Logger(),
	}
	if deps.XAsset != nil {
		f.state.Target = deps.XAsset.ContractID()
	}
	return f
}

// Session returns the id this flow was created for.
func (f *Flow) Session() string { return f.session }

// View snapshots the current state.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *Flow) viewLocked() View {
	s := f.state
	v := View{
		Refresh:  s.Refresh,
		Execute:  s.Execute,
		Alert:    s.alert(),
		Target:   s.Target,
		NewValue: s.NewValue,
	}
	if s.RatioBP != nil {
		bp := *s.RatioBP
		v.RatioBP = &bp
		v.RatioPercent = FormatPercent(bp)
	}
	if f.deps.XAsset != nil {
		v.XAssetContract = f.deps.XAsset.ContractID()
	}
	if f.deps.Governance != nil {
		v.GovernanceContract = f.deps.Governance.ContractID()
	}
	if f.deps.Wallet != nil {
		v.Wallet = f.deps.Wallet.Address()
		v.CanSign = f.deps.Wallet.Signer() != nil
	}
	return v
}

func (f *Flow) begin(a Action) error {
	f.mu.Lock()
	st := f.state.action(a)
	if st.Phase == Pending {
		f.mu.Unlock()
		return ErrActionPending
	}
	*st = ActionState{Phase: Pending}
	v := f.viewLocked()
	f.mu.Unlock()
	f.notify(v)
	return nil
}

// finish moves a to its terminal phase and applies update under the lock.
func (f *Flow) finish(a Action, phase Phase, msg string, update func(*FormState)) View {
	f.mu.Lock()
	if update != nil {
		update(&f.state)
	}
	*f.state.action(a) = ActionState{Phase: phase, Message: msg}
	f.state.last = a
	v := f.viewLocked()
	f.mu.Unlock()

	outcome := "succeeded"
	if phase == Failed {
		outcome = "failed"
	}
	metrics.GovernanceActions.WithLabelValues(string(a), outcome).Inc()
	f.notify(v)
	return v
}

// fail records a failure that was detected before the action went pending.
func (f *Flow) fail(a Action, msg string, update func(*FormState)) (View, error) {
	f.mu.Lock()
	pending := f.state.action(a).Phase == Pending
	f.mu.Unlock()
	if pending {
		return f.View(), ErrActionPending
	}
	return f.finish(a, Failed, msg, update), nil
}

func (f *Flow) notify(v View) {
	if f.deps.Notify != nil {
		f.deps.Notify(f.session, v)
	}
}

func (f *Flow) source() string {
	if f.deps.Wallet == nil {
		return ""
	}
	return f.deps.Wallet.Address()
}

// LoadRatio reads the ratio and records the outcome. The only error returned is ErrActionPending;
// every other failure lands in the view.
func (f *Flow) LoadRatio(ctx context.Context) (View, error) {
	if f.deps.XAsset == nil || f.deps.XAsset.ContractID() == "" {
		return f.fail(ActionRefresh, "XAsset contract ID not available", nil)
	}
	if err := f.begin(ActionRefresh); err != nil {
		return f.View(), err
	}

	bp, msg, err := f.readRatio(ctx)
	if err != nil {
		f.log.Warn().Err(err).Msg("ratio read failed")
		return f.finish(ActionRefresh, Failed, err.Error(), nil), nil
	}
	metrics.CollateralRatio.Set(float64(bp))
	f.log.Info().Uint32("ratio_bp", bp).Msg("ratio loaded")
	return f.finish(ActionRefresh, Succeeded, msg, func(s *FormState) { s.RatioBP = &bp }), nil
}

func (f *Flow) readRatio(ctx context.Context) (uint32, string, error) {
	raw, err := f.deps.XAsset.MinimumCollateralizationRatio(ctx, f.source())
	if err != nil {
		return 0, "", errors.WithMessage(err, "Failed to load collateral ratio")
	}
	res, err := soroban.Decode(raw)
	if err != nil {
		return 0, "", err
	}
	if res.IsErr() {
		return 0, "", errors.Errorf("Error: %s", res.UnwrapErr())
	}
	v := res.Unwrap()
	if v > math.MaxUint32 {
		return 0, "", soroban.ErrUnexpectedFormat
	}
	bp := uint32(v)
	return bp, fmt.Sprintf("Current collateral ratio: %s%% (%d basis points)", basisPointsToPercent(uint64(bp)), bp), nil
}

// ExecuteChange validates the form, submits execute_change, and re-reads the ratio after a
// successful submission. The only error returned is ErrActionPending.
func (f *Flow) ExecuteChange(ctx context.Context, target, newValue string) (View, error) {
	target = strings.TrimSpace(target)
	newValue = strings.TrimSpace(newValue)
	setForm := func(s *FormState) {
		s.Target = target
		s.NewValue = newValue
	}

	value, err := f.validate(target, newValue)
	if err != nil {
		v, ferr := f.fail(ActionExecute, err.Error(), setForm)
		if ferr == nil {
			f.record(journal.Entry{Target: target, Value: newValue, Outcome: journal.OutcomeRejected, Message: err.Error()})
		}
		return v, ferr
	}
	if err := f.begin(ActionExecute); err != nil {
		return f.View(), err
	}
	f.mu.Lock()
	setForm(&f.state)
	f.mu.Unlock()

	returned, hash, err := f.submit(ctx, target, value)
	if err != nil {
		f.log.Warn().Err(err).Str("target", target).Uint32("value", value).Msg("execute change failed")
		f.record(journal.Entry{Target: target, Value: newValue, TxHash: hash, Outcome: journal.OutcomeFailed, Message: err.Error()})
		return f.finish(ActionExecute, Failed, err.Error(), nil), nil
	}

	msg := fmt.Sprintf("Successfully updated! Returned value: %d (%s%%)", returned, basisPointsToPercent(returned))
	f.log.Info().Str("target", target).Uint64("returned", returned).Str("hash", hash).Msg("change executed")
	f.record(journal.Entry{Target: target, Value: newValue, TxHash: hash, Outcome: journal.OutcomeSucceeded, Message: msg})
	f.finish(ActionExecute, Succeeded, msg, nil)

	// A refresh already in flight will report the new value itself.
	v, _ := f.LoadRatio(ctx)
	return v, nil
}

func (f *Flow) validate(target, newValue string) (uint32, error) {
	if f.deps.Wallet == nil || f.deps.Wallet.Address() == "" {
		return 0, invalid("Please connect your wallet first")
	}
	if target == "" {
		return 0, invalid("Please enter a target contract ID")
	}
	n, err := strconv.ParseFloat(newValue, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, invalid("Please enter a valid positive number for new value")
	}
	if f.deps.Wallet.Signer() == nil {
		return 0, invalid(soroban.ErrNoSigner.Error())
	}
	if n != math.Trunc(n) || n > math.MaxUint32 {
		return 0, invalid("New value must be a whole number of basis points (max 4294967295)")
	}
	value := uint32(n)
	if !f.deps.Limits.Allow(value) {
		return 0, invalid(fmt.Sprintf("New value %d is outside the allowed range %s basis points", value, f.deps.Limits.Describe()))
	}
	return value, nil
}

func (f *Flow) submit(ctx context.Context, target string, value uint32) (uint64, string, error) {
	if f.deps.Governance == nil {
		return 0, "", errors.New("Failed to execute change: governance contract not configured")
	}
	tx, err := f.deps.Governance.ExecuteChange(ctx, f.source(), target, value)
	if err != nil {
		return 0, "", errors.WithMessage(err, "Failed to execute change")
	}
	raw, err := tx.SignAndSend(ctx, f.deps.Wallet.Signer())
	if err != nil {
		return 0, "", errors.WithMessage(err, "Failed to execute change")
	}
	res, err := soroban.Decode(raw)
	if err != nil {
		return 0, raw.Hash, err
	}
	if res.IsErr() {
		return 0, raw.Hash, errors.Errorf("Error: %s", res.UnwrapErr())
	}
	return res.Unwrap(), raw.Hash, nil
}

func (f *Flow) record(e journal.Entry) {
	if f.deps.Journal == nil {
		return
	}
	e.Session = f.session
	e.Action = string(ActionExecute)
	e.Source = f.source()
	f.deps.Journal.Record(journal.Stamp(e))
}

func basisPointsToPercent(bp uint64) string {
	return strconv.FormatFloat(float64(bp)/100, 'f', -1, 64)
}
