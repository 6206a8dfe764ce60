// Package app wires configuration into the running services shared by the binaries.
package app

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"govdash/internal/config"
	"govdash/internal/contracts"
	"govdash/internal/dashboard"
	"govdash/internal/governance"
	"govdash/internal/horizon"
	"govdash/internal/journal"
	"govdash/internal/monitor"
	"govdash/internal/risk"
	"govdash/internal/soroban"
	"govdash/internal/wallet"
)

const (
	requestTimeout = 30 * time.Second
	historyLimit   = 200
)

// App holds every long-lived collaborator built from one Config.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Lookup     *horizon.Client
	Cache      *horizon.Cache
	Invoker    *soroban.Invoker
	XAsset     *contracts.XAsset
	Governance *contracts.Governance
	Wallet     wallet.Wallet
	History    *journal.Ledger
	Monitor    *monitor.Monitor

	recorder *journal.JSONLRecorder
}

// New builds the service graph. The journal file, when configured, is replayed into History.
func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	w, err := wallet.Resolve(cfg.Wallet.Address)
	if err != nil {
		return nil, errors.WithMessage(err, "wallet")
	}

	net := cfg.Network
	lookup := horizon.NewClient(log.With().Str("component", "horizon").Logger(), horizon.WithTimeout(requestTimeout))
	rpc := soroban.NewClient(net.RPCURL, soroban.WithRequestTimeout(requestTimeout))
	sequences := horizon.Sequencer{Fetcher: lookup, HorizonURL: net.HorizonURL, Headers: net.Headers}
	invoker := soroban.NewInvoker(rpc, sequences, net.Passphrase,
		log.With().Str("component", "soroban").Logger(),
		soroban.WithPollInterval(millis(net.PollInterval)))

	a := &App{
		Config:     cfg,
		Log:        log,
		Lookup:     lookup,
		Cache:      horizon.NewCache(lookup, millis(net.SequenceStaleTime)),
		Invoker:    invoker,
		XAsset:     contracts.NewXAsset(cfg.Contracts.XAsset, invoker),
		Governance: contracts.NewGovernance(cfg.Contracts.Governance, invoker),
		Wallet:     w,
		History:    journal.NewLedger(historyLimit),
	}

	if path := cfg.Dashboard.JournalPath; path != "" {
		past, err := journal.ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, e := range past {
			a.History.Record(e)
		}
		if a.recorder, err = journal.NewJSONLRecorder(path); err != nil {
			return nil, err
		}
	}
	if interval := cfg.Dashboard.MonitorInterval; interval > 0 {
		a.Monitor = monitor.New(a.XAsset, log.With().Str("component", "monitor").Logger(), monitor.WithInterval(millis(interval)))
	}
	return a, nil
}

// Deps returns the collaborators a governance flow needs.
func (a *App) Deps() governance.Deps {
	rec := journal.Multi{a.History}
	if a.recorder != nil {
		rec = append(rec, a.recorder)
	}
	return governance.Deps{
		XAsset:     a.XAsset,
		Governance: a.Governance,
		Wallet:     a.Wallet,
		Limits:     risk.Limits{MinRatioBP: a.Config.Governance.MinRatioBP, MaxRatioBP: a.Config.Governance.MaxRatioBP},
		Journal:    rec,
		Log:        a.Log.With().Str("component", "governance").Logger(),
	}
}

// NewFlow starts a standalone session, as used by the CLI and terminal menu.
func (a *App) NewFlow(session string) *governance.Flow {
	return governance.NewFlow(a.Deps(), session)
}

// Dashboard builds the HTTP dashboard over this App.
func (a *App) Dashboard() *dashboard.Server {
	return dashboard.NewServer(a.Deps(), a.Cache, a.History, a.Monitor, dashboard.Options{
		AllowedOrigins: a.Config.Dashboard.AllowedOrigins,
		HorizonURL:     a.Config.Network.HorizonURL,
		Headers:        a.Config.Network.Headers,
		Passphrase:     a.Config.Network.Passphrase,
	}, a.Log.With().Str("component", "dashboard").Logger())
}

// Close releases the journal file.
func (a *App) Close() error {
	if a.recorder == nil {
		return nil
	}
	return a.recorder.Close()
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
