package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SequenceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sequence_fetch_total", Help: "Horizon sequence lookups by outcome"},
		[]string{"outcome"},
	)
	GovernanceActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "governance_actions_total", Help: "Ratio refreshes and change executions by outcome"},
		[]string{"action", "outcome"},
	)
	CollateralRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "collateral_ratio_bp", Help: "Last observed minimum collateralization ratio in basis points"},
	)
)

func init() {
	prometheus.MustRegister(SequenceFetches, GovernanceActions, CollateralRatio)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
