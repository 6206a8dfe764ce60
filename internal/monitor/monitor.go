// Package monitor polls the on-chain ratio in the background, independently of any session.
package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"govdash/internal/metrics"
	"govdash/internal/soroban"
)

const defaultInterval = 30 * time.Second

// Reader is the contract read the monitor polls.
type Reader interface {
	ContractID() string
	MinimumCollateralizationRatio(ctx context.Context, source string) (soroban.Raw, error)
}

// Reading is one poll outcome. Err is set instead of RatioBP when the read failed.
type Reading struct {
	RatioBP uint32    `json:"ratio_bp"`
	Err     string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Monitor periodically reads the ratio and fans readings out to subscribers.
type Monitor struct {
	reader   Reader
	interval time.Duration
	log      zerolog.Logger

	mu     sync.RWMutex
	latest *Reading
	subs   map[chan Reading]struct{}
}

// Option configures Monitor construction parameters.
type Option func(*Monitor)

// WithInterval overrides the default polling cadence.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func New(reader Reader, log zerolog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		reader:   reader,
		interval: defaultInterval,
		log:      log,
		subs:     make(map[chan Reading]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run polls until ctx is canceled. Poll failures are logged and published, never returned.
func (m *Monitor) Run(ctx context.Context) error {
	if m.reader == nil || m.reader.ContractID() == "" {
		m.log.Warn().Msg("xasset contract not configured; ratio monitor idle")
		<-ctx.Done()
		return ctx.Err()
	}
	m.poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	bp, err := m.read(ctx)
	if ctx.Err() != nil {
		return
	}
	r := Reading{Time: time.Now().UTC()}
	if err != nil {
		m.log.Warn().Err(err).Msg("ratio poll failed")
		r.Err = err.Error()
	} else {
		r.RatioBP = bp
		metrics.CollateralRatio.Set(float64(bp))
		m.log.Debug().Uint32("ratio_bp", bp).Msg("ratio polled")
	}
	m.publish(r)
}

func (m *Monitor) read(ctx context.Context) (uint32, error) {
	raw, err := m.reader.MinimumCollateralizationRatio(ctx, "")
	if err != nil {
		return 0, err
	}
	res, err := soroban.Decode(raw)
	if err != nil {
		return 0, err
	}
	if res.IsErr() {
		return 0, res.UnwrapErr()
	}
	if res.Unwrap() > math.MaxUint32 {
		return 0, errors.WithStack(soroban.ErrUnexpectedFormat)
	}
	return uint32(res.Unwrap()), nil
}

func (m *Monitor) publish(r Reading) {
	m.mu.Lock()
	m.latest = &r
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.subs {
		select {
		case ch <- r:
		default:
			// slow subscriber; it will catch up on the next reading
		}
	}
}

// Latest returns the most recent reading, if any poll has completed.
func (m *Monitor) Latest() (Reading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return Reading{}, false
	}
	return *m.latest, true
}

// Subscribe registers a buffered channel for readings. The returned func unsubscribes and
// closes the channel.
func (m *Monitor) Subscribe() (<-chan Reading, func()) {
	ch := make(chan Reading, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
}
