package horizon

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

// Sequencer adapts a Fetcher to the int64 sequence numbers transaction builders consume.
type Sequencer struct {
	Fetcher    Fetcher
	HorizonURL string
	Headers    map[string]string
}

// NextSequence returns the sequence number the next transaction from accountID must carry.
func (s Sequencer) NextSequence(ctx context.Context, accountID string) (int64, error) {
	res, err := s.Fetcher.Fetch(ctx, Query{
		PublicKey:  accountID,
		HorizonURL: s.HorizonURL,
		Headers:    s.Headers,
		Enabled:    true,
	})
	if err != nil {
		return 0, err
	}
	raw, err := res.Value()
	if err != nil {
		return 0, err
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "sequence %s does not fit a transaction", raw)
	}
	return seq, nil
}
