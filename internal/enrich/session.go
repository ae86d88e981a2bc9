// Package enrich fills in missing static fields (bondID, issue price) via
// per-bond remote lookups under a run-global adaptive backoff.
package enrich

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quantella/bondsync/internal/fetcher"
)

// DetailProvider fetches one bond's definition document and returns the raw
// issue-price text ("" when the document has none).
type DetailProvider interface {
	FetchDefinition(ctx context.Context, bondID string) (string, error)
}

// Session performs issue-price lookups for one run. It owns the backoff
// state: the wait after a 429 starts at the initial value, doubles on every
// further 429, caps at the maximum, and is deliberately never reset between
// lookups — once the server signals saturation, every later lookup in the
// run starts from the elevated wait.
type Session struct {
	provider   DetailProvider
	backoff    time.Duration
	maxBackoff time.Duration

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSession creates a fetch session with the given backoff bounds.
func NewSession(p DetailProvider, initial, max time.Duration) *Session {
	if initial <= 0 {
		initial = 60 * time.Second
	}
	if max <= 0 {
		max = 600 * time.Second
	}
	return &Session{
		provider:   p,
		backoff:    initial,
		maxBackoff: max,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the wait the next 429 would incur.
func (s *Session) Backoff() time.Duration {
	return s.backoff
}

// FetchIssuePrice looks up one bond's issue price. On a 429 it waits out the
// current backoff and retries the same request indefinitely; cancelling ctx
// is the only way to abort. Every other failure mode — transport error,
// terminal HTTP status, missing element, unparsable number — yields nil
// without an error: the bond stays a retry candidate for the next run.
func (s *Session) FetchIssuePrice(ctx context.Context, bondID string) (*float64, error) {
	for {
		text, err := s.provider.FetchDefinition(ctx, bondID)
		switch {
		case err == nil:
		case fetcher.IsStatus(err, http.StatusTooManyRequests):
			zap.L().Warn("rate limited, pausing lookups",
				zap.String("bond_id", bondID),
				zap.Duration("backoff", s.backoff),
			)
			if serr := s.sleep(ctx, s.backoff); serr != nil {
				return nil, serr
			}
			s.backoff = min(s.backoff*2, s.maxBackoff)
			continue
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			zap.L().Debug("definition fetch failed",
				zap.String("bond_id", bondID),
				zap.Error(err),
			)
			return nil, nil
		}

		if text == "" {
			return nil, nil
		}
		f, perr := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if perr != nil {
			zap.L().Debug("unparsable issue price",
				zap.String("bond_id", bondID),
				zap.String("text", text),
			)
			return nil, nil
		}
		return &f, nil
	}
}
