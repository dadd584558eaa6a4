package solver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/tapsolver/internal/challenge"
)

// Auto calls Solve repeatedly, at most once per interval. Outcomes that are
// normal between challenges (busy, no data, no match, repeat) are kept off
// the status sink.
type Auto struct {
	solver  *Solver
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewAuto(s *Solver, interval time.Duration) *Auto {
	return &Auto{
		solver:  s,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  s.logger.Named("auto"),
	}
}

// Run blocks until ctx is done. It returns nil on cancellation.
func (a *Auto) Run(ctx context.Context) error {
	a.logger.Info("Auto solve started.", zap.Float64("per_second", float64(a.limiter.Limit())))
	defer a.logger.Info("Auto solve stopped.")

	var (
		last    *challenge.Record
		lastKey string
	)
	for {
		// Wait only fails when ctx ends before the next slot.
		if err := a.limiter.Wait(ctx); err != nil {
			<-ctx.Done()
			return nil
		}
		res, err := a.solver.attempt(ctx, attemptOptions{quiet: true, last: last, lastKey: lastKey})
		// Once the page shows something else, the solved record may be
		// replayed and must be solved again.
		if res.pageKey != "" && res.pageKey != lastKey {
			last, lastKey = nil, ""
		}
		switch {
		case err == nil && res.Outcome == OutcomeSolved:
			last, lastKey = res.record, res.pageKey
		case errors.Is(err, ErrUnknownArchetype):
			last, lastKey = res.record, res.pageKey
		case ctx.Err() != nil:
			return nil
		case err != nil && !isQuiet(err):
			a.logger.Warn("Auto solve attempt failed.", zap.Error(err))
		}
	}
}

func isQuiet(err error) bool {
	return errors.Is(err, ErrSolveInProgress) || errors.Is(err, ErrNoData) || errors.Is(err, ErrNoMatch)
}
