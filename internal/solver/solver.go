// Package solver ties the pipeline together: read the captured batch, look at
// the page, find the matching record, classify it and run the click sequence.
package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tapsolver/internal/challenge"
	"github.com/xkilldash9x/tapsolver/internal/matcher"
	"github.com/xkilldash9x/tapsolver/internal/sequencer"
	"github.com/xkilldash9x/tapsolver/internal/status"
	"github.com/xkilldash9x/tapsolver/internal/textnorm"
)

var (
	ErrNoData           = errors.New("no session data captured yet")
	ErrNoMatch          = errors.New("no challenge record matches the page")
	ErrUnknownArchetype = errors.New("challenge archetype not recognized")
	ErrSolveInProgress  = errors.New("solve already in progress")
)

// Outcome is the terminal state of one solve attempt.
type Outcome string

const (
	OutcomeNoData           Outcome = "no_data"
	OutcomeNoMatch          Outcome = "no_match"
	OutcomeUnknownArchetype Outcome = "unknown_archetype"
	OutcomeSolved           Outcome = "solved"
	OutcomeAborted          Outcome = "aborted"
	// OutcomeRepeat is only produced by the auto loop when the page still shows
	// the record it solved last.
	OutcomeRepeat Outcome = "repeat"
)

// Page is the read side of the browser.
type Page interface {
	Snapshot(ctx context.Context) (challenge.Snapshot, error)
	Tokens(ctx context.Context) ([]sequencer.Element, error)
	Choices(ctx context.Context) ([]sequencer.Element, error)
}

// BatchSource yields the most recently accepted batch, or nil.
type BatchSource interface {
	Current() *challenge.AnswerBatch
}

// Runner executes a plan. *sequencer.Sequencer satisfies it.
type Runner interface {
	Run(ctx context.Context, plan challenge.Plan, tokens, choices []sequencer.Element) (sequencer.Report, error)
}

// History persists finished attempts.
type History interface {
	Record(ctx context.Context, res Result) error
}

// Result describes one attempt.
type Result struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
	Archetype challenge.Archetype
	Strategy  matcher.Strategy
	Prompt    string
	RecordID  string
	Report    sequencer.Report

	record *challenge.Record
	// pageKey identifies the page the attempt read; empty when the page was
	// never read.
	pageKey string
}

// Solver is the single entry point for solving the visible challenge. At most
// one attempt runs at a time.
type Solver struct {
	logger  *zap.Logger
	batches BatchSource
	page    Page
	runner  Runner
	sink    status.Sink
	history History

	inFlight atomic.Bool
}

// Option configures a Solver.
type Option func(*Solver)

// WithStatus sets the operator status sink.
func WithStatus(sink status.Sink) Option {
	return func(s *Solver) { s.sink = sink }
}

// WithHistory enables persisting attempts.
func WithHistory(h History) Option {
	return func(s *Solver) { s.history = h }
}

func New(logger *zap.Logger, batches BatchSource, page Page, runner Runner, opts ...Option) *Solver {
	s := &Solver{
		logger:  logger.Named("solver"),
		batches: batches,
		page:    page,
		runner:  runner,
		sink:    status.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Busy reports whether an attempt is running.
func (s *Solver) Busy() bool { return s.inFlight.Load() }

// Solve runs one attempt against the page. A concurrent call returns
// ErrSolveInProgress without touching the page. The returned error wraps
// the sentinel matching the outcome; Solved returns nil.
func (s *Solver) Solve(ctx context.Context) (Result, error) {
	return s.attempt(ctx, attemptOptions{})
}

type attemptOptions struct {
	// quiet keeps busy, no-data and no-match outcomes off the status sink.
	quiet bool
	// last is the record solved by the previous attempt on the page
	// identified by lastKey; it is not solved again while that page is shown.
	last    *challenge.Record
	lastKey string
}

func (s *Solver) attempt(ctx context.Context, opts attemptOptions) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		if !opts.quiet {
			s.sink.Emit(status.Warn, "Solve already in progress.")
		}
		return Result{}, ErrSolveInProgress
	}
	defer s.inFlight.Store(false)

	res := Result{ID: uuid.New(), StartedAt: time.Now()}
	err := s.run(ctx, &res, opts)
	res.Duration = time.Since(res.StartedAt)

	s.logger.Debug("Solve attempt finished.",
		zap.String("id", res.ID.String()),
		zap.String("outcome", string(res.Outcome)),
		zap.Stringer("archetype", res.Archetype),
		zap.String("strategy", string(res.Strategy)),
		zap.Int("clicks", res.Report.Clicks),
		zap.Int("skipped", res.Report.Skipped),
		zap.Duration("duration", res.Duration),
		zap.Error(err),
	)
	if res.Outcome != OutcomeRepeat {
		s.record(ctx, res)
	}
	return res, err
}

func (s *Solver) run(ctx context.Context, res *Result, opts attemptOptions) error {
	// The batch is loaded once; a capture that lands mid-attempt is seen by
	// the next one.
	batch := s.batches.Current()
	if batch.Len() == 0 {
		res.Outcome = OutcomeNoData
		if !opts.quiet {
			s.sink.Emit(status.Warn, "No Data yet...")
		}
		return ErrNoData
	}

	snap, err := s.page.Snapshot(ctx)
	if err != nil {
		res.Outcome = OutcomeAborted
		s.sink.Emit(status.Error, "Could not read the page.")
		return fmt.Errorf("snapshot page: %w", err)
	}
	res.Prompt = snap.Prompt
	res.pageKey = pageKey(snap)

	rec, strategy, ok := matcher.Resolve(batch, snap)
	if !ok {
		res.Outcome = OutcomeNoMatch
		if !opts.quiet {
			s.sink.Emit(status.Error, "No match found")
		}
		return ErrNoMatch
	}
	res.Strategy = strategy
	res.RecordID = rec.ID
	res.record = rec
	if opts.last != nil && rec == opts.last && res.pageKey == opts.lastKey {
		res.Outcome = OutcomeRepeat
		return nil
	}

	plan := challenge.NewPlan(rec)
	res.Archetype = plan.Archetype

	var tokens, choices []sequencer.Element
	switch plan.Archetype {
	case challenge.Translate:
		s.sink.Emit(status.Info, "Translating...")
		tokens, err = s.page.Tokens(ctx)
	case challenge.Pair:
		s.sink.Emit(status.Info, "Matching Pairs...")
		tokens, err = s.page.Tokens(ctx)
	case challenge.Select:
		s.sink.Emit(status.Info, "Selecting Option...")
		choices, err = s.page.Choices(ctx)
	default:
		res.Outcome = OutcomeUnknownArchetype
		s.logger.Info("Matched record has no actionable shape.", zap.String("record", rec.Label()))
		s.sink.Emit(status.Success, "Done.")
		return ErrUnknownArchetype
	}
	if err != nil {
		res.Outcome = OutcomeAborted
		s.sink.Emit(status.Error, "Could not read the page.")
		return fmt.Errorf("query elements: %w", err)
	}

	report, err := s.runner.Run(ctx, plan, tokens, choices)
	res.Report = report
	if err != nil {
		res.Outcome = OutcomeAborted
		status.Emitf(s.sink, status.Error, "Aborted: %v", err)
		return fmt.Errorf("run %s sequence: %w", plan.Archetype, err)
	}

	res.Outcome = OutcomeSolved
	s.sink.Emit(status.Success, "Done.")
	return nil
}

func (s *Solver) record(ctx context.Context, res Result) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.Record(ctx, res); err != nil {
		s.logger.Warn("Failed to record solve attempt.", zap.String("id", res.ID.String()), zap.Error(err))
	}
}

// pageKey reduces a snapshot to what distinguishes one rendered challenge from
// another: the prompt when there is one, the token texts otherwise.
func pageKey(snap challenge.Snapshot) string {
	if p := textnorm.Normalize(snap.Prompt); p != "" {
		return "prompt:" + p
	}
	return "tokens:" + strings.Join(textnorm.All(snap.Tokens), "\x00")
}
