// Package sequencer turns a classified answer plan into paced clicks on the
// visible page elements.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tapsolver/internal/challenge"
	"github.com/xkilldash9x/tapsolver/internal/speed"
)

// ErrElementNotFound tags a single action whose target was not on the page.
// It is logged and the sequence continues.
var ErrElementNotFound = errors.New("element not found")

// Clicker dispatches a click on an element.
type Clicker interface {
	Click(ctx context.Context, el Element) error
}

// Pauser waits for d or until ctx is done.
type Pauser interface {
	Pause(ctx context.Context, d time.Duration) error
}

// TimerPauser waits for exactly d.
type TimerPauser struct{}

func (TimerPauser) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Report summarizes one run.
type Report struct {
	Clicks  int
	Skipped int
	Pauses  int
}

// Sequencer executes plans. It is safe to share between runs; each Run owns
// its own element pool.
type Sequencer struct {
	logger  *zap.Logger
	speeds  speed.Source
	clicker Clicker
	pauser  Pauser
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithPauser replaces the default timer-based pauser.
func WithPauser(p Pauser) Option {
	return func(s *Sequencer) { s.pauser = p }
}

// New builds a Sequencer. speeds is consulted every time a delay is due.
func New(logger *zap.Logger, speeds speed.Source, clicker Clicker, opts ...Option) *Sequencer {
	s := &Sequencer{
		logger:  logger.Named("sequencer"),
		speeds:  speeds,
		clicker: clicker,
		pauser:  TimerPauser{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs plan against the visible tokens and choices. A click failure or
// context cancellation stops the run and is returned along with the partial
// report. A missing target is only logged.
func (s *Sequencer) Run(ctx context.Context, plan challenge.Plan, tokens, choices []Element) (Report, error) {
	r := &run{Sequencer: s}
	pool := NewPool(tokens)
	var err error
	switch plan.Archetype {
	case challenge.Translate:
		err = r.translate(ctx, plan.Words, pool)
	case challenge.Pair:
		err = r.pair(ctx, plan.Groups, pool)
	case challenge.Select:
		err = r.selectChoice(ctx, plan.Index, choices)
	}
	s.logger.Debug("Sequence finished.",
		zap.Stringer("archetype", plan.Archetype),
		zap.Int("clicks", r.report.Clicks),
		zap.Int("skipped", r.report.Skipped),
		zap.Int("unused_tokens", pool.Remaining()),
		zap.Error(err),
	)
	return r.report, err
}

type run struct {
	*Sequencer
	report Report
}

func (r *run) translate(ctx context.Context, words []string, pool *Pool) error {
	for _, w := range words {
		el, ok := pool.Take(ctx, w)
		if !ok {
			r.skip(fmt.Errorf("%w: word %q", ErrElementNotFound, w))
			continue
		}
		if err := r.click(ctx, el); err != nil {
			return err
		}
		if err := r.pause(ctx, speed.TranslateWord); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) pair(ctx context.Context, groups [][]string, pool *Pool) error {
	for i, texts := range groups {
		count := 0
		for k := 0; k < 2; k++ {
			el, ok := pool.Take(ctx, texts...)
			if !ok {
				r.skip(fmt.Errorf("%w: pair %d %v", ErrElementNotFound, i, texts))
				continue
			}
			if err := r.click(ctx, el); err != nil {
				return err
			}
			count++
			if count == 1 {
				if err := r.pause(ctx, speed.MatchFirst); err != nil {
					return err
				}
			}
		}
		if count == 2 {
			if err := r.pause(ctx, speed.MatchSecond); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) selectChoice(ctx context.Context, index int, choices []Element) error {
	if index < 0 || index >= len(choices) || choices[index] == nil {
		r.skip(fmt.Errorf("%w: choice %d of %d", ErrElementNotFound, index, len(choices)))
		return nil
	}
	if err := r.click(ctx, choices[index]); err != nil {
		return err
	}
	return r.pause(ctx, speed.SelectOption)
}

func (r *run) click(ctx context.Context, el Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.clicker.Click(ctx, el); err != nil {
		return fmt.Errorf("click %q: %w", el.Text(), err)
	}
	r.report.Clicks++
	return nil
}

func (r *run) pause(ctx context.Context, k speed.Kind) error {
	d := r.speeds.Delay(k)
	r.report.Pauses++
	if err := r.pauser.Pause(ctx, d); err != nil {
		return fmt.Errorf("pause %s: %w", k, err)
	}
	return nil
}

func (r *run) skip(err error) {
	r.report.Skipped++
	r.logger.Warn("Skipping action.", zap.Error(err))
}
