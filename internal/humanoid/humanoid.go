// Package humanoid dispatches clicks and pauses the way a person would: mouse
// pressed and released at the element centre with a short, variable hold, and
// optionally jittered waits between actions.
package humanoid

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config tunes click timing. Zero values fall back to DefaultConfig.
type Config struct {
	ClickHoldMeanMs   float64 `mapstructure:"click_hold_mean_ms" yaml:"click_hold_mean_ms"`
	ClickHoldStdDevMs float64 `mapstructure:"click_hold_stddev_ms" yaml:"click_hold_stddev_ms"`
	ClickHoldMinMs    int     `mapstructure:"click_hold_min_ms" yaml:"click_hold_min_ms"`
	ClickHoldMaxMs    int     `mapstructure:"click_hold_max_ms" yaml:"click_hold_max_ms"`
	// PauseJitter scales every pause by a uniform factor in [1-j, 1+j].
	// Zero keeps pauses exact.
	PauseJitter float64 `mapstructure:"pause_jitter" yaml:"pause_jitter"`

	// Rng overrides the random source, for tests.
	Rng *rand.Rand `mapstructure:"-" yaml:"-"`
}

// DefaultConfig returns the stock click model.
func DefaultConfig() Config {
	return Config{
		ClickHoldMeanMs:   60,
		ClickHoldStdDevMs: 20,
		ClickHoldMinMs:    20,
		ClickHoldMaxMs:    150,
	}
}

// Validate checks the ranges.
func (c Config) Validate() error {
	if c.ClickHoldMinMs < 0 || c.ClickHoldMaxMs < c.ClickHoldMinMs {
		return fmt.Errorf("click hold range [%d, %d] ms is invalid", c.ClickHoldMinMs, c.ClickHoldMaxMs)
	}
	if c.PauseJitter < 0 || c.PauseJitter >= 1 {
		return fmt.Errorf("pause jitter must be in [0, 1), got %g", c.PauseJitter)
	}
	return nil
}

// Humanoid executes human-like input through an Executor.
type Humanoid struct {
	cfg      Config
	executor Executor
	logger   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Humanoid. Zero timing fields in cfg are filled from
// DefaultConfig.
func New(cfg Config, logger *zap.Logger, executor Executor) *Humanoid {
	def := DefaultConfig()
	if cfg.ClickHoldMeanMs == 0 {
		cfg.ClickHoldMeanMs = def.ClickHoldMeanMs
	}
	if cfg.ClickHoldStdDevMs == 0 {
		cfg.ClickHoldStdDevMs = def.ClickHoldStdDevMs
	}
	if cfg.ClickHoldMaxMs == 0 {
		cfg.ClickHoldMinMs, cfg.ClickHoldMaxMs = def.ClickHoldMinMs, def.ClickHoldMaxMs
	}
	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Humanoid{
		cfg:      cfg,
		executor: executor,
		logger:   logger.Named("humanoid"),
		rng:      rng,
	}
}

// Click moves to the centre of the first element matching selector, presses
// the left button, holds it, and releases.
func (h *Humanoid) Click(ctx context.Context, selector string) error {
	geo, err := h.executor.GetElementGeometry(ctx, selector)
	if err != nil {
		return fmt.Errorf("humanoid: locate %q: %w", selector, err)
	}
	pos, ok := geo.Center()
	if !ok {
		return fmt.Errorf("humanoid: element %q has no clickable area", selector)
	}

	events := []MouseEventData{
		{Type: MouseMove, X: pos.X, Y: pos.Y, Button: ButtonNone},
		{Type: MousePress, X: pos.X, Y: pos.Y, Button: ButtonLeft, ClickCount: 1, Buttons: 1},
	}
	for _, ev := range events {
		if err := h.executor.DispatchMouseEvent(ctx, ev); err != nil {
			return fmt.Errorf("humanoid: %s: %w", ev.Type, err)
		}
	}

	hold := h.holdDuration()
	if err := h.executor.Sleep(ctx, hold); err != nil {
		// Never leave the button pressed.
		h.release(context.WithoutCancel(ctx), pos)
		return err
	}
	if err := h.release(ctx, pos); err != nil {
		return fmt.Errorf("humanoid: %s: %w", MouseRelease, err)
	}
	h.logger.Debug("Click dispatched.", zap.String("selector", selector),
		zap.Float64("x", pos.X), zap.Float64("y", pos.Y), zap.Duration("hold", hold))
	return nil
}

func (h *Humanoid) release(ctx context.Context, pos Vector2D) error {
	return h.executor.DispatchMouseEvent(ctx, MouseEventData{
		Type: MouseRelease, X: pos.X, Y: pos.Y, Button: ButtonLeft, ClickCount: 1, Buttons: 0,
	})
}

// Pause waits for d, scaled by the configured jitter.
func (h *Humanoid) Pause(ctx context.Context, d time.Duration) error {
	return h.executor.Sleep(ctx, h.jitter(d))
}

func (h *Humanoid) holdDuration() time.Duration {
	h.mu.Lock()
	ms := h.cfg.ClickHoldMeanMs + h.rng.NormFloat64()*h.cfg.ClickHoldStdDevMs
	h.mu.Unlock()
	ms = clamp(ms, float64(h.cfg.ClickHoldMinMs), float64(h.cfg.ClickHoldMaxMs))
	return time.Duration(ms * float64(time.Millisecond))
}

func (h *Humanoid) jitter(d time.Duration) time.Duration {
	if h.cfg.PauseJitter == 0 || d <= 0 {
		return d
	}
	h.mu.Lock()
	f := 1 + h.cfg.PauseJitter*(2*h.rng.Float64()-1)
	h.mu.Unlock()
	return time.Duration(float64(d) * f)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
