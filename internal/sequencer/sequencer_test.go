package sequencer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/tapsolver/internal/challenge"
	"github.com/xkilldash9x/tapsolver/internal/speed"
)

type fakeElement struct {
	name     string
	text     string
	disabled bool
}

func (e *fakeElement) Text() string                  { return e.text }
func (e *fakeElement) Disabled(context.Context) bool { return e.disabled }

func elems(texts ...string) []Element {
	out := make([]Element, len(texts))
	for i, t := range texts {
		out[i] = &fakeElement{name: t + "#" + string(rune('0'+i)), text: t}
	}
	return out
}

// event is either a click ("click:<name>") or a pause ("pause:<ms>").
type recorder struct {
	events  []string
	failOn  string
	onClick func(n int)
}

func (r *recorder) Click(_ context.Context, el Element) error {
	name := el.(*fakeElement).name
	if name == r.failOn {
		return errors.New("node detached")
	}
	r.events = append(r.events, "click:"+name)
	if r.onClick != nil {
		r.onClick(len(r.events))
	}
	return nil
}

func (r *recorder) Pause(_ context.Context, d time.Duration) error {
	r.events = append(r.events, "pause:"+d.String())
	return nil
}

func newTestSequencer(t *testing.T, src speed.Source) (*Sequencer, *recorder, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &recorder{}
	return New(zap.New(core), src, rec, WithPauser(rec)), rec, logs
}

func TestTranslateConsumesOnce(t *testing.T) {
	s, rec, logs := newTestSequencer(t, speed.Fixed(speed.Default()))
	tokens := elems("je", "le", "le", "mange")

	report, err := s.Run(context.Background(), challenge.Plan{
		Archetype: challenge.Translate,
		Words:     []string{"Je", "le", "le", "le", "mange"},
	}, tokens, nil)
	require.NoError(t, err)

	want := []string{
		"click:je#0", "pause:600ms",
		"click:le#1", "pause:600ms",
		"click:le#2", "pause:600ms",
		"click:mange#3", "pause:600ms",
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Report{Clicks: 4, Skipped: 1, Pauses: 4}, report)
	require.Equal(t, 1, logs.FilterMessage("Skipping action.").Len())
}

func TestRunLogsUnusedTokens(t *testing.T) {
	s, _, logs := newTestSequencer(t, speed.Fixed(speed.Default()))

	_, err := s.Run(context.Background(), challenge.Plan{
		Archetype: challenge.Translate,
		Words:     []string{"un"},
	}, elems("un", "deux", "trois"), nil)
	require.NoError(t, err)

	finished := logs.FilterMessage("Sequence finished.").All()
	require.Len(t, finished, 1)
	fields := finished[0].ContextMap()
	assert.EqualValues(t, 2, fields["unused_tokens"])
	assert.EqualValues(t, 1, fields["clicks"])
}

func TestTranslateSkipsDisabled(t *testing.T) {
	s, rec, _ := newTestSequencer(t, speed.Fixed(speed.Default()))
	tokens := elems("a", "a")
	tokens[0].(*fakeElement).disabled = true

	report, err := s.Run(context.Background(), challenge.Plan{Archetype: challenge.Translate, Words: []string{"a"}}, tokens, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"click:a#1", "pause:600ms"}, rec.events)
	assert.Equal(t, 1, report.Clicks)
}

func TestPairDelays(t *testing.T) {
	s, rec, _ := newTestSequencer(t, speed.Fixed(speed.Default()))
	tokens := elems("cat", "le chat", "dog")

	report, err := s.Run(context.Background(), challenge.Plan{
		Archetype: challenge.Pair,
		Groups: [][]string{
			{"cat", "le chat"},
			{"dog", "le chien"},
		},
	}, tokens, nil)
	require.NoError(t, err)

	want := []string{
		"click:cat#0", "pause:400ms",
		"click:le chat#1", "pause:1s",
		"click:dog#2", "pause:400ms",
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Report{Clicks: 3, Skipped: 1, Pauses: 3}, report)
}

func TestPairNoneFound(t *testing.T) {
	s, rec, _ := newTestSequencer(t, speed.Fixed(speed.Default()))
	report, err := s.Run(context.Background(), challenge.Plan{
		Archetype: challenge.Pair,
		Groups:    [][]string{{"x", "y"}},
	}, elems("a", "b"), nil)
	require.NoError(t, err)
	assert.Empty(t, rec.events)
	assert.Equal(t, Report{Skipped: 2}, report)
}

func TestSelect(t *testing.T) {
	s, rec, _ := newTestSequencer(t, speed.Fixed(speed.Default()))
	report, err := s.Run(context.Background(), challenge.Plan{Archetype: challenge.Select, Index: 2},
		nil, elems("w", "x", "y", "z"))
	require.NoError(t, err)
	assert.Equal(t, []string{"click:y#2", "pause:800ms"}, rec.events)
	assert.Equal(t, Report{Clicks: 1, Pauses: 1}, report)
}

func TestSelectOutOfRange(t *testing.T) {
	s, rec, _ := newTestSequencer(t, speed.Fixed(speed.Default()))
	for _, idx := range []int{-1, 4, 10} {
		report, err := s.Run(context.Background(), challenge.Plan{Archetype: challenge.Select, Index: idx},
			nil, elems("w", "x", "y", "z"))
		require.NoError(t, err)
		assert.Equal(t, Report{Skipped: 1}, report)
	}
	assert.Empty(t, rec.events)
}

func TestUnknownIsNoop(t *testing.T) {
	s, rec, _ := newTestSequencer(t, speed.Fixed(speed.Default()))
	report, err := s.Run(context.Background(), challenge.Plan{}, elems("a"), elems("b"))
	require.NoError(t, err)
	assert.Zero(t, report)
	assert.Empty(t, rec.events)
}

func TestLiveSpeedChangeAppliesMidSequence(t *testing.T) {
	live := speed.NewLive(speed.Default())
	s, rec, _ := newTestSequencer(t, live)
	rec.onClick = func(n int) {
		if n == 1 {
			live.Update(speed.TranslateWord, 150)
		}
	}

	_, err := s.Run(context.Background(), challenge.Plan{Archetype: challenge.Translate, Words: []string{"a", "b"}},
		elems("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"click:a#0", "pause:150ms", "click:b#1", "pause:150ms"}, rec.events)
}

func TestClickErrorAborts(t *testing.T) {
	s, rec, _ := newTestSequencer(t, speed.Fixed(speed.Default()))
	rec.failOn = "b#1"

	report, err := s.Run(context.Background(), challenge.Plan{Archetype: challenge.Translate, Words: []string{"a", "b", "c"}},
		elems("a", "b", "c"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node detached")
	assert.Equal(t, Report{Clicks: 1, Pauses: 1}, report)
	assert.Equal(t, []string{"click:a#0", "pause:600ms"}, rec.events)
}

func TestCancelledContextStops(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	rec := &recorder{}
	s := New(zap.New(core), speed.Fixed(speed.Default()), rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Run(ctx, challenge.Plan{Archetype: challenge.Translate, Words: []string{"a"}}, elems("a"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.events)
}

func TestTimerPauser(t *testing.T) {
	p := TimerPauser{}
	start := time.Now()
	require.NoError(t, p.Pause(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Pause(ctx, time.Hour), context.Canceled)
	assert.NoError(t, p.Pause(context.Background(), 0))
}

func TestPool(t *testing.T) {
	ctx := context.Background()
	p := NewPool(append(elems("Hello!", "world"), nil))
	assert.Equal(t, 2, p.Remaining())

	_, ok := p.Take(ctx, "", "  ")
	assert.False(t, ok)

	el, ok := p.Take(ctx, "hello")
	require.True(t, ok)
	assert.Equal(t, "Hello!", el.Text())
	_, ok = p.Take(ctx, "hello")
	assert.False(t, ok)
	assert.Equal(t, 1, p.Remaining())
}
