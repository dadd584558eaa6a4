// Package speed holds the operator-tunable delays that pace a solve pass.
package speed

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Kind names one of the four paced actions.
type Kind string

const (
	TranslateWord Kind = "TRANSLATE_WORD"
	MatchFirst    Kind = "MATCH_FIRST"
	MatchSecond   Kind = "MATCH_SECOND"
	SelectOption  Kind = "SELECT_OPTION"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{TranslateWord, MatchFirst, MatchSecond, SelectOption}

// Slider bounds for interactively set values.
const (
	MinMs  = 100
	MaxMs  = 1500
	StepMs = 50
)

// Label returns the short operator-facing name of k.
func (k Kind) Label() string {
	switch k {
	case TranslateWord:
		return "Click Word"
	case MatchFirst:
		return "Match (Pick)"
	case MatchSecond:
		return "Match (Pair)"
	case SelectOption:
		return "Select Opt"
	}
	return string(k)
}

// ParseKind accepts the canonical name in any case, with '-' or '_'.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown speed kind %q", s)
}

// Profile maps every kind to a delay in milliseconds.
type Profile struct {
	TranslateWord int `mapstructure:"translate_word" yaml:"translate_word" json:"TRANSLATE_WORD"`
	MatchFirst    int `mapstructure:"match_first" yaml:"match_first" json:"MATCH_FIRST"`
	MatchSecond   int `mapstructure:"match_second" yaml:"match_second" json:"MATCH_SECOND"`
	SelectOption  int `mapstructure:"select_option" yaml:"select_option" json:"SELECT_OPTION"`
}

// Default returns the stock pacing.
func Default() Profile {
	return Profile{TranslateWord: 600, MatchFirst: 400, MatchSecond: 1000, SelectOption: 800}
}

// Ms returns the delay for k in milliseconds.
func (p Profile) Ms(k Kind) int {
	switch k {
	case TranslateWord:
		return p.TranslateWord
	case MatchFirst:
		return p.MatchFirst
	case MatchSecond:
		return p.MatchSecond
	case SelectOption:
		return p.SelectOption
	}
	return 0
}

// With returns a copy of p with k set to ms.
func (p Profile) With(k Kind, ms int) Profile {
	switch k {
	case TranslateWord:
		p.TranslateWord = ms
	case MatchFirst:
		p.MatchFirst = ms
	case MatchSecond:
		p.MatchSecond = ms
	case SelectOption:
		p.SelectOption = ms
	}
	return p
}

// Validate requires every delay to be a positive number of milliseconds.
func (p Profile) Validate() error {
	for _, k := range Kinds {
		if p.Ms(k) <= 0 {
			return fmt.Errorf("speed %s must be a positive number of milliseconds, got %d", k, p.Ms(k))
		}
	}
	return nil
}

// Snap clamps ms to the slider range and rounds it to the nearest step.
func Snap(ms int) int {
	if ms < MinMs {
		ms = MinMs
	}
	if ms > MaxMs {
		ms = MaxMs
	}
	return MinMs + ((ms-MinMs+StepMs/2)/StepMs)*StepMs
}

// Source yields the delay for an action kind. Implementations are consulted
// at the moment each delay is needed, so changes apply mid-sequence.
type Source interface {
	Delay(k Kind) time.Duration
}

// Live is a Source whose profile can be replaced at any time.
type Live struct {
	p atomic.Pointer[Profile]
}

// NewLive returns a Live source starting at p.
func NewLive(p Profile) *Live {
	l := &Live{}
	l.Set(p)
	return l
}

// Set replaces the whole profile.
func (l *Live) Set(p Profile) { l.p.Store(&p) }

// Update sets a single kind and returns the resulting profile.
func (l *Live) Update(k Kind, ms int) Profile {
	for {
		old := l.p.Load()
		next := old.With(k, ms)
		if l.p.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// Profile returns the current profile.
func (l *Live) Profile() Profile { return *l.p.Load() }

func (l *Live) Delay(k Kind) time.Duration {
	return time.Duration(l.Profile().Ms(k)) * time.Millisecond
}

// Fixed is a Source backed by a constant profile.
type Fixed Profile

func (f Fixed) Delay(k Kind) time.Duration {
	return time.Duration(Profile(f).Ms(k)) * time.Millisecond
}
