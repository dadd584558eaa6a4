package sequencer

import (
	"context"

	"github.com/xkilldash9x/tapsolver/internal/textnorm"
)

// Element is a clickable thing on the page that carries display text.
type Element interface {
	// Text is the displayed text with ruby annotations removed.
	Text() string
	// Disabled reports whether the element currently refuses clicks.
	Disabled(ctx context.Context) bool
}

type slot struct {
	key      string
	el       Element
	consumed bool
}

// Pool is an ordered multiset of elements keyed by normalized text. An element
// leaves the pool the first time it is taken, so each one satisfies at most one
// action even when several share the same text.
type Pool struct {
	slots []slot
}

// NewPool keys elements in the order given, which should be document order.
func NewPool(elements []Element) *Pool {
	p := &Pool{slots: make([]slot, 0, len(elements))}
	for _, el := range elements {
		if el == nil {
			continue
		}
		p.slots = append(p.slots, slot{key: textnorm.Normalize(el.Text()), el: el})
	}
	return p
}

// Take returns the first element that has not been consumed, is not disabled
// and whose key equals the normalized form of any of texts. The element is
// marked consumed. Empty texts never match.
func (p *Pool) Take(ctx context.Context, texts ...string) (Element, bool) {
	want := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		if k := textnorm.Normalize(t); k != "" {
			want[k] = struct{}{}
		}
	}
	if len(want) == 0 {
		return nil, false
	}
	for i := range p.slots {
		s := &p.slots[i]
		if s.consumed {
			continue
		}
		if _, ok := want[s.key]; !ok {
			continue
		}
		if s.el.Disabled(ctx) {
			continue
		}
		s.consumed = true
		return s.el, true
	}
	return nil, false
}

// Remaining counts elements not yet consumed.
func (p *Pool) Remaining() int {
	n := 0
	for _, s := range p.slots {
		if !s.consumed {
			n++
		}
	}
	return n
}
