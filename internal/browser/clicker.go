package browser

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/tapsolver/internal/sequencer"
)

// SelectorClicker clicks whatever a CSS selector resolves to.
// *humanoid.Humanoid satisfies it.
type SelectorClicker interface {
	Click(ctx context.Context, selector string) error
}

// Clicker adapts a SelectorClicker to sequencer elements scanned by Page.
type Clicker struct {
	inner SelectorClicker
}

func NewClicker(inner SelectorClicker) *Clicker {
	return &Clicker{inner: inner}
}

func (c *Clicker) Click(ctx context.Context, el sequencer.Element) error {
	pe, ok := el.(*Element)
	if !ok {
		return fmt.Errorf("cannot click element of type %T", el)
	}
	return c.inner.Click(ctx, pe.Selector())
}
