package humanoid

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// CDPExecutor is the production Executor. Every call runs on the tab context
// it was built with and is cancelled when either that tab or the caller's
// context ends.
type CDPExecutor struct {
	tab context.Context
}

// NewCDPExecutor binds an executor to a chromedp tab context.
func NewCDPExecutor(tab context.Context) *CDPExecutor {
	return &CDPExecutor{tab: tab}
}

func (e *CDPExecutor) do(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithCancel(e.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(tctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (e *CDPExecutor) Sleep(ctx context.Context, d time.Duration) error {
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

func (e *CDPExecutor) DispatchMouseEvent(ctx context.Context, data MouseEventData) error {
	p := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons).
		WithClickCount(int64(data.ClickCount))
	return e.do(ctx, p)
}

func (e *CDPExecutor) GetElementGeometry(ctx context.Context, selector string) (*ElementGeometry, error) {
	var nodes []*cdp.Node
	var box *dom.BoxModel
	err := e.do(ctx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("selector %q matched no nodes", selector)
			}
			var err error
			box, err = dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return &ElementGeometry{Vertices: box.Content, Width: box.Width, Height: box.Height}, nil
}
