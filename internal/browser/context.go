package browser

import (
	"context"
	"errors"

	"github.com/chromedp/chromedp"
)

// run executes actions on the tab. The tab context carries the CDP target;
// ctx carries the caller's cancellation. Either ending stops the actions.
func run(ctx, tab context.Context, actions ...chromedp.Action) error {
	combined, cancel := context.WithCancel(tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(combined, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
