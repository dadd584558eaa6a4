package humanoid

import (
	"context"
	"time"
)

// Executor is the browser side of the humanoid: raw input dispatch and
// geometry lookup. CDPExecutor is the production implementation; tests mock it.
type Executor interface {
	// Sleep pauses execution, respecting context cancellation.
	Sleep(ctx context.Context, d time.Duration) error

	// DispatchMouseEvent sends a single low-level mouse event.
	DispatchMouseEvent(ctx context.Context, data MouseEventData) error

	// GetElementGeometry finds the first element matching the selector and
	// returns its content box.
	GetElementGeometry(ctx context.Context, selector string) (*ElementGeometry, error)
}
