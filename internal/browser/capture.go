package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tapsolver/internal/session"
	"github.com/xkilldash9x/tapsolver/internal/status"
)

// DefaultBodyTimeout bounds a single response body fetch.
const DefaultBodyTimeout = 15 * time.Second

type bodyFetcher func(ctx context.Context, id network.RequestID) ([]byte, error)

// Capture listens to the tab's network traffic and feeds responses whose URL
// matches the store's route pattern into the session store.
type Capture struct {
	logger      *zap.Logger
	store       *session.Store
	sink        status.Sink
	tab         context.Context
	bodyTimeout time.Duration
	fetch       bodyFetcher

	listenerCtx    context.Context
	cancelListener context.CancelFunc

	mu      sync.Mutex
	pending map[network.RequestID]string
	started bool

	// Tracks body fetches so Stop does not return while one is running.
	fetchWG sync.WaitGroup
}

// NewCapture creates a listener for tab. A non-positive bodyTimeout uses
// DefaultBodyTimeout.
func NewCapture(tab context.Context, logger *zap.Logger, store *session.Store, sink status.Sink, bodyTimeout time.Duration) *Capture {
	if bodyTimeout <= 0 {
		bodyTimeout = DefaultBodyTimeout
	}
	c := &Capture{
		logger:      logger.Named("capture"),
		store:       store,
		sink:        sink,
		tab:         tab,
		bodyTimeout: bodyTimeout,
		pending:     make(map[network.RequestID]string),
	}
	c.fetch = c.fetchFromTab
	return c
}

// Start enables the network domain and begins listening.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	// Derived from the tab, so the listener dies with it.
	c.listenerCtx, c.cancelListener = context.WithCancel(c.tab)
	chromedp.ListenTarget(c.listenerCtx, c.handleEvent)

	if err := run(ctx, c.tab, network.Enable()); err != nil {
		c.cancelListener()
		return err
	}
	c.started = true
	c.logger.Debug("Capture started.")
	return nil
}

// Stop detaches the listener and waits for in-flight body fetches, or for ctx.
func (c *Capture) Stop(ctx context.Context) {
	c.mu.Lock()
	if c.cancelListener != nil {
		c.cancelListener()
	}
	c.started = false
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.fetchWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("Timed out waiting for body fetches.", zap.Error(ctx.Err()))
	}
}

func (c *Capture) handleEvent(ev any) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		c.handleResponseReceived(e)
	case *network.EventLoadingFinished:
		c.handleLoadingFinished(e)
	case *network.EventLoadingFailed:
		c.mu.Lock()
		delete(c.pending, e.RequestID)
		c.mu.Unlock()
	}
}

func (c *Capture) handleResponseReceived(e *network.EventResponseReceived) {
	if e.Response == nil || !c.store.Matches(e.Response.URL) {
		return
	}
	c.mu.Lock()
	c.pending[e.RequestID] = e.Response.URL
	c.mu.Unlock()
}

func (c *Capture) handleLoadingFinished(e *network.EventLoadingFinished) {
	c.mu.Lock()
	url, ok := c.pending[e.RequestID]
	delete(c.pending, e.RequestID)
	c.mu.Unlock()
	if !ok {
		return
	}
	// Event handlers must not block the CDP reader, and GetResponseBody is a
	// round trip on that same connection.
	c.fetchWG.Add(1)
	go c.ingest(e.RequestID, url)
}

func (c *Capture) ingest(id network.RequestID, url string) {
	defer c.fetchWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.bodyTimeout)
	defer cancel()

	body, err := c.fetch(ctx, id)
	if err != nil {
		c.logger.Debug("Failed to fetch response body.", zap.String("url", url), zap.Error(err))
		return
	}

	batch, err := c.store.Ingest(url, body)
	if err != nil {
		if !errors.Is(err, session.ErrCaptureRejected) {
			c.logger.Warn("Unexpected capture failure.", zap.String("url", url), zap.Error(err))
			return
		}
		c.logger.Debug("Response ignored.", zap.String("url", url), zap.Int("bytes", len(body)), zap.Error(err))
		return
	}

	c.logger.Info("Session captured.", zap.String("url", url), zap.String("session_id", batch.ID), zap.Int("challenges", batch.Len()))
	status.Emitf(c.sink, status.Success, "Session Captured! (%d items)", batch.Len())
}

func (c *Capture) fetchFromTab(ctx context.Context, id network.RequestID) ([]byte, error) {
	var body []byte
	err := run(ctx, c.tab, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	return body, err
}
