// Package browser owns the Chrome instance: launching it, listening to its
// network traffic for session payloads, reading challenge widgets from the
// page and dispatching clicks into it.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tapsolver/internal/config"
)

// Manager handles the lifecycle of the browser process and its single tab.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the entire browser process. The tab is derived from it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	tabCtx    context.Context
	tabCancel context.CancelFunc
}

// NewManager launches the browser and opens a tab. The browser lives until
// Shutdown is called or ctx is cancelled.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...", zap.Bool("headless", m.cfg.Headless))

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, buildAllocatorOptions(m.cfg)...)
	m.tabCtx, m.tabCancel = chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Debugf),
	)

	// The first Run allocates the browser for the lifetime of the context it
	// is given, so it must be the tab context itself and not a derived one.
	if err := chromedp.Run(m.tabCtx); err != nil {
		m.tabCancel()
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start: %w", err)
	}
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := run(startCtx, m.tabCtx, chromedp.Navigate("about:blank")); err != nil {
		m.tabCancel()
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// buildAllocatorOptions assembles flags for a configurable browser that does
// not advertise automation.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	// Later flags override earlier ones, so the defaults' headless and
	// enable-automation settings are replaced below.
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("mute-audio", true),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		// A persistent profile keeps the learner logged in between runs.
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if flagName == "" {
			continue
		}
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// Tab returns the chromedp context of the managed tab.
func (m *Manager) Tab() context.Context { return m.tabCtx }

// Navigate loads url in the tab, bounded by the configured navigation timeout.
func (m *Manager) Navigate(ctx context.Context, url string) error {
	if m.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.NavigationTimeout)
		defer cancel()
	}
	m.logger.Info("Navigating.", zap.String("url", url))
	if err := run(ctx, m.tabCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Done is closed when the browser goes away, whether by Shutdown or because
// the operator closed the window.
func (m *Manager) Done() <-chan struct{} { return m.tabCtx.Done() }

// Shutdown closes the tab and terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser...")
	// chromedp.Cancel closes the tab and waits for the browser to exit.
	err := chromedp.Cancel(m.tabCtx)
	m.tabCancel()
	m.allocatorCancel()
	select {
	case <-m.allocatorCtx.Done():
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded.", zap.Error(ctx.Err()))
	}
	if err != nil && !isContextErr(err) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
