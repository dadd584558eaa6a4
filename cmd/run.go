// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/tapsolver/internal/browser"
	"github.com/xkilldash9x/tapsolver/internal/config"
	"github.com/xkilldash9x/tapsolver/internal/humanoid"
	"github.com/xkilldash9x/tapsolver/internal/observability"
	"github.com/xkilldash9x/tapsolver/internal/sequencer"
	"github.com/xkilldash9x/tapsolver/internal/session"
	"github.com/xkilldash9x/tapsolver/internal/solver"
	"github.com/xkilldash9x/tapsolver/internal/speed"
	"github.com/xkilldash9x/tapsolver/internal/status"
	"github.com/xkilldash9x/tapsolver/internal/store"
)

const (
	statusHistory   = 50
	shutdownTimeout = 10 * time.Second
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Open the lesson tab and solve challenges on demand",
		Long: `Launches a browser, captures the session batch when the lesson loads and
reads commands from stdin. Type "solve" (or just press enter) to answer the
visible challenge, "speed <kind> <ms>" to retune delays, "help" for the rest.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for key, flag := range map[string]string{
				"browser.headless":      "headless",
				"browser.user_data_dir": "user-data-dir",
				"auto.enabled":          "auto",
				"auto.interval":         "interval",
				"database.url":          "db",
			} {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}
			url := cfg.Browser.StartURL
			if len(args) == 1 {
				url = args[0]
			}
			return runSolver(cmd.Context(), v, cfg, url, cmd)
		},
	}

	runCmd.Flags().Bool("headless", false, "Run the browser without a window")
	runCmd.Flags().String("user-data-dir", "", "Chrome profile directory, keeps the login between runs")
	runCmd.Flags().Bool("auto", false, "Solve automatically whenever a challenge is visible")
	runCmd.Flags().Duration("interval", 2*time.Second, "Minimum time between automatic solves")
	runCmd.Flags().String("db", "", "PostgreSQL URL for the attempt history")
	return runCmd
}

func runSolver(ctx context.Context, v *viper.Viper, cfg *config.Config, url string, cmd *cobra.Command) error {
	logger := observability.GetLogger()
	rec := status.NewRecorder(statusHistory)
	sinks := status.Multi{status.NewWriterSink(cmd.OutOrStdout(), true), rec}
	if cfg.Logger.LogFile != "" {
		sinks = append(sinks, status.NewLoggerSink(logger))
	}

	sessions := session.NewStore(
		session.WithRoutePattern(cfg.Capture.URLPattern),
		session.WithMinBytes(cfg.Capture.MinBytes),
	)

	mgr, err := browser.NewManager(ctx, logger, cfg.Browser)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := mgr.Shutdown(sctx); err != nil {
			logger.Warn("Browser shutdown failed.", zap.Error(err))
		}
	}()

	capture := browser.NewCapture(mgr.Tab(), logger, sessions, sinks, cfg.Capture.BodyTimeout)
	if err := capture.Start(ctx); err != nil {
		return err
	}
	defer capture.Stop(context.WithoutCancel(ctx))

	if err := mgr.Navigate(ctx, url); err != nil {
		return err
	}

	page, err := browser.NewPage(mgr.Tab(), logger, cfg.Browser.Selectors)
	if err != nil {
		return err
	}
	human := humanoid.New(cfg.Browser.Humanoid, logger, humanoid.NewCDPExecutor(mgr.Tab()))
	speeds := speed.NewLive(cfg.Speeds)
	seq := sequencer.New(logger, speeds, browser.NewClicker(human), sequencer.WithPauser(human))

	opts := []solver.Option{solver.WithStatus(sinks)}
	if cfg.Database.URL != "" {
		hist, closeDB, err := store.Open(ctx, cfg.Database.URL, logger)
		if err != nil {
			logger.Warn("Attempt history disabled.", zap.Error(err))
		} else {
			defer closeDB()
			opts = append(opts, solver.WithHistory(hist))
		}
	}
	s := solver.New(logger, sessions, page, seq, opts...)

	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		r := &repl{
			in:      cmd.InOrStdin(),
			out:     cmd.OutOrStdout(),
			solver:  s,
			speeds:  speeds,
			status:  rec,
			persist: func(p speed.Profile) error { return persistSpeeds(v, p) },
			logger:  logger,
		}
		return r.run(gctx)
	})
	g.Go(func() error {
		select {
		case <-mgr.Done():
			cancel()
			if ctx.Err() == nil && gctx.Err() == nil {
				return errors.New("browser closed")
			}
		case <-gctx.Done():
		}
		return nil
	})
	if cfg.Auto.Enabled {
		auto := solver.NewAuto(s, cfg.Auto.Interval)
		g.Go(func() error { return auto.Run(gctx) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// persistSpeeds stores p under the speeds key and writes the config file.
func persistSpeeds(v *viper.Viper, p speed.Profile) error {
	path, err := writeConfigKeys(v, map[string]any{
		"speeds.translate_word": p.TranslateWord,
		"speeds.match_first":    p.MatchFirst,
		"speeds.match_second":   p.MatchSecond,
		"speeds.select_option":  p.SelectOption,
	})
	if err != nil {
		return err
	}
	observability.GetLogger().Debug("Speeds saved.", zap.String("path", path))
	return nil
}
