// File: cmd/repl.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tapsolver/internal/solver"
	"github.com/xkilldash9x/tapsolver/internal/speed"
	"github.com/xkilldash9x/tapsolver/internal/status"
)

const replHelp = `Commands:
  solve, s, <enter>     solve the visible challenge
  speeds                show the current delays
  speed <kind> <ms>     set a delay (kinds: translate_word, match_first, match_second, select_option)
  status                show recent status lines
  help                  show this help
  quit, exit            leave
`

// solveRunner is the part of the solver the console drives.
type solveRunner interface {
	Solve(ctx context.Context) (solver.Result, error)
}

// repl is the interactive console. Solves run in the background so delays
// can be changed while a sequence is in progress.
type repl struct {
	in      io.Reader
	out     io.Writer
	solver  solveRunner
	speeds  *speed.Live
	status  *status.Recorder
	persist func(speed.Profile) error
	logger  *zap.Logger

	wg sync.WaitGroup
}

// run reads commands until quit, EOF or ctx is done. It returns once any
// in-flight solve has stopped.
func (r *repl) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		r.wg.Wait()
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(r.out, "Type \"help\" for commands.\n")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.dispatch(ctx, line); quit {
				return nil
			}
		}
	}
}

func (r *repl) dispatch(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		r.solve(ctx)
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "solve", "s":
		r.solve(ctx)
	case "speeds":
		writeSpeeds(r.out, r.speeds.Profile())
	case "speed":
		r.setSpeed(fields[1:])
	case "status":
		for _, l := range r.status.Lines() {
			fmt.Fprintf(r.out, "%s [%s] %s\n", l.Time.Format("15:04:05"), l.Severity, l.Message)
		}
	case "help", "?":
		fmt.Fprint(r.out, replHelp)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(r.out, "Unknown command %q. Type \"help\" for commands.\n", fields[0])
	}
	return false
}

// solve starts an attempt in the background. Overlapping attempts are
// rejected by the solver itself.
func (r *repl) solve(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		res, err := r.solver.Solve(ctx)
		if err != nil {
			r.logger.Debug("Solve finished with error.", zap.String("outcome", string(res.Outcome)), zap.Error(err))
			return
		}
		r.logger.Debug("Solve finished.", zap.String("outcome", string(res.Outcome)),
			zap.Int("clicks", res.Report.Clicks), zap.Duration("duration", res.Duration))
	}()
}

func (r *repl) setSpeed(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(r.out, "Usage: speed <kind> <ms>")
		return
	}
	kind, err := speed.ParseKind(args[0])
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	ms, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(r.out, "Invalid delay %q: must be a whole number of milliseconds\n", args[1])
		return
	}

	p := r.speeds.Update(kind, speed.Snap(ms))
	fmt.Fprintf(r.out, "%s: %dms\n", kind.Label(), p.Ms(kind))
	if r.persist == nil {
		return
	}
	if err := r.persist(p); err != nil {
		r.logger.Warn("Failed to save speeds.", zap.Error(err))
		fmt.Fprintf(r.out, "Speed applied but not saved: %v\n", err)
	}
}

func writeSpeeds(w io.Writer, p speed.Profile) {
	for _, k := range speed.Kinds {
		fmt.Fprintf(w, "%-14s %-15s %5dms\n", k.Label(), strings.ToLower(string(k)), p.Ms(k))
	}
}
