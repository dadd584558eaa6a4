// Package status is the operator-facing side channel: short human-readable
// lines tagged with a severity. It is observational only; nothing in the
// solve path branches on what a sink does with a line.
package status

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Severity tags a status line.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warn    Severity = "warn"
	Error   Severity = "error"
)

// Line is one emitted status message.
type Line struct {
	Time     time.Time
	Severity Severity
	Message  string
}

// Sink receives status lines. Implementations must be safe for concurrent use
// because the capture listener and the solver emit from different goroutines.
type Sink interface {
	Emit(sev Severity, msg string)
}

// Emitf formats and emits a line on s.
func Emitf(s Sink, sev Severity, format string, args ...any) {
	s.Emit(sev, fmt.Sprintf(format, args...))
}

// Discard drops every line.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Severity, string) {}

// LoggerSink forwards status lines to a zap logger, mapping severities onto
// log levels.
type LoggerSink struct {
	logger *zap.Logger
}

// NewLoggerSink returns a sink writing to logger.
func NewLoggerSink(logger *zap.Logger) *LoggerSink {
	return &LoggerSink{logger: logger.Named("status")}
}

func (s *LoggerSink) Emit(sev Severity, msg string) {
	field := zap.String("severity", string(sev))
	switch sev {
	case Error:
		s.logger.Error(msg, field)
	case Warn:
		s.logger.Warn(msg, field)
	default:
		s.logger.Info(msg, field)
	}
}

// ANSI colours used by the terminal sink, matching the panel palette.
const (
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// WriterSink prints "> message" lines to a terminal, coloured by severity.
type WriterSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewWriterSink returns a sink writing to w. Colour codes are only written when
// color is true.
func NewWriterSink(w io.Writer, color bool) *WriterSink {
	return &WriterSink{w: w, color: color}
}

func (s *WriterSink) Emit(sev Severity, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix, suffix := "", ""
	if s.color {
		switch sev {
		case Error:
			prefix, suffix = colorRed, colorReset
		case Success:
			prefix, suffix = colorGreen, colorReset
		case Warn:
			prefix, suffix = colorYellow, colorReset
		}
	}
	fmt.Fprintf(s.w, "%s> %s%s\n", prefix, msg, suffix)
}

// Multi fans a line out to every sink in order.
type Multi []Sink

func (m Multi) Emit(sev Severity, msg string) {
	for _, s := range m {
		s.Emit(sev, msg)
	}
}

// Recorder keeps every line in memory. It is used by tests and by the REPL
// "status" command to replay recent output.
type Recorder struct {
	mu    sync.Mutex
	lines []Line
	limit int
	now   func() time.Time
}

// NewRecorder returns a recorder retaining at most limit lines; limit <= 0
// means unbounded.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit, now: time.Now}
}

func (r *Recorder) Emit(sev Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, Line{Time: r.now(), Severity: sev, Message: msg})
	if r.limit > 0 && len(r.lines) > r.limit {
		r.lines = append(r.lines[:0], r.lines[len(r.lines)-r.limit:]...)
	}
}

// Lines returns a copy of the retained lines, oldest first.
func (r *Recorder) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Messages returns just the message text of the retained lines.
func (r *Recorder) Messages() []string {
	lines := r.Lines()
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Message
	}
	return out
}

// Reset drops all retained lines.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.lines = nil
	r.mu.Unlock()
}
