// Package shell is elastickilla's interactive command loop: it reads
// commands such as `sub`, `q` and `qw`, runs them against the analyzer
// and prints the results.
package shell

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elastickilla/elastickilla/internal/analyzer"
	"github.com/elastickilla/elastickilla/internal/ui"
)

// Engine is the analyzer surface the shell drives.
type Engine interface {
	Subscribe(ctx context.Context, path, pattern string) error
	Unsubscribe(ctx context.Context, path, pattern string) error
	Search(query string) []string
	DelayedSearch(ctx context.Context, query string) ([]string, error)
	IsIndexing() bool
	Subscriptions() []string
	Stats() analyzer.Stats
}

// Shell runs commands read from a LineReader.
type Shell struct {
	engine    Engine
	reader    LineReader
	printer   *ui.Printer
	status    *ui.StatusRenderer
	logger    *slog.Logger
	tokenizer string
	started   time.Time
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) {
		s.logger = l
	}
}

// WithTokenizerName names the tokenizer in `stats` output.
func WithTokenizerName(name string) Option {
	return func(s *Shell) {
		s.tokenizer = name
	}
}

// New creates a shell over engine. Output goes to printer.
func New(engine Engine, reader LineReader, printer *ui.Printer, opts ...Option) *Shell {
	s := &Shell{
		engine:  engine,
		reader:  reader,
		printer: printer,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("component", "shell"))
	s.status = ui.NewStatusRenderer(printer.Writer(), !printer.Styled())
	return s
}

// Run reads and executes commands until `exit`, end of input or ctx is
// done. Command errors are printed and the loop goes on.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := s.reader.ReadLine(ui.Prompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		exit, err := s.Execute(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Debug("command failed", slog.String("line", line), slog.String("error", err.Error()))
			s.printer.Error(err)
		}
		if exit {
			return nil
		}
	}
}

// Execute runs one command line. Blank lines and commands missing their
// argument do nothing. It reports whether the session should end.
func (s *Shell) Execute(ctx context.Context, line string) (exit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	c, ok := commands[fields[0]]
	if !ok {
		s.printer.Warn("unknown command %q, type help for a list", fields[0])
		return false, nil
	}
	s.logger.Debug("command", slog.String("name", c.name), slog.Int("args", len(fields)-1))
	return c.run(ctx, s, fields[1:])
}

// StatusInfo collects engine state for display.
func StatusInfo(e Engine) ui.StatusInfo {
	st := e.Stats()
	return ui.StatusInfo{
		Resources:     st.Resources,
		Tokens:        st.Tokens,
		Subscriptions: e.Subscriptions(),
		Indexing:      st.Indexing,
		Submitted:     st.Queue.Submitted,
		Completed:     st.Queue.Completed,
		Canceled:      st.Queue.Canceled,
		Failed:        st.Queue.Failed,
		Pending:       st.Queue.Pending,
	}
}
