package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

// Prompt is printed before each shell command.
const Prompt = "> "

// Printer writes shell and command output. It styles output only when
// its Config allows color.
type Printer struct {
	out    io.Writer
	styles Styles
	color  bool
}

// NewPrinter creates a printer for cfg.
func NewPrinter(cfg Config) *Printer {
	color := cfg.Color()
	return &Printer{
		out:    cfg.Output,
		styles: GetStyles(!color),
		color:  color,
	}
}

// Writer returns the underlying output.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Styled reports whether output is colored.
func (p *Printer) Styled() bool {
	return p.color
}

// SearchResults lists the files containing query.
func (p *Printer) SearchResults(query string, files []string) {
	_, _ = fmt.Fprintf(p.out, "%s\n", p.styles.Header.Render(fmt.Sprintf("Files, that contain %q:", query)))
	for _, f := range files {
		_, _ = fmt.Fprintln(p.out, p.styles.Path.Render(f))
	}
}

// Subscribing announces a new subscription.
func (p *Printer) Subscribing(path string) {
	_, _ = fmt.Fprintf(p.out, "Subscribing to %s\n", p.styles.Path.Render(path))
}

// Unsubscribing announces a removed subscription.
func (p *Printer) Unsubscribing(path string) {
	_, _ = fmt.Fprintf(p.out, "Unsubscribing from %s\n", p.styles.Path.Render(path))
}

// IndexingState reports whether the analyzer has outstanding work.
func (p *Printer) IndexingState(indexing bool) {
	state := p.styles.Dim.Render("not indexing")
	if indexing {
		state = p.styles.Active.Render("indexing")
	}
	_, _ = fmt.Fprintf(p.out, "Analyzer is %s right now\n", state)
}

// Subscriptions lists the active subscriptions.
func (p *Printer) Subscriptions(subs []string) {
	_, _ = fmt.Fprintln(p.out, p.styles.Header.Render("Analyzer subscribed to:"))
	for _, s := range subs {
		_, _ = fmt.Fprintln(p.out, p.styles.Path.Render(s))
	}
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, fmt.Sprintf(format, args...))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, p.styles.Warning.Render("Warning: "+fmt.Sprintf(format, args...)))
}

// Error prints err with its hint and code when it carries them.
func (p *Printer) Error(err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintln(p.out, p.styles.Error.Render(strings.TrimRight(ekerrors.FormatForCLI(err), "\n")))
}

// Progress renders one indexing progress line. On a terminal the line is
// redrawn in place; otherwise each call prints a new line.
func (p *Printer) Progress(s ProgressStats) {
	line := fmt.Sprintf("%s %s %d/%d files",
		p.styles.Label.Render("Indexing"),
		p.styles.Count.Render(progressBar(s.Progress, 20)),
		s.Current, s.Total)
	if s.Speed.Current > 0 {
		line += fmt.Sprintf("  %.1f files/s", s.Speed.Current)
	}
	if s.ETA > 0 {
		line += "  ETA " + s.ETA.Round(time.Second).String()
	}
	if s.Sparkline != "" {
		line += "  " + p.styles.Success.Render(s.Sparkline)
	}

	if p.color {
		_, _ = fmt.Fprintf(p.out, "\r\033[K%s", line)
		return
	}
	_, _ = fmt.Fprintln(p.out, line)
}

// EndProgress terminates an in-place progress line.
func (p *Printer) EndProgress() {
	if p.color {
		_, _ = fmt.Fprintln(p.out)
	}
}

func progressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
