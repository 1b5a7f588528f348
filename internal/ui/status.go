package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes the state of a running analyzer.
type StatusInfo struct {
	Resources     int       `json:"resources"`
	Tokens        int       `json:"tokens"`
	Subscriptions []string  `json:"subscriptions"`
	Indexing      bool      `json:"indexing"`
	Tokenizer     string    `json:"tokenizer"`
	MaxFileSize   int64     `json:"max_file_size"`
	StartedAt     time.Time `json:"started_at"`

	// Queue counters
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Canceled  int64 `json:"canceled"`
	Failed    int64 `json:"failed"`
	Pending   int64 `json:"pending"`
}

// StatusRenderer displays analyzer status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status"))

	_, _ = fmt.Fprintf(r.out, "  Files:     %d\n", info.Resources)
	_, _ = fmt.Fprintf(r.out, "  Tokens:    %d\n", info.Tokens)
	if info.Tokenizer != "" {
		_, _ = fmt.Fprintf(r.out, "  Tokenizer: %s\n", info.Tokenizer)
	}
	if info.MaxFileSize > 0 {
		_, _ = fmt.Fprintf(r.out, "  Max file:  %s\n", FormatBytes(info.MaxFileSize))
	}
	if !info.StartedAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Started:   %s\n", formatTime(info.StartedAt))
	}
	_, _ = fmt.Fprintf(r.out, "  State:     %s\n", r.renderState(info.Indexing))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Queue:")
	_, _ = fmt.Fprintf(r.out, "    Submitted: %d\n", info.Submitted)
	_, _ = fmt.Fprintf(r.out, "    Completed: %d\n", info.Completed)
	_, _ = fmt.Fprintf(r.out, "    Canceled:  %d\n", info.Canceled)
	if info.Failed > 0 {
		_, _ = fmt.Fprintf(r.out, "    Failed:    %s\n", r.styles.Error.Render(fmt.Sprint(info.Failed)))
	} else {
		_, _ = fmt.Fprintf(r.out, "    Failed:    %d\n", info.Failed)
	}
	_, _ = fmt.Fprintf(r.out, "    Pending:   %d\n", info.Pending)
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintf(r.out, "  Subscriptions (%d):\n", len(info.Subscriptions))
	for _, s := range info.Subscriptions {
		_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Path.Render(s))
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderState(indexing bool) string {
	if indexing {
		return r.styles.Active.Render("indexing")
	}
	return r.styles.Success.Render("idle")
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
