package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/elastickilla/elastickilla/internal/ui"
)

// LineReader reads one command line at a time. io.EOF ends the session.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// HistoryPath returns the shell history file (~/.elastickilla/history).
func HistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".elastickilla", "history")
	}
	return filepath.Join(home, ".elastickilla", "history")
}

// NewReader returns a line editor with history for a terminal on stdin,
// and a plain line reader that echoes the prompt to out otherwise.
func NewReader(in io.Reader, out io.Writer, historyPath string) LineReader {
	if f, ok := in.(*os.File); ok && f == os.Stdin && ui.IsInteractiveInput(in) {
		return NewLineEditor(historyPath)
	}
	return NewPlainReader(in, out)
}

// LineEditor reads lines through liner, with arrow-key history and
// command completion. History is loaded from and saved to a file.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// NewLineEditor creates a line editor using historyFile, which may be
// empty to keep history in memory only.
func NewLineEditor(historyFile string) *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	e := &LineEditor{line: line, historyFile: historyFile}
	e.loadHistory()
	return e
}

// ReadLine prompts for a line. Ctrl-C and Ctrl-D end the session.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

func (e *LineEditor) loadHistory() {
	if e.historyFile == "" {
		return
	}
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = e.line.ReadHistory(f)
		_ = f.Close()
	}
}

func (e *LineEditor) saveHistory() error {
	if e.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := e.line.WriteHistory(f); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Close saves history and restores the terminal.
func (e *LineEditor) Close() error {
	err := e.saveHistory()
	if cerr := e.line.Close(); err == nil {
		err = cerr
	}
	return err
}

// PlainReader reads lines from a non-terminal input such as a pipe.
type PlainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPlainReader creates a reader over in that writes prompts to out.
// A nil out suppresses prompts.
func NewPlainReader(in io.Reader, out io.Writer) *PlainReader {
	if out == nil {
		out = io.Discard
	}
	return &PlainReader{scanner: bufio.NewScanner(in), out: out}
}

// ReadLine writes prompt and returns the next line without its newline.
func (r *PlainReader) ReadLine(prompt string) (string, error) {
	_, _ = io.WriteString(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSuffix(r.scanner.Text(), "\r"), nil
}

// Close is a no-op.
func (r *PlainReader) Close() error {
	return nil
}
