package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastickilla/elastickilla/internal/analyzer"
	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/tokenizer"
	"github.com/elastickilla/elastickilla/internal/ui"
)

// startWatch runs the watch command until the returned stop is called.
func startWatch(t *testing.T, args ...string) (*syncBuffer, func() error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &syncBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"watch"}, args...))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop")
			return nil
		}
	}
	t.Cleanup(func() { cancel() })
	return out, stop
}

func TestWatchCmd_RequiresPaths(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "watch")

	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeInvalidInput, ekerrors.GetCode(err))
}

func TestWatchCmd_RunsUntilCanceled(t *testing.T) {
	// Given: a watched directory
	isolate(t)
	dir := writeTree(t, map[string]string{"a.txt": "alpha"})

	// When: watch starts
	out, stop := startWatch(t, dir)

	// Then: it announces the subscription and keeps running
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Subscribing to "+dir)
	}, 3*time.Second, 10*time.Millisecond)

	// When: it is interrupted
	err := stop()

	// Then: it shuts down without error
	assert.NoError(t, err)
}

func TestWatchCmd_ServesMetrics(t *testing.T) {
	// Given: a free port and a watched directory
	isolate(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	dir := writeTree(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})

	// When: watching with metrics enabled
	_, stop := startWatch(t, "--metrics-addr", addr, "--quiet", dir)

	// Then: the endpoint reports the indexed files
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return strings.Contains(body, "elastickilla_files_tokenized_total")
	}, 5*time.Second, 50*time.Millisecond)
	assert.Contains(t, body, "elastickilla_subscriptions 1")
	assert.NoError(t, stop())
}

func TestWatchCmd_BadMetricsAddress(t *testing.T) {
	// Given: an address that is already taken
	isolate(t)
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = taken.Close() })
	dir := writeTree(t, map[string]string{"a.txt": "alpha"})

	// When: watching with it, without ever interrupting
	out, err := execute(t, "", "watch", "--metrics-addr", taken.Addr().String(), "--quiet", dir)

	// Then: the command ends on its own with the listener error, before
	// subscribing to anything
	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeListenFailed, ekerrors.GetCode(err))
	assert.NotContains(t, out, "Subscribing to")
}

func TestReportProgress_DrawsBurst(t *testing.T) {
	// Given: an analyzer with files to index
	dir := writeTree(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	an, err := analyzer.New(tokenizer.NewWhitespace(0, nil))
	require.NoError(t, err)
	t.Cleanup(func() { closeAnalyzer(an, discardLogger()) })

	out := &syncBuffer{}
	p := ui.NewPrinter(ui.NewConfig(out, ui.WithForcePlain(true)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reportProgress(ctx, an, p, 5*time.Millisecond) }()

	// When: a subscription is indexed while progress is reported
	for i := 0; i < 200; i++ {
		path := filepath.Join(dir, fmt.Sprintf("more%03d.txt", i))
		require.NoError(t, os.WriteFile(path, []byte("more"), 0o644))
	}
	require.NoError(t, an.Subscribe(ctx, dir, ""))
	require.NoError(t, an.Drain(ctx))
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// Then: the reporter either saw the burst and drew its final line
	// complete, or the burst finished between two ticks
	got := strings.TrimSpace(out.String())
	if got == "" {
		return
	}
	lines := strings.Split(got, "\n")
	last := lines[len(lines)-1]
	assert.Contains(t, last, "Indexing [####################]")
	m := progressCount.FindStringSubmatch(last)
	require.Len(t, m, 3, last)
	assert.Equal(t, m[1], m[2], last)
}

var progressCount = regexp.MustCompile(`(\d+)/(\d+) files`)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
