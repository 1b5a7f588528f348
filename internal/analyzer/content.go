package analyzer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/cespare/xxhash/v2"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/store"
)

// readTokens reads path line by line and returns the union of the line
// tokens in lexical order, plus a fingerprint of the content.
func (a *FileAnalyzer) readTokens(ctx context.Context, path string) ([]string, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, ekerrors.IOError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, ekerrors.IOError(path, err)
	}
	if a.maxFileSize > 0 && info.Size() > a.maxFileSize {
		return nil, 0, ekerrors.New(ekerrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file exceeds %d bytes", a.maxFileSize), nil).
			WithDetail("path", path).
			WithDetail("size", fmt.Sprint(info.Size()))
	}

	h := xxhash.New()
	r := bufio.NewReader(io.TeeReader(f, h))
	tokens := make(store.Set)
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		line, err := r.ReadString('\n')
		if line != "" {
			for _, tok := range a.tokenizer.Tokenize(line) {
				tokens[tok] = struct{}{}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, ekerrors.IOError(path, err)
		}
	}
	return tokens.Sorted(), h.Sum64(), nil
}

// loadTokens is readTokens with failures logged and turned into an empty
// token set. ok is false when the content could not be read.
func (a *FileAnalyzer) loadTokens(ctx context.Context, path string) ([]string, uint64, bool) {
	tokens, digest, err := a.readTokens(ctx, path)
	if err == nil {
		a.metrics.FileTokenized("")
		return tokens, digest, true
	}
	if ctx.Err() != nil {
		return nil, 0, false
	}

	level := slog.LevelWarn
	if errors.Is(err, fs.ErrNotExist) {
		// Usually deleted while queued; the delete event follows.
		level = slog.LevelDebug
	}
	a.logger.Log(ctx, level, "cannot read file, indexing it as empty", ekerrors.LogAttrs(err)...)
	a.metrics.FileTokenized(ekerrors.GetCode(err))
	return nil, 0, false
}

func (a *FileAnalyzer) unchanged(res string, digest uint64) bool {
	if a.fingerprint == nil {
		return false
	}
	prev, ok := a.fingerprint.Get(res)
	return ok && prev == digest
}

// remember stores the fingerprint of a successful read and drops it after
// a failed one.
func (a *FileAnalyzer) remember(res string, digest uint64, ok bool) {
	if a.fingerprint == nil {
		return
	}
	if ok {
		a.fingerprint.Add(res, digest)
		return
	}
	a.fingerprint.Remove(res)
}

func (a *FileAnalyzer) forget(res string) {
	if a.fingerprint != nil {
		a.fingerprint.Remove(res)
	}
}

func (a *FileAnalyzer) moveFingerprint(from, to string) {
	if a.fingerprint == nil {
		return
	}
	digest, ok := a.fingerprint.Get(from)
	a.fingerprint.Remove(from)
	if ok {
		a.fingerprint.Add(to, digest)
	} else {
		a.fingerprint.Remove(to)
	}
}
