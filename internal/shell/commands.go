package shell

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// command is one shell command. run reports whether the session ends.
type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, s *Shell, args []string) (exit bool, err error)
}

var commands = map[string]command{}

func register(c command) {
	commands[c.name] = c
}

func init() {
	register(command{
		name: "q", usage: "q <query>",
		help: "List files containing query as indexed right now",
		run:  runQuery,
	})
	register(command{
		name: "qw", usage: "qw <query>",
		help: "Wait for pending indexing, then list files containing query",
		run:  runDelayedQuery,
	})
	register(command{
		name: "sub", usage: "sub <path> [pattern]",
		help: "Index a directory or file and follow its changes",
		run:  runSubscribe,
	})
	register(command{
		name: "unsub", usage: "unsub <path> [pattern]",
		help: "Stop following a path, or one of its patterns",
		run:  runUnsubscribe,
	})
	register(command{
		name: "index?", usage: "index?",
		help: "Tell whether indexing is in progress",
		run:  runProgress,
	})
	register(command{
		name: "sub?", usage: "sub?",
		help: "List subscriptions",
		run:  runSubscriptions,
	})
	register(command{
		name: "stats", usage: "stats [--json]",
		help: "Show index and queue statistics",
		run:  runStats,
	})
	register(command{
		name: "help", usage: "help",
		help: "Show this help",
		run:  runHelp,
	})
	register(command{
		name: "exit", usage: "exit",
		help: "Leave the shell",
		run:  func(context.Context, *Shell, []string) (bool, error) { return true, nil },
	})
}

// commandNames returns every command name, sorted.
func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// completeCommand completes the command word of line.
func completeCommand(line string) []string {
	if strings.ContainsRune(line, ' ') {
		return nil
	}
	var out []string
	for _, name := range commandNames() {
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	return out
}

func runQuery(_ context.Context, s *Shell, args []string) (bool, error) {
	if len(args) < 1 {
		return false, nil
	}
	s.printer.SearchResults(args[0], s.engine.Search(args[0]))
	return false, nil
}

func runDelayedQuery(ctx context.Context, s *Shell, args []string) (bool, error) {
	if len(args) < 1 {
		return false, nil
	}
	files, err := s.engine.DelayedSearch(ctx, args[0])
	if err != nil {
		return false, err
	}
	s.printer.SearchResults(args[0], files)
	return false, nil
}

func runSubscribe(ctx context.Context, s *Shell, args []string) (bool, error) {
	if len(args) < 1 {
		return false, nil
	}
	path, pattern := args[0], ""
	if len(args) > 1 {
		pattern = args[1]
	}
	s.printer.Subscribing(path)
	return false, s.engine.Subscribe(ctx, path, pattern)
}

func runUnsubscribe(ctx context.Context, s *Shell, args []string) (bool, error) {
	if len(args) < 1 {
		return false, nil
	}
	path, pattern := args[0], ""
	if len(args) > 1 {
		pattern = args[1]
	}
	s.printer.Unsubscribing(path)
	return false, s.engine.Unsubscribe(ctx, path, pattern)
}

func runProgress(_ context.Context, s *Shell, _ []string) (bool, error) {
	s.printer.IndexingState(s.engine.IsIndexing())
	return false, nil
}

func runSubscriptions(_ context.Context, s *Shell, _ []string) (bool, error) {
	s.printer.Subscriptions(s.engine.Subscriptions())
	return false, nil
}

func runStats(_ context.Context, s *Shell, args []string) (bool, error) {
	info := StatusInfo(s.engine)
	info.Tokenizer = s.tokenizer
	info.StartedAt = s.started
	if len(args) > 0 && args[0] == "--json" {
		return false, s.status.RenderJSON(info)
	}
	return false, s.status.Render(info)
}

func runHelp(_ context.Context, s *Shell, _ []string) (bool, error) {
	w := s.printer.Writer()
	_, _ = fmt.Fprintln(w, "Commands:")
	for _, name := range commandNames() {
		c := commands[name]
		_, _ = fmt.Fprintf(w, "  %-22s %s\n", c.usage, c.help)
	}
	return false, nil
}
