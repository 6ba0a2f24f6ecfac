// Command jdgamectl trains feed-forward networks with a genetic algorithm and
// inspects, replays and renders the networks it saves.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/JD-Gaming/jd-gaming/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	cmd := command{stdout: stdout, stderr: stderr}
	switch args[0] {
	case "train":
		return cmd.train(ctx, args[1:])
	case "play":
		return cmd.play(ctx, args[1:])
	case "inspect":
		return cmd.inspect(ctx, args[1:])
	case "render":
		return cmd.render(ctx, args[1:])
	case "plot":
		return cmd.plot(ctx, args[1:])
	case "runs":
		return cmd.runs(ctx, args[1:])
	case "diagnostics":
		return cmd.diagnostics(ctx, args[1:])
	case "tasks":
		return cmd.tasks(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

const usage = "usage: jdgamectl <train|play|inspect|render|plot|runs|diagnostics|tasks> [flags]"

func usageError(msg string) error {
	return fmt.Errorf("%s\n%s", msg, usage)
}

type command struct {
	stdout io.Writer
	stderr io.Writer
}

func (c command) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// logFlags are shared by every command that logs.
type logFlags struct {
	level string
	json  bool
}

func (l *logFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&l.level, "log-level", "info", "log level: debug, info, warn or error")
	fs.BoolVar(&l.json, "log-json", false, "log as JSON")
}

func (l *logFlags) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// storeFlags select and open a store backend.
type storeFlags struct {
	kind string
	path string
}

func (s *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.kind, "store", "dir", "store backend: dir, sqlite or memory")
	fs.StringVar(&s.path, "store-path", "brains", "checkpoint directory or sqlite file")
}

func (s *storeFlags) open(ctx context.Context) (storage.Store, error) {
	return openStore(ctx, s.kind, s.path)
}

func openStore(ctx context.Context, kind, path string) (storage.Store, error) {
	store, err := storage.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("open %s store %s: %w", kind, path, err)
	}
	return store, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func requireArgs(fs *flag.FlagSet, what string) ([]string, error) {
	if fs.NArg() == 0 {
		return nil, fmt.Errorf("%s: missing %s", fs.Name(), what)
	}
	return fs.Args(), nil
}

func requireRunID(fs *flag.FlagSet, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New(fs.Name() + ": -run is required")
	}
	return nil
}
