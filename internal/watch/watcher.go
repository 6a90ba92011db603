package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// InitialTrigger labels the unconditional build at startup.
const InitialTrigger = "(initial)"

// RunFunc is called each time the watcher triggers a rebuild.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult summarises a single rebuild for the status line.
type RunResult struct {
	Items    int
	Failures int
	Duration time.Duration
}

// Options configures the watch behaviour.
type Options struct {
	// Dirs are the source directories to watch recursively.
	Dirs []string

	// Debounce is the quiet period before triggering a rebuild. Zero
	// starts a rebuild right away; rebuilds are still serialised.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Logger: slog.Default(),
		Out:    os.Stderr,
	}
}

// Run performs one initial build, then rebuilds on every create, write or
// rename under opts.Dirs. It blocks until the context is cancelled or a
// SIGINT/SIGTERM signal is received, waits for an in-flight rebuild to
// return, and then returns nil.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if len(opts.Dirs) == 0 {
		return fmt.Errorf("no directories to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range opts.Dirs {
		if err := addRecursive(watcher, dir); err != nil {
			return fmt.Errorf("watching source directory: %w", err)
		}
	}

	// Trap SIGINT / SIGTERM for graceful shutdown.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", strings.Join(opts.Dirs, ", "), opts.Debounce)

	doRun(sigCtx, opts, runFn, Event{Name: InitialTrigger, Time: time.Now()})

	rebuilds := NewCoalescer(opts.Debounce, func(runCtx context.Context, ev Event) {
		doRun(runCtx, opts, runFn, ev)
	})

	runCtx, cancelRuns := context.WithCancel(sigCtx)
	rebuilds.Start(runCtx)

	defer func() {
		cancelRuns()
		rebuilds.Wait()
	}()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			at := time.Now()

			if !isRelevant(event) {
				continue
			}

			// If a new directory was created, watch it too.
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if addErr := addRecursive(watcher, event.Name); addErr != nil {
						opts.Logger.Warn("watching new directory", slog.String("path", event.Name), slog.String("error", addErr.Error()))
					}
				}
			}

			opts.Logger.Debug("change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))

			rebuilds.Trigger(Event{Name: event.Name, Time: at})

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// doRun executes a single rebuild and prints the status line, stamped
// with the time the triggering event was observed.
func doRun(ctx context.Context, opts Options, runFn RunFunc, ev Event) {
	now := ev.Time.Format("15:04:05")
	trigger := ev.Name

	fmt.Fprintf(opts.Out, "[%s] reloading assets: %s\n", now, trigger)

	result, err := runFn(ctx)
	if err != nil {
		fmt.Fprintf(opts.Out, "[%s] %s → ERROR: %v\n", now, trigger, err)
		return
	}

	status := "OK"
	if result.Failures > 0 {
		status = fmt.Sprintf("OK with %d failure(s)", result.Failures)
	}

	fmt.Fprintf(opts.Out, "[%s] %s → %s (%d items, %s)\n",
		now, trigger, status, result.Items, result.Duration.Round(time.Millisecond))
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories (e.g., .git).
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}

// isRelevant keeps create, write and rename events on regular asset files.
func isRelevant(event fsnotify.Event) bool {
	if event.Op == 0 {
		return false
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)

	// Ignore editor temporary files and hidden files.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#") {
		return false
	}

	return true
}
