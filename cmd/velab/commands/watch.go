package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// settle is how long the watcher waits after the last change before it
// elaborates again. Editors often write a file in several steps.
const settle = 150 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch design.yaml",
	Short: "Re-elaborate a design whenever it changes",
	Long: `Elaborate the design, then watch the design file and its config
and elaborate again after every change. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watch(ctx, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// watchedFiles lists the files whose change triggers a new run.
func watchedFiles(design string) []string {
	files := []string{design}
	if opts.configPath != "" {
		files = append(files, opts.configPath)
	} else {
		dir := filepath.Dir(design)
		for _, name := range []string{"velab.yaml", ".velab.yaml", "velab.json"} {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files
}

func watch(ctx context.Context, design string, out, stderr io.Writer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	// Directories are watched rather than files so that editors which
	// replace the file on save keep being followed.
	wanted := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range watchedFiles(design) {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	runOnce := func() {
		if err := elaborateFile(design, out, stderr); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
		}
		fmt.Fprintf(stderr, "watching %s\n", design)
	}
	runOnce()

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !wanted[abs] {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(stderr, "watch error:", err)
		case <-timer.C:
			runOnce()
		}
	}
}
