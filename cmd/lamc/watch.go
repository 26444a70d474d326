package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
)

// watchFiles builds paths once and then rebuilds a file each time it is
// written, until ctx is cancelled. Build errors are reported and watching
// continues.
func watchFiles(ctx context.Context, b *builder, paths []string, outPath string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors often replace files on save, so watch the directories and
	// filter by name.
	abs := make([]string, len(paths))
	for i, p := range paths {
		if abs[i], err = filepath.Abs(p); err != nil {
			return err
		}
		dir := filepath.Dir(abs[i])
		if !slices.Contains(w.WatchList(), dir) {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
		}
	}

	rebuild := func(path string) {
		units, err := readUnits([]string{path})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		if err := buildAndReport(ctx, b, units, outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	for _, p := range paths {
		rebuild(p)
	}
	log.Info("watching", "files", len(paths))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			i := slices.Index(abs, filepath.Clean(ev.Name))
			if i < 0 {
				continue
			}
			log.Debug("changed", "path", paths[i], "op", ev.Op.String())
			fmt.Printf("== %s ==\n", paths[i])
			rebuild(paths[i])
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", "error", err.Error())
		}
	}
}
