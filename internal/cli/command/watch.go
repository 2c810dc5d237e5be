package command

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/infra/shutdown"
	"github.com/calderhale/keepsake-go/internal/storage"
)

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Print saves directory changes as they happen, until interrupted",
		Action: watch,
	}
}

func watch(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	layout := storage.Layout{Dir: cfg.Saves.Dir}
	if err := layout.EnsureDirs(); err != nil {
		return err
	}
	names := artifactNames(layout, cfg.Saves.MaxSlots)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file watcher unavailable: %w", err)
	}
	if err := watcher.Add(cfg.Saves.Dir); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(layout.BackupDir()); err != nil {
		watcher.Close()
		return err
	}

	fmt.Printf("Watching %s (ctrl-c to stop)\n", cfg.Saves.Dir)

	sh := shutdown.NewHandler(time.Second)
	sh.OnShutdown(func(context.Context) error {
		return watcher.Close()
	})

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if line, ok := eventLine(ev, names, layout, time.Now()); ok {
					fmt.Println(line)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				PrintError("watch: %v", err)
			}
		}
	}()

	return sh.Wait()
}

// artifactNames maps known artifact base names to descriptions.
func artifactNames(layout storage.Layout, maxSlots int) map[string]string {
	names := map[string]string{
		filepath.Base(layout.QuicksavePath()): "quicksave",
	}
	for slot := 0; slot < maxSlots; slot++ {
		names[filepath.Base(layout.SlotPath(slot))] = fmt.Sprintf("slot %d artifact", slot)
		names[filepath.Base(layout.MetadataPath(slot))] = fmt.Sprintf("slot %d metadata", slot)
		names[filepath.Base(layout.ScreenshotPath(slot))] = fmt.Sprintf("slot %d screenshot", slot)
	}
	return names
}

// eventLine formats one change for display. Unknown names report
// ok=false and are skipped, except under the backup directory, where
// names carry a timestamp and vary.
func eventLine(ev fsnotify.Event, names map[string]string, layout storage.Layout, at time.Time) (string, bool) {
	base := filepath.Base(ev.Name)

	// Atomic writes go through temp files; the rename into place is
	// reported against the final name.
	if strings.HasSuffix(base, ".tmp") {
		return "", false
	}

	what, known := names[base]
	if !known {
		if filepath.Dir(ev.Name) != layout.BackupDir() {
			return "", false
		}
		what = "backup " + base
	}

	return fmt.Sprintf("%s  %-7s %s", at.Format("15:04:05"), eventVerb(ev.Op), what), true
}

func eventVerb(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "created"
	case op.Has(fsnotify.Write):
		return "written"
	case op.Has(fsnotify.Remove):
		return "removed"
	case op.Has(fsnotify.Rename):
		return "renamed"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return op.String()
	}
}
