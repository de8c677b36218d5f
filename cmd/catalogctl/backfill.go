package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/yungbote/imagerate-backend/internal/platform/logger"
	"github.com/yungbote/imagerate-backend/internal/services"
)

var (
	backfillSource string
	backfillPath   string
	backfillWatch  bool
)

const watchDebounce = 500 * time.Millisecond

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fill blank descriptive fields of catalog assets",
	Long: `Fill blank descriptive fields (style, category, description) of assets.

Sources:
  none             do nothing
  remote_metadata  copy from the object metadata captured at sync time
  mapping          read a YAML or JSON file keyed by remote id or group id

Values already set are never overwritten, so the command is safe to repeat.
With --watch and a mapping source, the file is re-applied whenever it changes.`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillSource, "source", "remote_metadata", "none, remote_metadata or mapping")
	backfillCmd.Flags().StringVar(&backfillPath, "path", "", "mapping file (mapping source only)")
	backfillCmd.Flags().BoolVar(&backfillWatch, "watch", false, "re-apply the mapping file on change")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	src, err := services.ParseBackfillSource(backfillSource, backfillPath)
	if err != nil {
		return err
	}
	if err := applyBackfill(cmd, src); err != nil {
		return err
	}
	if !backfillWatch {
		return nil
	}
	mapping, ok := src.(services.MappingFileSource)
	if !ok {
		return fmt.Errorf("--watch requires --source mapping")
	}
	return watchMapping(cmd.Context(), application.Log, mapping.Path, func() {
		if err := applyBackfill(cmd, src); err != nil {
			application.Log.Warn("backfill after change failed", "path", mapping.Path, "error", err)
		}
	})
}

func applyBackfill(cmd *cobra.Command, src services.BackfillSource) error {
	report, err := application.Services.Backfill.Backfill(cmd.Context(), src)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), report)
}

// watchMapping calls apply after path settles following a change. The parent
// directory is watched so editors that replace the file are still seen.
func watchMapping(ctx context.Context, log *logger.Logger, path string, apply func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	log.Info("Watching mapping file", "path", abs)

	var debounce *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !touchesFile(event, abs) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			apply()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

func touchesFile(event fsnotify.Event, abs string) bool {
	if filepath.Clean(event.Name) != abs {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
