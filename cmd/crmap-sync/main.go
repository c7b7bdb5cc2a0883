// Command crmap-sync brings an old document snapshot up to date with a
// newer one. It exports both as JSON, sends the old document's state
// vector to the new one, applies the resulting diff to the old document,
// and exports and saves the merged result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrhy/crmap"
	"github.com/jrhy/crmap/persist/file"
	"github.com/rs/zerolog"
)

func main() {
	oldPath := flag.String("old", "old_doc.bin", "snapshot to update")
	newPath := flag.String("new", "new_doc.bin", "snapshot to update from")
	outDir := flag.String("out", ".", "directory for JSON exports and updated.bin")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	if err := run(context.Background(), log, *oldPath, *newPath, *outDir); err != nil {
		log.Error().Err(err).Msg("sync failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger, oldPath, newPath, outDir string) error {
	out := file.NewPersistForPath(outDir)
	oldDoc, err := load(ctx, log, oldPath)
	if err != nil {
		return err
	}
	if err := export(ctx, out, "old_doc.json", oldDoc); err != nil {
		return err
	}
	newDoc, err := load(ctx, log, newPath)
	if err != nil {
		return err
	}
	if err := export(ctx, out, "new_doc.json", newDoc); err != nil {
		return err
	}

	encodedSV := oldDoc.StateVector().Encode()
	update, err := newDoc.EncodeDiff(encodedSV)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	res, err := oldDoc.ApplyUpdate(update)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	log.Info().Int("bytes", len(update)).Int("applied", res.Applied).Int("skipped", res.Skipped).
		Stringer("sv", oldDoc.StateVector()).Msg("applied diff")

	if err := export(ctx, out, "updated_doc.json", oldDoc); err != nil {
		return err
	}
	cfg := &crmap.SnapshotConfig{StoreWith: out}
	if err := crmap.SaveSnapshot(ctx, cfg, "updated_doc.bin", oldDoc); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func load(ctx context.Context, log zerolog.Logger, path string) (*crmap.Doc, error) {
	cfg := &crmap.SnapshotConfig{
		StoreWith: file.NewPersistForPath(filepath.Dir(path)),
		Options:   &crmap.Options{Logger: &log},
	}
	d, err := crmap.LoadSnapshot(ctx, cfg, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("keys", d.Len()).Stringer("sv", d.StateVector()).Msg("loaded")
	return d, nil
}

func export(ctx context.Context, out crmap.Persist, name string, d *crmap.Doc) error {
	tree, err := d.Project()
	if err != nil {
		return fmt.Errorf("project %s: %w", name, err)
	}
	text, err := crmap.RenderJSON(tree)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return out.Store(ctx, name, append(text, '\n'))
}
