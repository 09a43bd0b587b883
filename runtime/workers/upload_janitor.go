package workers

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// referenceSource lists the blob paths committed messages still use.
type referenceSource interface {
	ReferencedFiles() (map[string]struct{}, error)
}

// UploadJanitor periodically sweeps the upload root and removes files
// no committed message references. The store already cleans up after
// every failure it sees, so the janitor only matters after a crash
// between writing bytes and committing the transaction; the minimum
// age keeps it from racing an upload that is still in flight.
type UploadJanitor struct {
	root     string
	ledger   referenceSource
	log      *slog.Logger
	interval time.Duration
	minAge   time.Duration
}

func NewUploadJanitor(root string, ledger referenceSource, log *slog.Logger,
	interval, minAge time.Duration) *UploadJanitor {
	return &UploadJanitor{
		root:     root,
		ledger:   ledger,
		log:      log,
		interval: interval,
		minAge:   minAge,
	}
}

func (w *UploadJanitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping upload janitor")
			return ctx.Err()
		case <-ticker.C:
			if err := w.Sweep(); err != nil {
				w.log.Error("Upload sweep failed", "error", err)
			}
		}
	}
}

// Sweep removes every unreferenced file older than the minimum age.
func (w *UploadJanitor) Sweep() error {
	if _, err := os.Stat(w.root); os.IsNotExist(err) {
		return nil
	}
	refs, err := w.ledger.ReferencedFiles()
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-w.minAge)

	return filepath.WalkDir(w.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		if _, referenced := refs[filepath.ToSlash(rel)]; referenced {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		w.log.Info("Removing orphaned upload", "path", rel)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			w.log.Error("Failed to remove orphaned upload", "path", rel, "error", err)
		}
		return nil
	})
}
