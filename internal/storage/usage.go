package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tmarsden/scanpulse/internal/domain/models"
)

// ScanStoreSizer is the slice of the repository the usage reporter needs.
type ScanStoreSizer interface {
	ScanStoreBytes(ctx context.Context) (int64, error)
}

// UsageReporter assembles the storage usage snapshot for reports and the
// API: database bytes for the scan store, filesystem bytes for the
// options store and the task logs.
//
// The options store belongs to a separate application. It is stat'ed by
// path only and never opened; a missing path simply counts as zero.
type UsageReporter struct {
	store            ScanStoreSizer
	optionsStorePath string
	taskLogDir       string
}

// NewUsageReporter wires the reporter. Either path may be empty.
func NewUsageReporter(store ScanStoreSizer, optionsStorePath, taskLogDir string) *UsageReporter {
	return &UsageReporter{
		store:            store,
		optionsStorePath: optionsStorePath,
		taskLogDir:       taskLogDir,
	}
}

// Snapshot sizes everything and totals it. Only the scan-store query can
// fail; filesystem paths degrade to zero.
func (u *UsageReporter) Snapshot(ctx context.Context) (models.StorageUsage, error) {
	scanBytes, err := u.store.ScanStoreBytes(ctx)
	if err != nil {
		return models.StorageUsage{}, err
	}
	usage := models.StorageUsage{
		ScanStoreBytes:    scanBytes,
		OptionsStoreBytes: pathBytes(u.optionsStorePath),
		TaskLogBytes:      pathBytes(u.taskLogDir),
	}
	usage.TotalBytes = usage.ScanStoreBytes + usage.OptionsStoreBytes + usage.TaskLogBytes
	return usage, nil
}

// pathBytes returns the size of a file, or the recursive size of a
// directory. Anything unreadable counts as zero.
func pathBytes(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}
