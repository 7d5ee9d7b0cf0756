// Package diskmanager guards the recording volume: new sessions are
// refused once disk usage passes the configured threshold.
package diskmanager

import (
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/framescope/framescope/internal/errors"
)

// DiskSpaceInfo holds detailed usage numbers for one filesystem.
type DiskSpaceInfo struct {
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64
}

// Usage returns the usage percentage of the filesystem containing
// path.
func Usage(path string) (float64, error) {
	du, err := disk.Usage(path)
	if err != nil {
		return 0, errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryDiskUsage).
			Context("path", path).
			Build()
	}
	return du.UsedPercent, nil
}

// DetailedUsage returns byte-level usage of the filesystem containing
// path.
func DetailedUsage(path string) (DiskSpaceInfo, error) {
	du, err := disk.Usage(path)
	if err != nil {
		return DiskSpaceInfo{}, errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryDiskUsage).
			Context("path", path).
			Build()
	}
	return DiskSpaceInfo{
		TotalBytes: du.Total,
		UsedBytes:  du.Used,
		FreeBytes:  du.Free,
	}, nil
}

// EnsureBelow returns an error when the filesystem containing path is
// used above maxUsage percent.
func EnsureBelow(path string, maxUsage float64) error {
	usage, err := Usage(path)
	if err != nil {
		return err
	}
	if usage > maxUsage {
		return errors.Newf("disk usage %.1f%% exceeds limit %.1f%%", usage, maxUsage).
			Component("diskmanager").
			Category(errors.CategoryDiskUsage).
			Context("path", path).
			Context("usage_percent", usage).
			Context("max_usage_percent", maxUsage).
			Build()
	}
	return nil
}
