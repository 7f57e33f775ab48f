package store

import (
	"os"
	"path/filepath"

	"github.com/monuverse/arch-of-peace-contract/config"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ErrDiskCritical is returned by DiskMonitor.Check when the store partition
// reached the terminate threshold.
var ErrDiskCritical = errors.New("disk usage critical")

const diskMonitorNamespace = "disk_monitor"

var (
	// Disk usage percentage metric
	diskUsagePercentage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: diskMonitorNamespace,
			Name:      "usage_percentage",
			Help:      "Current disk usage percentage for the monitored path",
		},
		[]string{"path"},
	)

	// Disk space metrics in bytes
	diskTotalSpace = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: diskMonitorNamespace,
			Name:      "total_bytes",
			Help:      "Total disk space in bytes for the monitored path",
		},
		[]string{"path"},
	)

	diskFreeSpace = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: diskMonitorNamespace,
			Name:      "free_bytes",
			Help:      "Free disk space in bytes for the monitored path",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(diskUsagePercentage)
	prometheus.MustRegister(diskTotalSpace)
	prometheus.MustRegister(diskFreeSpace)
}

// DiskMonitor checks the partition holding the episode store before state is
// written to it.
type DiskMonitor struct {
	path                string
	noticePercentage    int
	warnPercentage      int
	terminatePercentage int
	log                 *zap.Logger
}

// NewDiskMonitor creates a disk monitor for the store path using thresholds
// from config.
func NewDiskMonitor(cfg config.DBConfig, log *zap.Logger) *DiskMonitor {
	return &DiskMonitor{
		path:                cfg.Path,
		noticePercentage:    cfg.NoticePercentage,
		warnPercentage:      cfg.WarnPercentage,
		terminatePercentage: cfg.TerminatePercentage,
		log:                 log,
	}
}

type diskStats struct {
	usagePercentage int
	total           uint64
	free            uint64
}

// getDiskStats calculates disk usage statistics for the partition containing
// the store path.
func (d *DiskMonitor) getDiskStats() (diskStats, error) {
	absPath, err := filepath.Abs(d.path)
	if err != nil {
		return diskStats{}, errors.Wrap(err, "get disk stats")
	}

	if _, err := os.Stat(absPath); err != nil {
		return diskStats{}, errors.Wrap(err, "get disk stats")
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(absPath, &stat); err != nil {
		return diskStats{}, errors.Wrap(err, "get disk stats")
	}

	stats := diskStats{
		total: stat.Blocks * uint64(stat.Bsize),
		free:  stat.Bavail * uint64(stat.Bsize),
	}
	if stats.total > 0 && stats.free <= stats.total {
		stats.usagePercentage = int(((stats.total - stats.free) * 100) / stats.total)
	}
	return stats, nil
}

// Check logs the disk usage against the configured thresholds and returns
// ErrDiskCritical once the terminate threshold is reached.
func (d *DiskMonitor) Check() error {
	stats, err := d.getDiskStats()
	if err != nil {
		return errors.Wrap(err, "check disk usage")
	}

	diskUsagePercentage.WithLabelValues(d.path).Set(float64(stats.usagePercentage))
	diskTotalSpace.WithLabelValues(d.path).Set(float64(stats.total))
	diskFreeSpace.WithLabelValues(d.path).Set(float64(stats.free))

	fields := []zap.Field{
		zap.String("path", d.path),
		zap.Int("usage_percentage", stats.usagePercentage),
		zap.Uint64("free_bytes", stats.free),
		zap.Uint64("total_bytes", stats.total),
	}

	switch {
	case stats.usagePercentage >= d.terminatePercentage:
		d.log.Error(
			"disk usage critical",
			append(fields, zap.Int("threshold", d.terminatePercentage))...,
		)
		return errors.Wrapf(
			ErrDiskCritical,
			"check disk usage: %s at %d%%",
			d.path,
			stats.usagePercentage,
		)
	case stats.usagePercentage >= d.warnPercentage:
		d.log.Warn(
			"disk usage high",
			append(fields, zap.Int("threshold", d.warnPercentage))...,
		)
	case stats.usagePercentage >= d.noticePercentage:
		d.log.Info(
			"disk usage notice",
			append(fields, zap.Int("threshold", d.noticePercentage))...,
		)
	}
	return nil
}
