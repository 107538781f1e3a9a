// Package testcollector provides an implementation of stats.Collector that
// stores recorded metrics for verification in tests.
package testcollector

import (
	"time"

	"github.com/mpsync/core/stats"
)

// Collector implements stats.Collector and records every call it receives,
// keyed by path where that makes sense.
type Collector struct {
	stats.NoopCollector

	Diffs     []stats.DiffCounts
	Downloads map[string]stats.DownloadStat
	Prunes    []stats.PruneStat
}

// New returns a new test Collector with its maps initialized.
func New() *Collector {
	return &Collector{
		Downloads: make(map[string]stats.DownloadStat),
	}
}

// AfterDiff records the diff counts for later assertion.
func (c *Collector) AfterDiff(counts stats.DiffCounts, runtime time.Duration) {
	c.Diffs = append(c.Diffs, counts)
}

// AfterDownload records the download outcome by relative path.
func (c *Collector) AfterDownload(stat stats.DownloadStat) {
	c.Downloads[stat.RelativePath] = stat
}

// AfterPrune records the prune outcome.
func (c *Collector) AfterPrune(stat stats.PruneStat) {
	c.Prunes = append(c.Prunes, stat)
}

// DownloadErr returns the error recorded for path, if any.
func (c *Collector) DownloadErr(path string) error {
	return c.Downloads[path].Err
}
