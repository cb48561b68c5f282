package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	vsearch "github.com/hupe1980/vsearch"
	"github.com/hupe1980/vsearch/instrument"
	"github.com/hupe1980/vsearch/internal/cache"
	"github.com/hupe1980/vsearch/internal/resource"
)

// NewRootCmd assembles the vsearch CLI: a root command carrying the
// persistent flags every subcommand reads (worker count, log format)
// plus the build and query subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vsearch",
		Short:         "Build and query IVF-Flat and Vamana vector indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Int("nthreads", 0, "worker pool size (0 = GOMAXPROCS)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().Bool("log-json", false, "emit structured logs as JSON instead of text")
	root.PersistentFlags().Int64("cache-bytes", 64<<20, "block cache capacity shared by the finite-RAM IVF and Vamana read paths (0 disables caching)")
	root.PersistentFlags().Int64("cache-block-bytes", 1<<20, "block size the cache reads and evicts in")
	root.PersistentFlags().String("disk-cache-dir", "", "directory for a persistent on-disk block cache, used instead of the in-memory one (for an s3:// store, avoids re-fetching blocks across invocations)")

	root.AddCommand(
		newBuildIVFCmd(),
		newBuildVamanaCmd(),
		newQueryIVFCmd(),
		newQueryVamanaCmd(),
		newQueryBruteforceCmd(),
	)
	return root
}

// cliDeps bundles the ambient logger and recorder every subcommand's
// RunE wires into the engine calls it makes, derived once from the
// root's persistent flags. blockCache is shared by every store a
// subcommand opens for reading during that invocation, tagged per use
// with a cache.CacheKind so IVF column-block and Vamana graph-block hit
// rates stay distinguishable under the one capacity budget.
type cliDeps struct {
	logger         *vsearch.Logger
	recorder       *instrument.Recorder
	workers        int
	blockCache     cache.BlockCache
	cacheBlockSize int64
}

func newCLIDeps(cmd *cobra.Command) (*cliDeps, error) {
	levelStr, _ := cmd.Flags().GetString("log-level")
	asJSON, _ := cmd.Flags().GetBool("log-json")
	workers, _ := cmd.Flags().GetInt("nthreads")
	cacheBytes, _ := cmd.Flags().GetInt64("cache-bytes")
	cacheBlockSize, _ := cmd.Flags().GetInt64("cache-block-bytes")
	diskCacheDir, _ := cmd.Flags().GetString("disk-cache-dir")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return nil, err
	}

	var logger *vsearch.Logger
	if asJSON {
		logger = vsearch.NewJSONLogger(level)
	} else {
		logger = vsearch.NewTextLogger(level)
	}

	var blockCache cache.BlockCache
	switch {
	case diskCacheDir != "":
		dc, err := cache.NewDiskBlockCache(cache.DiskCacheConfig{RootDir: diskCacheDir, MaxSizeBytes: cacheBytes})
		if err != nil {
			return nil, err
		}
		blockCache = dc
	case cacheBytes > 0:
		rc := resource.NewController(resource.Config{MemoryLimitBytes: cacheBytes})
		blockCache = cache.NewShardedLRUBlockCache(cacheBytes, rc)
	}

	return &cliDeps{
		logger:         logger,
		recorder:       instrument.New(),
		workers:        workers,
		blockCache:     blockCache,
		cacheBlockSize: cacheBlockSize,
	}, nil
}

// reportSummary prints one line per recorded bucket to stderr via the
// logger, so a `query` invocation's timing summary shows up next to its
// build/query log lines without a separate metrics exporter.
func (d *cliDeps) reportSummary(cmd *cobra.Command) {
	for name, stat := range d.recorder.Summary() {
		d.logger.Info("timing summary", "name", name, "count", stat.Count, "errors", stat.Errors, "avg_ns", stat.AvgNanos, "bytes", stat.Bytes)
	}
}

// Close releases the block cache's resources (the disk cache's pending
// background writes in particular); callers defer it right after
// newCLIDeps succeeds.
func (d *cliDeps) Close() error {
	if d.blockCache == nil {
		return nil
	}
	return d.blockCache.Close()
}
