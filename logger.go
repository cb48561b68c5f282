// Package vsearch provides the ambient logging and instrumentation types
// shared across the build and query entry points of every engine
// (ivfflat, vamana, kmeans, bruteforce): a nil-safe *Logger and the
// companion vsearch/instrument package. There is no package-level
// logger — every entry point takes an explicit *Logger, defaulting to a
// discarding one when callers pass nil.
package vsearch

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with this package's domain-specific helper
// methods. A nil *Logger is valid and every method on it is a no-op, so
// callers never need a "logger != nil" guard before use.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger from handler. A nil handler defaults to a
// text handler on stderr at slog.LevelInfo.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that emits JSON lines to stderr at the
// given minimum level.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that emits human-readable text lines to
// stderr at the given minimum level.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger returns a Logger whose handler is set to an unreachable
// level, discarding every record. Used as the safe default when a
// caller passes nil rather than a configured Logger.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

func (l *Logger) orNoop() *Logger {
	if l == nil {
		return NoopLogger()
	}
	return l
}

// WithPartitions adds the partition count (IVF-Flat's K) to the logger.
func (l *Logger) WithPartitions(k int) *Logger {
	l = l.orNoop()
	return &Logger{Logger: l.Logger.With("partitions", k)}
}

// WithDimension adds a vector dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	l = l.orNoop()
	return &Logger{Logger: l.Logger.With("dimension", dim)}
}

// LogBuild logs an index build (IVF-Flat partitioning or Vamana graph
// construction), reporting n, the number of vectors indexed, and elapsed
// time.
func (l *Logger) LogBuild(ctx context.Context, kind string, n int, elapsed float64, err error) {
	l = l.orNoop()
	if err != nil {
		l.ErrorContext(ctx, "build failed", "kind", kind, "n", n, "error", err)
		return
	}
	l.InfoContext(ctx, "build completed", "kind", kind, "n", n, "elapsed_s", elapsed)
}

// LogQuery logs a batched query (IVF-Flat nprobe scan or Vamana greedy
// search), reporting the batch size, requested k, and elapsed time.
func (l *Logger) LogQuery(ctx context.Context, kind string, numQueries, k int, elapsed float64, err error) {
	l = l.orNoop()
	if err != nil {
		l.ErrorContext(ctx, "query failed", "kind", kind, "queries", numQueries, "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "query completed", "kind", kind, "queries", numQueries, "k", k, "elapsed_s", elapsed)
}

// LogPartition logs the outcome of one IVF-Flat partition assignment
// pass (a k-means iteration or the final shuffle), reporting the
// cluster count and, for the final pass, the largest partition size.
func (l *Logger) LogPartition(ctx context.Context, k, maxPartitionSize int, err error) {
	l = l.orNoop()
	if err != nil {
		l.ErrorContext(ctx, "partition failed", "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "partition completed", "k", k, "max_partition_size", maxPartitionSize)
}

// LogGraphBuild logs one node's insertion into a Vamana graph during
// Build: the greedy-search candidate pool size and the out-degree after
// robust pruning.
func (l *Logger) LogGraphBuild(ctx context.Context, node uint32, candidates, outDegree int) {
	l = l.orNoop()
	l.DebugContext(ctx, "graph node inserted", "node", node, "candidates", candidates, "out_degree", outDegree)
}
