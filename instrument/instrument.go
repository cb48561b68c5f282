// Package instrument provides an explicit, never-global timing and
// counter registry that build/query call sites pass in to record named
// durations and byte counters, replacing a process-wide metrics
// singleton with a value every caller can thread through or substitute
// for a test double.
package instrument

import (
	"sync"
	"sync/atomic"
	"time"
)

// Recorder accumulates operation counts, durations, and byte totals
// under caller-chosen names (e.g. "ivfflat.build", "vamana.query").
// Safe for concurrent use; every method is nil-receiver-safe so callers
// can pass a nil *Recorder in place of Noop.
type Recorder struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count      atomic.Int64
	errors     atomic.Int64
	totalNanos atomic.Int64
	bytes      atomic.Int64
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{buckets: make(map[string]*bucket)}
}

// Noop is a Recorder equivalent that records nothing. It is a plain nil
// value: every Recorder method already treats a nil receiver as a
// no-op, so Noop exists only to give call sites an explicit,
// self-documenting default instead of passing a bare nil.
var Noop *Recorder

func (r *Recorder) bucketFor(name string) *bucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[name]
	if !ok {
		b = &bucket{}
		r.buckets[name] = b
	}
	return b
}

// Record adds one observation of dur (and, if err != nil, an error
// count) under name. Safe to call on a nil Recorder.
func (r *Recorder) Record(name string, dur time.Duration, err error) {
	if r == nil {
		return
	}
	b := r.bucketFor(name)
	b.count.Add(1)
	b.totalNanos.Add(dur.Nanoseconds())
	if err != nil {
		b.errors.Add(1)
	}
}

// AddBytes adds n to name's byte counter, independent of Record's
// count/duration tracking — used for artifact sizes written or read
// during a build or query. Safe to call on a nil Recorder.
func (r *Recorder) AddBytes(name string, n int64) {
	if r == nil {
		return
	}
	r.bucketFor(name).bytes.Add(n)
}

// Stat is a snapshot of one named bucket's accumulated state.
type Stat struct {
	Count      int64
	Errors     int64
	AvgNanos   int64
	TotalNanos int64
	Bytes      int64
}

// Summary returns a snapshot of every bucket recorded so far, keyed by
// name. A nil Recorder returns an empty map.
func (r *Recorder) Summary() map[string]Stat {
	out := make(map[string]Stat)
	if r == nil {
		return out
	}
	r.mu.Lock()
	names := make([]string, 0, len(r.buckets))
	bs := make([]*bucket, 0, len(r.buckets))
	for name, b := range r.buckets {
		names = append(names, name)
		bs = append(bs, b)
	}
	r.mu.Unlock()

	for i, name := range names {
		b := bs[i]
		count := b.count.Load()
		total := b.totalNanos.Load()
		var avg int64
		if count > 0 {
			avg = total / count
		}
		out[name] = Stat{
			Count:      count,
			Errors:     b.errors.Load(),
			AvgNanos:   avg,
			TotalNanos: total,
			Bytes:      b.bytes.Load(),
		}
	}
	return out
}
