package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/bruteforce"
	"github.com/hupe1980/vsearch/group"
	"github.com/hupe1980/vsearch/internal/cache"
	"github.com/hupe1980/vsearch/ivfflat"
	"github.com/hupe1980/vsearch/recall"
	"github.com/hupe1980/vsearch/storage"
	"github.com/hupe1980/vsearch/tensor"
)

func newQueryIVFCmd() *cobra.Command {
	var (
		dbURI         string
		centroidsURI  string
		indexURI      string
		sizesURI      string
		partsURI      string
		idsURI        string
		queryURI      string
		groundtruthURI string
		outputURI     string
		dim           int
		k             int
		nprobe        int
		nqueries      int
		finite        bool
		blocksize     int
	)

	cmd := &cobra.Command{
		Use:   "query-ivf",
		Short: "Serve top-k queries against a built IVF-Flat group",
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexURI != "" && sizesURI != "" {
				return fmt.Errorf("vsearch: --index_uri and --sizes_uri are mutually exclusive")
			}
			if indexURI == "" && sizesURI == "" {
				return fmt.Errorf("vsearch: one of --index_uri or --sizes_uri is required")
			}
			if centroidsURI == "" || partsURI == "" || idsURI == "" || queryURI == "" || outputURI == "" || dim <= 0 || k <= 0 {
				return fmt.Errorf("vsearch: --centroids_uri, --parts_uri, --ids_uri, --query_uri, --output_uri, --dim, and --k are required")
			}

			deps, err := newCLIDeps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()
			ctx := cmd.Context()

			centroids, err := loadMatrix(ctx, centroidsURI, dim)
			if err != nil {
				return err
			}
			indices, err := loadIVFIndices(ctx, indexURI, sizesURI)
			if err != nil {
				return err
			}
			ids, err := loadUint64Array(ctx, idsURI)
			if err != nil {
				return err
			}
			queries, err := loadMatrix(ctx, queryURI, dim)
			if err != nil {
				return err
			}
			if nqueries > 0 && nqueries < queries.NumCols() {
				queries, err = tensor.ColMajorMatrixFrom(queries.Data()[:nqueries*dim], dim, nqueries)
				if err != nil {
					return err
				}
			}

			opts := ivfflat.NewQueryOptions(k,
				ivfflat.WithNProbe(nprobe),
				ivfflat.WithQueryWorkers(deps.workers),
				ivfflat.WithScores(true),
				ivfflat.WithBlockSize(blocksize),
				ivfflat.WithQueryLogger(deps.logger),
				ivfflat.WithQueryRecorder(deps.recorder),
			)

			var res *ivfflat.Result
			if finite {
				res, err = runFiniteIVF(ctx, deps, centroids, partsURI, ids, indices, queries, dim, opts)
			} else {
				res, err = runInfiniteIVF(ctx, centroids, partsURI, ids, indices, queries, dim, opts)
			}
			if err != nil {
				return err
			}

			if err := writeUint64Rows(ctx, outputURI, res.IDs, k); err != nil {
				return err
			}

			if err := reportIVFRecall(ctx, deps, dbURI, groundtruthURI, queries, res.IDs, k); err != nil {
				return err
			}

			deps.reportSummary(cmd)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURI, "db_uri", "", "flat float32 array of the original database, used to compute ground truth when --groundtruth_uri is absent")
	cmd.Flags().StringVar(&centroidsURI, "centroids_uri", "", "flat float32 array of partition centroids")
	cmd.Flags().StringVar(&indexURI, "index_uri", "", "flat int32 array of partition prefix-sum offsets, length K+1")
	cmd.Flags().StringVar(&sizesURI, "sizes_uri", "", "flat int32 array of per-partition sizes, length K (mutually exclusive with --index_uri)")
	cmd.Flags().StringVar(&partsURI, "parts_uri", "", "flat float32 array of shuffled, partition-contiguous vectors")
	cmd.Flags().StringVar(&idsURI, "ids_uri", "", "flat uint64 array of external ids, permuted to match parts_uri")
	cmd.Flags().StringVar(&queryURI, "query_uri", "", "flat float32 array of query vectors")
	cmd.Flags().StringVar(&groundtruthURI, "groundtruth_uri", "", "flat uint64 array of ground-truth neighbor ids, row-major per query")
	cmd.Flags().StringVar(&outputURI, "output_uri", "", "destination for the flat uint64 array of result ids")
	cmd.Flags().IntVar(&dim, "dim", 0, "vector dimension")
	cmd.Flags().IntVar(&k, "k", 0, "number of nearest neighbors per query")
	cmd.Flags().IntVar(&nprobe, "nprobe", 0, "number of partitions probed per query (0 = all)")
	cmd.Flags().IntVar(&nqueries, "nqueries", 0, "number of queries to serve from query_uri (0 = all)")
	cmd.Flags().BoolVar(&finite, "finite", false, "serve queries from the bounded-memory streaming path")
	cmd.Flags().IntVar(&blocksize, "blocksize", 10000, "column-block width streamed by the finite-RAM path")

	return cmd
}

// loadIVFIndices loads the partition prefix-sum offsets directly from
// --index_uri, or derives them from --sizes_uri by prefix-summing the
// per-partition sizes, mirroring group.readIndices' fallback for a
// group that only shipped the "0.1"/"0.2" sizes artifact.
func loadIVFIndices(ctx context.Context, indexURI, sizesURI string) ([]int32, error) {
	if indexURI != "" {
		return loadInt32Array(ctx, indexURI)
	}
	sizes, err := loadInt32Array(ctx, sizesURI)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(sizes)+1)
	for j, s := range sizes {
		out[j+1] = out[j] + s
	}
	return out, nil
}

func runInfiniteIVF(ctx context.Context, centroids *tensor.ColMajorMatrix[float32], partsURI string, ids []uint64, indices []int32, queries *tensor.ColMajorMatrix[float32], dim int, opts ivfflat.QueryOptions) (*ivfflat.Result, error) {
	vectors, err := loadMatrix(ctx, partsURI, dim)
	if err != nil {
		return nil, err
	}
	g := &ivfflat.Group{Centroids: centroids, Vectors: vectors, Ids: ids, Indices: indices}
	return ivfflat.InfiniteRAM(ctx, g, queries, opts)
}

// runFiniteIVF streams the shuffled-vector array through a
// CacheKindColumnBlocks-tagged CachingStore when the CLI's shared block
// cache is enabled, so repeated probes into the same partition's column
// blocks across queries in one invocation avoid re-reading them from the
// backing store.
func runFiniteIVF(ctx context.Context, deps *cliDeps, centroids *tensor.ColMajorMatrix[float32], partsURI string, ids []uint64, indices []int32, queries *tensor.ColMajorMatrix[float32], dim int, opts ivfflat.QueryOptions) (*ivfflat.Result, error) {
	store, name, err := storage.Open(ctx, partsURI)
	if err != nil {
		return nil, err
	}
	if deps.blockCache != nil {
		store = blobstore.NewCachingStore(store, deps.blockCache, cache.CacheKindColumnBlocks, deps.cacheBlockSize)
	}
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	src, err := group.OpenColumnBlob(blob, dim)
	if err != nil {
		return nil, err
	}
	return ivfflat.FiniteRAM(ctx, centroids, src, ids, indices, queries, opts)
}

// reportIVFRecall scores results against ground truth, preferring a
// precomputed --groundtruth_uri and falling back to an on-the-fly exact
// brute-force scan against --db_uri when no ground truth was supplied.
func reportIVFRecall(ctx context.Context, deps *cliDeps, dbURI, groundtruthURI string, queries *tensor.ColMajorMatrix[float32], resultIDs [][]uint64, k int) error {
	var truth [][]uint64
	var err error

	switch {
	case groundtruthURI != "":
		truth, err = loadGroundTruthRows(ctx, groundtruthURI, queries.NumCols())
	case dbURI != "":
		db, derr := loadMatrix(ctx, dbURI, queries.NumRows())
		if derr != nil {
			return derr
		}
		bfRes, berr := bruteforce.QV(ctx, db, queries, bruteforce.Options{K: k, NumWorkers: deps.workers})
		if berr != nil {
			return berr
		}
		truth = bfRes.IDs
	default:
		return nil
	}
	if err != nil {
		return err
	}

	report, err := recall.Compute(resultIDs, truth, k)
	if err != nil {
		return err
	}
	deps.logger.Info("recall report", "k", report.K, "queries", len(report.PerQuery), "recall_at_k", report.RecallAtK)
	return nil
}
