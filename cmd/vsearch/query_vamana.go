package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/bruteforce"
	"github.com/hupe1980/vsearch/group"
	"github.com/hupe1980/vsearch/internal/cache"
	"github.com/hupe1980/vsearch/recall"
	"github.com/hupe1980/vsearch/storage"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/vamana"
)

func newQueryVamanaCmd() *cobra.Command {
	var (
		indexURI       string
		queryURI       string
		dbURI          string
		groundtruthURI string
		outputURI      string
		dim            int
		k              int
		l              int
		nqueries       int
	)

	cmd := &cobra.Command{
		Use:   "query-vamana",
		Short: "Serve top-k queries against a built Vamana graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexURI == "" || queryURI == "" || outputURI == "" || dim <= 0 || k <= 0 {
				return fmt.Errorf("vsearch: --index_uri, --query_uri, --output_uri, --dim, and --k are required")
			}

			deps, err := newCLIDeps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()
			ctx := cmd.Context()

			store, err := storage.OpenGroup(ctx, indexURI)
			if err != nil {
				return err
			}
			// Tagged CacheKindGraph so repeated neighbor-block reads during
			// the greedy search across all queries in this invocation hit
			// the shared block cache instead of the backing store.
			if deps.blockCache != nil {
				store = blobstore.NewCachingStore(store, deps.blockCache, cache.CacheKindGraph, deps.cacheBlockSize)
			}
			idx, err := group.ReadVamana(ctx, store, group.CurrentVersion)
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

			opts := vamana.NewQueryOptions(k,
				vamana.WithL(l),
				vamana.WithQueryWorkers(deps.workers),
				vamana.WithQueryScores(true),
				vamana.WithQueryLogger(deps.logger),
				vamana.WithQueryRecorder(deps.recorder),
			)

			res, err := vamana.Query(ctx, idx, queries, opts)
			if err != nil {
				return err
			}

			if err := writeUint64Rows(ctx, outputURI, res.IDs, k); err != nil {
				return err
			}

			if err := reportVamanaRecall(ctx, deps, dbURI, groundtruthURI, queries, res.IDs, k); err != nil {
				return err
			}

			deps.reportSummary(cmd)
			return nil
		},
	}

	cmd.Flags().StringVar(&indexURI, "index_uri", "", "group directory holding the built Vamana artifacts")
	cmd.Flags().StringVar(&queryURI, "query_uri", "", "flat float32 array of query vectors")
	cmd.Flags().StringVar(&dbURI, "db_uri", "", "flat float32 array of the original database, used for on-the-fly ground truth")
	cmd.Flags().StringVar(&groundtruthURI, "groundtruth_uri", "", "flat uint64 array of ground-truth neighbor ids, row-major per query")
	cmd.Flags().StringVar(&outputURI, "output_uri", "", "destination for the flat uint64 array of result ids")
	cmd.Flags().IntVar(&dim, "dim", 0, "vector dimension")
	cmd.Flags().IntVar(&k, "k", 0, "number of nearest neighbors per query")
	cmd.Flags().IntVar(&l, "l", 0, "query-time search list size (0 = build-time LBuild)")
	cmd.Flags().IntVar(&nqueries, "nqueries", 0, "number of queries to serve from query_uri (0 = all)")

	return cmd
}

func reportVamanaRecall(ctx context.Context, deps *cliDeps, dbURI, groundtruthURI string, queries *tensor.ColMajorMatrix[float32], resultIDs [][]uint64, k int) error {
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
