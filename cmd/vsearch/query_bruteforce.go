package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vsearch/bruteforce"
	"github.com/hupe1980/vsearch/recall"
	"github.com/hupe1980/vsearch/tensor"
)

// newQueryBruteforceCmd exposes the exact top-k kernels directly: --alg
// selects qv (per-query heap) or gemm (column-distance buffer) scanning,
// and --nth swaps gemm's heap-based column selection for the
// nth_element/quickselect alternative the top-k selector names as its
// alternative strategy.
func newQueryBruteforceCmd() *cobra.Command {
	var (
		dbURI          string
		queryURI       string
		groundtruthURI string
		outputURI      string
		dim            int
		k              int
		nqueries       int
		alg            string
		nth            bool
	)

	cmd := &cobra.Command{
		Use:   "query-bruteforce",
		Short: "Serve exact top-k queries against a full database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbURI == "" || queryURI == "" || outputURI == "" || dim <= 0 || k <= 0 {
				return fmt.Errorf("vsearch: --db_uri, --query_uri, --output_uri, --dim, and --k are required")
			}
			if alg != "qv" && alg != "gemm" {
				return fmt.Errorf("vsearch: --alg must be qv or gemm, got %q", alg)
			}

			deps, err := newCLIDeps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()
			ctx := cmd.Context()

			db, err := loadMatrix(ctx, dbURI, dim)
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

			opts := bruteforce.Options{K: k, NumWorkers: deps.workers, WithScores: true}

			var res *bruteforce.Result
			switch {
			case alg == "gemm" && nth:
				res, err = bruteforce.GemmNthElement(ctx, db, queries, opts)
			case alg == "gemm":
				res, err = bruteforce.Gemm(ctx, db, queries, opts)
			default:
				res, err = bruteforce.QV(ctx, db, queries, opts)
			}
			if err != nil {
				return err
			}

			if err := writeUint64Rows(ctx, outputURI, res.IDs, k); err != nil {
				return err
			}

			if groundtruthURI != "" {
				truth, err := loadGroundTruthRows(ctx, groundtruthURI, queries.NumCols())
				if err != nil {
					return err
				}
				report, err := recall.Compute(res.IDs, truth, k)
				if err != nil {
					return err
				}
				deps.logger.Info("recall report", "k", report.K, "queries", len(report.PerQuery), "recall_at_k", report.RecallAtK)
			}

			deps.reportSummary(cmd)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURI, "db_uri", "", "flat float32 array of the database vectors")
	cmd.Flags().StringVar(&queryURI, "query_uri", "", "flat float32 array of query vectors")
	cmd.Flags().StringVar(&groundtruthURI, "groundtruth_uri", "", "flat uint64 array of ground-truth neighbor ids, row-major per query")
	cmd.Flags().StringVar(&outputURI, "output_uri", "", "destination for the flat uint64 array of result ids")
	cmd.Flags().IntVar(&dim, "dim", 0, "vector dimension")
	cmd.Flags().IntVar(&k, "k", 0, "number of nearest neighbors per query")
	cmd.Flags().IntVar(&nqueries, "nqueries", 0, "number of queries to serve from query_uri (0 = all)")
	cmd.Flags().StringVar(&alg, "alg", "qv", "kernel variant: qv (per-query heap) or gemm (column-distance buffer)")
	cmd.Flags().BoolVar(&nth, "nth", false, "with --alg=gemm, select via nth_element/quickselect instead of a heap")

	return cmd
}
