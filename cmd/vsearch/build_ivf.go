package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vsearch/group"
	"github.com/hupe1980/vsearch/ivfflat"
	"github.com/hupe1980/vsearch/kmeans"
	"github.com/hupe1980/vsearch/storage"
)

func newBuildIVFCmd() *cobra.Command {
	var (
		dbURI     string
		idsURI    string
		outputURI string
		dim       int
		nlist     int
		maxIters  int
		seed      int64
		init      string
	)

	cmd := &cobra.Command{
		Use:   "build-ivf",
		Short: "Partition a database into an IVF-Flat group",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newCLIDeps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()
			ctx := cmd.Context()

			if dbURI == "" || outputURI == "" || dim <= 0 || nlist <= 0 {
				return fmt.Errorf("vsearch: --db_uri, --output_uri, --dim, and --nlist are required")
			}

			db, err := loadMatrix(ctx, dbURI, dim)
			if err != nil {
				return err
			}

			ids, err := idsOrIdentity(ctx, idsURI, db.NumCols())
			if err != nil {
				return err
			}

			initStrategy := kmeans.InitKMeansPP
			if init == "random" {
				initStrategy = kmeans.InitRandom
			}

			opts := ivfflat.NewBuildOptions(nlist,
				ivfflat.WithMaxIters(maxIters),
				ivfflat.WithInit(initStrategy),
				ivfflat.WithSeed(seed),
				ivfflat.WithBuildWorkers(deps.workers),
				ivfflat.WithBuildLogger(deps.logger),
				ivfflat.WithBuildRecorder(deps.recorder),
			)

			g, err := ivfflat.Build(ctx, db, db, ids, opts)
			if err != nil {
				return err
			}

			store, err := storage.OpenGroup(ctx, outputURI)
			if err != nil {
				return err
			}
			if err := group.WriteIVFStaged(ctx, store, g); err != nil {
				return err
			}

			deps.reportSummary(cmd)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURI, "db_uri", "", "flat float32 array of the database vectors to partition")
	cmd.Flags().StringVar(&idsURI, "ids_uri", "", "flat uint64 array of external ids, one per database vector (default: 0..N-1)")
	cmd.Flags().StringVar(&outputURI, "output_uri", "", "group directory to write the built IVF-Flat artifacts to")
	cmd.Flags().IntVar(&dim, "dim", 0, "vector dimension")
	cmd.Flags().IntVar(&nlist, "nlist", 0, "number of partitions (k-means K)")
	cmd.Flags().IntVar(&maxIters, "maxiters", 25, "maximum Lloyd iterations")
	cmd.Flags().Int64Var(&seed, "seed", 0, "centroid-seeding RNG seed")
	cmd.Flags().StringVar(&init, "init", "kmeanspp", "centroid seeding strategy: kmeanspp or random")

	return cmd
}

// idsOrIdentity loads external ids from idsURI, or synthesizes the
// identity mapping 0..n-1 when the build has no external id array of
// its own.
func idsOrIdentity(ctx context.Context, idsURI string, n int) ([]uint64, error) {
	if idsURI == "" {
		ids := make([]uint64, n)
		for i := range ids {
			ids[i] = uint64(i)
		}
		return ids, nil
	}
	return loadUint64Array(ctx, idsURI)
}
