package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vsearch/group"
	"github.com/hupe1980/vsearch/storage"
	"github.com/hupe1980/vsearch/vamana"
)

func newBuildVamanaCmd() *cobra.Command {
	var (
		dbURI     string
		outputURI string
		dim       int
		lbuild    int
		rmax      int
		alpha     float32
	)

	cmd := &cobra.Command{
		Use:   "build-vamana",
		Short: "Build a Vamana graph index over a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newCLIDeps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()
			ctx := cmd.Context()

			if dbURI == "" || outputURI == "" || dim <= 0 {
				return fmt.Errorf("vsearch: --db_uri, --output_uri, and --dim are required")
			}

			db, err := loadMatrix(ctx, dbURI, dim)
			if err != nil {
				return err
			}

			opts := vamana.NewBuildOptions(
				vamana.WithLBuild(lbuild),
				vamana.WithRMax(rmax),
				vamana.WithAlpha(alpha),
				vamana.WithBuildLogger(deps.logger),
				vamana.WithBuildRecorder(deps.recorder),
			)

			idx, err := vamana.Build(ctx, db, opts)
			if err != nil {
				return err
			}

			store, err := storage.OpenGroup(ctx, outputURI)
			if err != nil {
				return err
			}
			if err := group.WriteVamanaStaged(ctx, store, idx); err != nil {
				return err
			}

			deps.reportSummary(cmd)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURI, "db_uri", "", "flat float32 array of the database vectors to index")
	cmd.Flags().StringVar(&outputURI, "output_uri", "", "group directory to write the built Vamana artifacts to")
	cmd.Flags().IntVar(&dim, "dim", 0, "vector dimension")
	cmd.Flags().IntVar(&lbuild, "lbuild", 100, "build-time greedy-search list size")
	cmd.Flags().IntVar(&rmax, "rmax", 64, "out-degree bound")
	cmd.Flags().Float32Var(&alpha, "alpha", 1.2, "single-pass diversification threshold")

	return cmd
}
