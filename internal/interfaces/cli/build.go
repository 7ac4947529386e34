package cli

import (
	"github.com/spf13/cobra"

	"github.com/xtalforge/ccmodel/internal/application/build"
	"github.com/xtalforge/ccmodel/internal/domain/alignment"
	"github.com/xtalforge/ccmodel/internal/infrastructure/aligner"
	"github.com/xtalforge/ccmodel/internal/infrastructure/database/redis"
	"github.com/xtalforge/ccmodel/internal/infrastructure/dictionary"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
)

type buildOptions struct {
	targetsPath    string
	dictionaryPath string
	alignmentsDir  string
}

func newBuildCommand(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build candidate models for every target",
		Long:  "build aligns each target's candidate matches against its reference definition, applies the acceptance policy, and writes accepted models under build-local identifiers.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			rt, err := root.initRuntime(ctx)
			if err != nil {
				return err
			}

			targets, err := build.LoadTargets(opts.targetsPath)
			if err != nil {
				return err
			}
			dict, err := dictionary.Load(opts.dictionaryPath)
			if err != nil {
				return err
			}
			base, err := aligner.New(opts.alignmentsDir)
			if err != nil {
				return err
			}

			var al alignment.Aligner = base
			if rt.cfg.Redis.Enabled {
				client, err := redis.NewClient(ctx, rt.cfg.Redis)
				if err != nil {
					return err
				}
				defer client.Close()
				cache := redis.NewAlignmentCache(client, rt.cfg.Redis, rt.logger)
				al = alignment.WithCache(base, cache, rt.metrics)
			}

			svc := build.NewService(rt.cfg.Build, dict, al, rt.store, rt.metrics, rt.logger)
			_, report, err := svc.Run(ctx, targets)
			if err != nil {
				rt.logger.Error("build pass aborted", logging.Err(err))
				return err
			}
			return printJSON(report)
		},
	}

	cmd.Flags().StringVar(&opts.targetsPath, "targets", "", "JSON work list of targets and their candidate matches")
	cmd.Flags().StringVar(&opts.dictionaryPath, "dictionary", "", "JSON snapshot of reference molecule definitions")
	cmd.Flags().StringVar(&opts.alignmentsDir, "alignments", "", "directory of precomputed alignment results")
	_ = cmd.MarkFlagRequired("targets")
	_ = cmd.MarkFlagRequired("dictionary")
	_ = cmd.MarkFlagRequired("alignments")
	return cmd
}
