package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/adaptive-engine/internal/temporalx/estimation"
)

var (
	estimateEta      float64
	estimateM        float64
	estimateTemporal bool
)

func init() {
	estimateCmd.Flags().Float64Var(&estimateEta, "eta", -1, "Relevance threshold; negative keeps BKT_RELEVANCE_THRESHOLD")
	estimateCmd.Flags().Float64Var(&estimateM, "M", -1, "Information threshold; negative keeps BKT_INFORMATION_THRESHOLD")
	estimateCmd.Flags().BoolVar(&estimateTemporal, "temporal", false, "Submit the run to the Temporal worker instead of running in-process")
	rootCmd.AddCommand(estimateCmd)
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Re-estimate guess, slip, transit and priors from the score log",
	Long: `Re-estimate the model parameters from every learner's score history and swap
them in.

Examples:
  # Run in-process with the configured thresholds
  engine estimate

  # Looser evidence requirements
  engine estimate --eta 0.005 --M 10

  # Hand the run to the worker; fails if a run is already in flight
  engine estimate --temporal`,
	RunE: runEstimate,
}

func runEstimate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var in estimation.Input
	if estimateEta >= 0 {
		in.RelevanceThreshold = &estimateEta
	}
	if estimateM >= 0 {
		in.InformationThreshold = &estimateM
	}

	if estimateTemporal {
		tc, err := a.ConnectTemporal()
		if err != nil {
			return err
		}
		if tc == nil {
			return fmt.Errorf("--temporal needs TEMPORAL_ADDRESS")
		}
		run, err := estimation.Start(ctx, tc, a.Cfg.Temporal.TaskQueue, in)
		if err != nil {
			return err
		}
		var out estimation.Output
		if err := run.Get(ctx, &out); err != nil {
			return fmt.Errorf("estimation workflow: %w", err)
		}
		return printJSON(cmd, out)
	}

	res, err := a.Engine.RunBatchEstimation(ctx, estimation.Apply(a.Engine.Config(), in))
	if err != nil {
		return err
	}
	return printJSON(cmd, estimation.Output{
		Learners:    res.Learners,
		Submissions: res.Submissions,
		Sparse:      res.Rejections.Sparse,
		Degenerate:  res.Rejections.Degenerate,
	})
}
