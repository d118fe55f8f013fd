package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	learnerID    string
	collectionID string
	activityID   string
	scoreValue   float64
	explain      bool
)

func init() {
	recommendCmd.Flags().StringVar(&learnerID, "learner", "", "Learner id or external id (required)")
	recommendCmd.Flags().StringVar(&collectionID, "collection", "", "Restrict to a collection")
	recommendCmd.Flags().BoolVar(&explain, "explain", false, "Print every candidate with its score")
	_ = recommendCmd.MarkFlagRequired("learner")

	submitScoreCmd.Flags().StringVar(&learnerID, "learner", "", "Learner id or external id (required)")
	submitScoreCmd.Flags().StringVar(&activityID, "activity", "", "Activity id (required)")
	submitScoreCmd.Flags().Float64Var(&scoreValue, "score", 0, "Score in [0,1]")
	_ = submitScoreCmd.MarkFlagRequired("learner")
	_ = submitScoreCmd.MarkFlagRequired("activity")
	_ = submitScoreCmd.MarkFlagRequired("score")

	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(submitScoreCmd)
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend the next activity for a learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var cid uuid.UUID
		if collectionID != "" {
			var err error
			if cid, err = parseID("collection", collectionID); err != nil {
				return err
			}
		}
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		lid, err := a.Store.ResolveLearner(ctx, learnerID)
		if err != nil {
			return err
		}

		if explain {
			ranked, err := a.Engine.Explain(ctx, lid, cid)
			if err != nil {
				return err
			}
			return printJSON(cmd, ranked)
		}
		id, ok, err := a.Engine.Recommend(ctx, lid, cid)
		if err != nil {
			return err
		}
		if !ok {
			return printJSON(cmd, map[string]any{"complete": true})
		}
		return printJSON(cmd, map[string]any{"activity_id": id})
	},
}

var submitScoreCmd = &cobra.Command{
	Use:   "submit-score",
	Short: "Record a score and update the learner's mastery",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		aid, err := parseID("activity", activityID)
		if err != nil {
			return err
		}
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		lid, err := a.Store.ResolveLearner(ctx, learnerID)
		if err != nil {
			return err
		}
		return a.Engine.UpdateFromScore(ctx, lid, aid, scoreValue)
	},
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", name, raw, err)
	}
	return id, nil
}
