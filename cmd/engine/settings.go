package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/adaptive-engine/internal/app"
	"github.com/yungbote/adaptive-engine/internal/data/store"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
)

var assignName string

func init() {
	settingsAssignCmd.Flags().StringVar(&learnerID, "learner", "", "Learner id or external id (required)")
	settingsAssignCmd.Flags().StringVar(&assignName, "name", "", "Profile name; empty moves the learner to the fixed sequence")
	_ = settingsAssignCmd.MarkFlagRequired("learner")

	settingsCmd.AddCommand(settingsLoadCmd, settingsListCmd, settingsAssignCmd)
	rootCmd.AddCommand(settingsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage engine settings profiles",
}

var settingsLoadCmd = &cobra.Command{
	Use:   "load <profiles.yaml>",
	Short: "Upsert every profile in a YAML file by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		profiles, err := app.ParseProfiles(f)
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := app.ApplyProfiles(dbctx.Context{Ctx: cmd.Context()}, a.Repos.Settings, profiles); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d profiles\n", len(profiles))
		return nil
	},
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		rows, err := a.Repos.Settings.List(dbctx.Context{Ctx: cmd.Context()})
		if err != nil {
			return err
		}
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = store.SettingsFromDomain(r)
		}
		return printJSON(cmd, out)
	},
}

var settingsAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign a profile to a learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		lid, err := a.Store.ResolveLearner(ctx, learnerID)
		if err != nil {
			return err
		}
		dbc := dbctx.Context{Ctx: ctx}
		if err := a.Engine.InitializeLearner(ctx, lid); err != nil {
			return err
		}
		if assignName == "" {
			return a.Repos.Learners.SetSettings(dbc, lid, nil)
		}
		s, err := a.Repos.Settings.GetByName(dbc, assignName)
		if err != nil {
			return err
		}
		return a.Repos.Learners.SetSettings(dbc, lid, &s.ID)
	},
}
