package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/store"
	"github.com/parleybot/parley/internal/usage"
)

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-user usage and spend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to Parley config file")
	return cmd
}

func runStats(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	st, err := store.New(gormDB)
	if err != nil {
		return err
	}

	users, err := st.AllUsers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(out, "No registered users.")
		return nil
	}

	calc := usage.NewCalculator(cfg.Pricing)
	var grand float64
	for _, u := range users {
		rows, err := st.Usage(u.ID)
		if err != nil {
			return err
		}
		total := calc.Total(rows, u.NGeneratedImages, u.NTranscribedSeconds)
		grand += total

		name := u.Username
		if name == "" {
			name = u.PlatformUserID
		}
		fmt.Fprintf(out, "%s (%s): $%.3f\n", name, u.Platform, total)
		for _, row := range rows {
			fmt.Fprintf(out, "  %s: %d in / %d out tokens ($%.3f)\n",
				row.Model, row.InputTokens, row.OutputTokens,
				calc.TokenCost(row.Model, row.InputTokens, row.OutputTokens))
		}
		if u.NGeneratedImages > 0 {
			fmt.Fprintf(out, "  %d images ($%.3f)\n", u.NGeneratedImages, calc.ImageCost(u.NGeneratedImages))
		}
		if u.NTranscribedSeconds > 0 {
			fmt.Fprintf(out, "  %.0fs audio ($%.3f)\n", u.NTranscribedSeconds, calc.AudioCost(u.NTranscribedSeconds))
		}
	}
	fmt.Fprintf(out, "\nTotal: $%.3f\n", grand)
	return nil
}
