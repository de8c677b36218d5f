package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	progressEvaluator string
	resetConfirmed    bool
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show how many assets an evaluator has rated",
	RunE:  runProgress,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every asset, evaluation and sync cursor",
	Long: `Drop every asset, evaluation and sync cursor.

This cannot be undone. Export evaluations first if you need them.
Refuses to run while a sync holds the run lock.`,
	RunE: runReset,
}

func init() {
	progressCmd.Flags().StringVar(&progressEvaluator, "evaluator", "", "evaluator id")
	_ = progressCmd.MarkFlagRequired("evaluator")

	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the reset")
}

func runProgress(cmd *cobra.Command, args []string) error {
	p, err := application.Services.Catalog.GetProgress(cmd.Context(), progressEvaluator)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), p)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetConfirmed {
		return fmt.Errorf("reset drops all catalog data; pass --yes to confirm")
	}
	if err := application.Services.Admin.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "catalog reset")
	return nil
}
