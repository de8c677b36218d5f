package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/imagerate-backend/internal/app"
)

var (
	envFile string

	// Set by initializeApp for every subcommand.
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Operate the image catalog and evaluation ledger",
	Long: `catalogctl runs catalog maintenance against the same store the HTTP
service uses: reconcile against the bucket, backfill descriptive fields,
export evaluations, and inspect sync state.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading config")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(resetCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	defer application.Close()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// initializeApp wires the store and services. The HTTP server is never
// started from the CLI.
func initializeApp(cmd *cobra.Command, args []string) error {
	if application != nil {
		return nil
	}
	a, err := app.New(cmd.Context(), app.Options{EnvFile: envFile})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	application = a
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
