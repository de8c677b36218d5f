package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/imagerate-backend/internal/services"
)

var (
	syncForce   bool
	syncFolders []string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the catalog against the bucket",
	Long: `Reconcile the catalog against the bucket listing.

By default the run resumes from saved cursors, so a run cut short by a rate
limit picks up where it stopped. --force starts every folder over and
re-derives parsed and descriptive fields of existing assets; ids and
evaluations are kept.

--folder restricts the run to the named folders instead of CATALOG_FOLDERS.`,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show saved cursors and recent sync runs",
	RunE:  runStatus,
}

func init() {
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "start over and re-derive fields of existing assets")
	syncCmd.Flags().StringSliceVar(&syncFolders, "folder", nil, "folder to reconcile (repeatable)")
}

func runSync(cmd *cobra.Command, args []string) error {
	opts := services.SyncOptions{
		Folders: syncFolders,
		Resume:  !syncForce,
		Force:   syncForce,
	}
	report, err := application.Services.Sync.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), report)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cursors, runs, err := application.Services.Sync.Status(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"cursors": cursors,
		"runs":    runs,
	})
}
