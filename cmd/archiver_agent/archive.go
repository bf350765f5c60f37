package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daniela/profile-archiver/internal/config"
	"github.com/daniela/profile-archiver/internal/observability"
	"github.com/daniela/profile-archiver/internal/record"
)

var archiveJSON bool

var archiveCmd = &cobra.Command{
	Use:   "archive <profile-url>",
	Short: "Archive a single profile page",
	Long:  `Render the profile page, publish its listings and profile record, and print the assigned identifiers.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runArchive,
}

func init() {
	archiveCmd.Flags().BoolVar(&archiveJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	runner, cleanup, err := buildRunner(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer cleanup()

	res, err := runner.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if archiveJSON {
		out := map[string]any{
			"success":           true,
			"profileCID":        res.ProfileCID,
			"profileGatewayURL": res.ProfileGatewayURL,
			"listings":          nonNilRefs(res.Listings),
		}
		if res.LedgerTx != "" {
			out["ledgerTx"] = res.LedgerTx
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	observability.NewPrinter(os.Stdout).PrintResult(res)
	return nil
}

func nonNilRefs(refs []record.ListingRef) []record.ListingRef {
	if refs == nil {
		return []record.ListingRef{}
	}
	return refs
}
