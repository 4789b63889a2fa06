package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spp-forecast/internal/ercot"
)

var pointsWrite string

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "List known settlement points",
	Long: `List the settlement points accepted by --point and the API.

With --write the current list is saved as a catalog file that can be edited
and referenced from catalog_file or SETTLEMENT_POINTS_FILE.`,
	RunE: runPoints,
}

func init() {
	pointsCmd.Flags().StringVar(&pointsWrite, "write", "", "Save the catalog to this JSON path")
}

func runPoints(cmd *cobra.Command, _ []string) error {
	_, a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if pointsWrite != "" {
		out := &ercot.Catalog{
			UpdatedAt: time.Now().UTC().Format(time.RFC3339),
			Points:    a.Catalog.Points,
		}
		if err := ercot.SaveCatalog(out, pointsWrite); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d settlement points to %s\n", len(out.Points), pointsWrite)
	}

	if flags.json {
		return writeJSON(cmd.OutOrStdout(), a.Catalog)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME")
	for _, p := range a.Catalog.Points {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Type, p.Name)
	}
	return tw.Flush()
}
