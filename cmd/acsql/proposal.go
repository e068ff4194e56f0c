package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/services"
)

func newProposalCmd() *cobra.Command {
	var (
		query  database.RecordQuery
		format string
	)

	cmd := &cobra.Command{
		Use:   "proposal <proposal-id>",
		Short: "List the records of a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, _, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			view, err := services.NewProposalService(store).View(ctx, args[0], query)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd, view)
			case "table":
				outputProposalTable(cmd, view)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&query.Filetype, "filetype", "", "Filetype to list, or all (default flt)")
	cmd.Flags().StringVar(&query.Detector, "detector", "", "Only records from this detector")
	cmd.Flags().StringVar(&query.Visit, "visit", "", "Only records from this visit")
	cmd.Flags().StringVar(&query.Target, "target", "", "Only records of this target")
	cmd.Flags().StringVar(&query.Filter, "filter", "", "Only records using this filter in either wheel")
	cmd.Flags().StringVar(&query.Sort, "sort", "", "Sort key: "+strings.Join(database.SortKeys, ", ")+" (default expstart)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func outputProposalTable(cmd *cobra.Command, view *services.ProposalView) {
	out := cmd.OutOrStdout()
	if len(view.Records) == 0 {
		fmt.Fprintf(out, "No %s records for proposal %s\n", filetypeLabel(view.Query.Filetype), view.ProposalID)
		return
	}

	// Fixed columns take roughly 90 cells; the target name gets what is left.
	targetWidth := getTerminalWidth() - 90
	if targetWidth < 10 {
		targetWidth = 10
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rootname", "Type", "Detector", "Visit", "Filter1", "Filter2", "Target", "ExpStart", "ExpTime", "Thumb"})
	for _, r := range view.Records {
		thumb := ""
		if r.ThumbnailPath != "" {
			thumb = "yes"
		}
		t.AppendRow(table.Row{
			r.Rootname,
			r.Filetype,
			r.Detector,
			r.Visit,
			r.Filter1,
			r.Filter2,
			runewidth.Truncate(r.TargName, targetWidth, "..."),
			formatOptional(r.ExpStart, 5),
			formatOptional(r.ExpTime, 1),
			thumb,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "", "Total", len(view.Records)})
	t.Render()

	fmt.Fprintf(out, "Detectors: %s\n", strings.Join(view.Facets.Detectors, ", "))
	fmt.Fprintf(out, "Visits:    %s\n", strings.Join(view.Facets.Visits, ", "))
	fmt.Fprintf(out, "Targets:   %s\n", strings.Join(view.Facets.Targets, ", "))
	filters := make([]string, 0, len(view.Facets.Filters))
	for _, f := range view.Facets.Filters {
		filters = append(filters, f.Filter1+"/"+f.Filter2)
	}
	fmt.Fprintf(out, "Filters:   %s\n", strings.Join(filters, ", "))
}

func formatOptional(v *float64, precision int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

func filetypeLabel(filetype string) string {
	if filetype == "" {
		return "matching"
	}
	return filetype
}
