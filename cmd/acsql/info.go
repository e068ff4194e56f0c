package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/acsql/acsql/internal/services"
)

func newInfoCmd() *cobra.Command {
	var (
		headers bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "info <identifier>",
		Short: "Show one record",
		Long:  "Show the record for a rootname_filetype identifier. A bare rootname shows its flt record.",
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

			info, err := services.NewRecordService(store).Info(ctx, args[0], headers)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd, info)
			case "table":
				outputInfoTable(cmd, info)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().BoolVar(&headers, "headers", false, "Include every stored header keyword")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func outputInfoTable(cmd *cobra.Command, info *services.RecordInfo) {
	out := cmd.OutOrStdout()
	r := info.Record

	fmt.Fprintf(out, "Identifier:     %s\n", r.Identifier)
	fmt.Fprintf(out, "Proposal:       %s (%s)\n", r.ProposalID, r.Program)
	fmt.Fprintf(out, "Visit:          %s\n", r.Visit)
	fmt.Fprintf(out, "Detector:       %s\n", r.Detector)
	fmt.Fprintf(out, "Aperture:       %s\n", r.Aperture)
	fmt.Fprintf(out, "Filters:        %s / %s\n", r.Filter1, r.Filter2)
	fmt.Fprintf(out, "Target:         %s\n", r.TargName)
	fmt.Fprintf(out, "RA / Dec:       %s / %s\n", formatOptional(r.RA, 6), formatOptional(r.Dec, 6))
	fmt.Fprintf(out, "Observed:       %s %s\n", r.DateObs, r.TimeObs)
	fmt.Fprintf(out, "ExpStart:       %s\n", formatOptional(r.ExpStart, 5))
	fmt.Fprintf(out, "ExpTime:        %s\n", formatOptional(r.ExpTime, 1))
	fmt.Fprintf(out, "PI:             %s %s\n", r.PIFirstName, r.PILastName)
	fmt.Fprintf(out, "Datasets:       %s\n", strings.Join(info.Filetypes, ", "))
	fmt.Fprintf(out, "JPEG:           %s\n", r.JPEGPath)
	fmt.Fprintf(out, "Thumbnail:      %s\n", r.ThumbnailPath)
	fmt.Fprintf(out, "Source:         %s\n", r.SourcePath)
	fmt.Fprintf(out, "Source Time:    %s\n", r.SourceModTime.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "First Ingested: %s\n", r.FirstIngestedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Last Ingested:  %s\n", r.LastIngestedAt.Local().Format("2006-01-02 15:04:05"))

	if len(info.Headers) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Ext", "Keyword", "Value"})
	for _, h := range info.Headers {
		t.AppendRow(table.Row{h.Extension, h.Keyword, h.Value})
	}
	t.Render()
}
