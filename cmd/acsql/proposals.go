package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/acsql/acsql/internal/services"
)

func newProposalsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "List proposals in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, _, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			proposals, err := services.NewProposalService(store).List(ctx)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd, proposals)
			case "table":
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Proposal", "Records", "Rootnames", "Last Ingested"})
				for _, p := range proposals {
					t.AppendRow(table.Row{p.ProposalID, p.Records, p.Rootnames, p.LastIngestedAt.Local().Format("2006-01-02 15:04:05")})
				}
				t.Render()
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}
