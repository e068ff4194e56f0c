package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/discover"
	"github.com/acsql/acsql/internal/ingest"
	"github.com/acsql/acsql/internal/logging"
	"github.com/acsql/acsql/internal/models"
)

func newIngestCmd() *cobra.Command {
	var (
		proposalID string
		rootname   string
		filelist   string
		all        bool
		onlyNew    bool
		filetypes  []string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest FITS files into the catalog",
		Long: "Discover FITS files under the archive root, extract their headers, render previews and upsert one record per file.\n" +
			"Exits with status 1 if any file failed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := ingest.Target{Filetypes: filetypes}
			switch {
			case proposalID != "":
				target.Mode, target.ProposalID = ingest.ModeProposal, proposalID
			case rootname != "":
				target.Mode, target.Rootname = ingest.ModeRootname, rootname
			case filelist != "":
				rootnames, err := discover.ReadFilelist(filelist)
				if err != nil {
					return err
				}
				target.Mode, target.Rootnames = ingest.ModeFilelist, rootnames
			case all:
				target.Mode = ingest.ModeAll
			case onlyNew:
				target.Mode = ingest.ModeNew
			}
			for _, ft := range filetypes {
				if ft != "all" && !models.IsValidFiletype(ft) {
					return fmt.Errorf("invalid filetype: %s (valid values: %s, all)", ft, strings.Join(models.ValidFiletypes, ", "))
				}
			}
			if err := target.Validate(); err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateForIngest(); err != nil {
				return err
			}

			logger, closeLog, err := newLogger(cmd, cfg, "ingest", true)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeLog()
			}()
			logging.LogEnvironment(logger, version)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := database.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			summary, err := ingest.NewFromConfig(cfg, store, force, logger).Run(ctx, target)
			if summary != nil {
				outputSummary(cmd.OutOrStdout(), summary)
			}
			if err != nil {
				return err
			}
			if !summary.OK() {
				return fmt.Errorf("%d file(s) failed to ingest", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&proposalID, "proposal", "", "Ingest every file of a proposal directory")
	cmd.Flags().StringVar(&rootname, "rootname", "", "Ingest the files of one rootname")
	cmd.Flags().StringVar(&filelist, "filelist", "", "Ingest the rootnames listed in a file, one per line")
	cmd.Flags().BoolVar(&all, "all", false, "Ingest every file under the archive root")
	cmd.Flags().BoolVar(&onlyNew, "new", false, "Ingest unknown rootnames and files changed since the last run")
	cmd.Flags().StringSliceVar(&filetypes, "filetype", nil, "Only ingest these filetypes, e.g. raw,flt")
	cmd.Flags().BoolVar(&force, "force", false, "Re-ingest files even if they are unchanged")
	cmd.MarkFlagsMutuallyExclusive("proposal", "rootname", "filelist", "all", "new")
	cmd.MarkFlagsOneRequired("proposal", "rootname", "filelist", "all", "new")

	return cmd
}

func outputSummary(w io.Writer, summary *ingest.Summary) {
	fmt.Fprintf(w, "Run:        %s\n", summary.RunID)
	fmt.Fprintf(w, "Target:     %s\n", summary.Target)
	fmt.Fprintf(w, "Discovered: %d\n", summary.Discovered)
	fmt.Fprintf(w, "Processed:  %d (%d inserted, %d updated, %d rendered)\n",
		summary.Processed, summary.Inserted, summary.Updated, summary.Rendered)
	fmt.Fprintf(w, "Skipped:    %d\n", summary.Skipped)
	fmt.Fprintf(w, "Failed:     %d\n", summary.Failed)
	fmt.Fprintf(w, "Duration:   %s\n", summary.Duration.Round(time.Millisecond))

	if len(summary.Failures) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Identifier", "Stage", "Error"})
	errWidth := getTerminalWidth() - 40
	if errWidth < 20 {
		errWidth = 20
	}
	for _, f := range summary.Failures {
		t.AppendRow(table.Row{f.Identifier, f.Stage, runewidth.Truncate(f.Err.Error(), errWidth, "...")})
	}
	t.Render()
}
