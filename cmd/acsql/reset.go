package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/acsql/acsql/internal/usecase"
)

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every record and generated preview",
		Long:  "Delete every catalog row, the ingest run history and all generated JPEGs and thumbnails. FITS files are not touched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, cfg, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			if !yes {
				reader := bufio.NewReader(cmd.InOrStdin())
				fmt.Fprintf(cmd.ErrOrStderr(), "Delete all records in %s and every preview in %s and %s? (y/N) ",
					cfg.RedactedDatabaseURL(), cfg.JPEGDir, cfg.ThumbnailDir)
				answer, err := reader.ReadString('\n')
				if err != nil {
					return err
				}

				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled")
					return nil
				}
			}

			logger, closeLog, err := newLogger(cmd, cfg, "reset", true)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeLog()
			}()

			result, err := usecase.NewReset(store, cfg, logger).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog cleared; removed %d JPEG and %d thumbnail entries\n", result.JPEGs, result.Thumbnails)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}
