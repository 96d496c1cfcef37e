package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	exportsvc "github.com/mamadbah2/tracklog/internal/service/export"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the (filtered) tracking log to an xlsx workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		snap, err := s.exporter.Export(cmd.Context(), s.ctrl.View(filter))
		if errors.Is(err, exportsvc.ErrNothingToExport) {
			fmt.Fprintln(cmd.OutOrStdout(), "No tracking data to export.")
			return nil
		}
		if err != nil {
			return err
		}

		if err := exportsvc.NewDirSink(exportDir).Deliver(cmd.Context(), snap); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(snap.Table.Rows), filepath.Join(exportDir, snap.FileName))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addFilterFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "Directory to write the workbook into")
}
