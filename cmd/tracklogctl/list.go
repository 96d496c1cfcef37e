package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/tracklog/internal/service/tracking"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the tracking log, optionally filtered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		out := cmd.OutOrStdout()
		if listJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(tracking.Entries(s.ctrl.View(filter)))
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\t"+strings.Join(tracking.Columns[:len(tracking.Columns)-1], "\t"))
		for _, row := range s.ctrl.Rows(filter) {
			fmt.Fprintln(w, row.ID+"\t"+strings.Join(row.Cells(), "\t"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	addFilterFlags(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}
