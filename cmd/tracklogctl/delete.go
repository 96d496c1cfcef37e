package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an entry from the tracking log",
	Long:  `Delete permanently removes the entry with the given ID. It requires --yes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if !deleteYes {
			return errors.New("refusing to delete without --yes")
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		removed, err := s.ctrl.Delete(cmd.Context(), id, true)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no entry with id %s", id)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Entry deleted: %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Confirm the deletion")
}
