package cmd

import (
	"fmt"

	"github.com/ZanzyTHEbar/boxel-survey/survey/emptyregions"

	"github.com/spf13/cobra"
)

func newEmptyCmd(a *app) *cobra.Command {
	empty := &cobra.Command{
		Use:   "empty",
		Short: "Manage boxels known to hold no systems",
	}

	run := func(action func(cmd *cobra.Command, store *emptyregions.Store, name string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openEmptyStore()
			if err != nil {
				return err
			}
			defer closeStore()
			return action(cmd, store, args[0])
		}
	}

	empty.AddCommand(
		&cobra.Command{
			Use:   "add <region>",
			Short: "Mark a boxel empty",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, store *emptyregions.Store, name string) error {
				bx, err := parseRegion(name)
				if err != nil {
					return err
				}
				changed, err := store.Add(cmd.Context(), bx)
				if err != nil {
					return err
				}
				a.logger.Info().Str("region", bx.Prefix()).Bool("changed", changed).Msg("Marked empty")
				if changed {
					fmt.Fprintf(cmd.OutOrStdout(), "%s marked empty\n", bx.Prefix())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already marked empty\n", bx.Prefix())
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove <region>",
			Short: "Unmark an empty boxel",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, store *emptyregions.Store, name string) error {
				bx, err := parseRegion(name)
				if err != nil {
					return err
				}
				changed, err := store.Remove(cmd.Context(), bx)
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintf(cmd.OutOrStdout(), "%s unmarked\n", bx.Prefix())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was not marked empty\n", bx.Prefix())
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "check <region>",
			Short: "Report whether a boxel is marked empty",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, store *emptyregions.Store, name string) error {
				bx, err := parseRegion(name)
				if err != nil {
					return err
				}
				if store.Contains(cmd.Context(), bx) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is empty\n", bx.Prefix())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is not marked empty\n", bx.Prefix())
				}
				return nil
			}),
		},
	)
	return empty
}
