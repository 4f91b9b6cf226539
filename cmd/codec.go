package cmd

import (
	"fmt"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"

	"github.com/spf13/cobra"
)

func parseRegion(name string) (boxel.Boxel, error) {
	bx, ok := boxel.Parse(name)
	if !ok {
		return boxel.Boxel{}, fmt.Errorf("%w: %q", boxel.ErrInvalidName, name)
	}
	return bx, nil
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <name>",
		Short: "Show the parts of a boxel name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bx, err := parseRegion(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:      %s\n", bx.Name())
			fmt.Fprintf(out, "sector:    %s\n", bx.Sector())
			fmt.Fprintf(out, "letters:   %s\n", bx.Letters())
			fmt.Fprintf(out, "mass code: %s\n", bx.MassCode())
			fmt.Fprintf(out, "n1:        %d\n", bx.N1())
			fmt.Fprintf(out, "n2:        %d\n", bx.N2())
			fmt.Fprintf(out, "id:        %s\n", bx.ID())
			fmt.Fprintf(out, "prefix:    %s\n", bx.Prefix())
			return nil
		},
	}
}

func newCoordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coords <name>",
		Short: "Show the grid position of a boxel within its sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bx, err := parseRegion(args[0])
			if err != nil {
				return err
			}
			c := bx.Coord()
			fmt.Fprintf(cmd.OutOrStdout(), "%d %d %d %s\n", c.X, c.Y, c.Z, bx.MassCode())
			return nil
		},
	}
}

func newParentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parent <name>",
		Short: "Show the boxel one mass code larger containing this one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bx, err := parseRegion(args[0])
			if err != nil {
				return err
			}
			if bx.MassCode() >= boxel.MassCodeH {
				return fmt.Errorf("%w: %s has no parent", boxel.ErrInvalidMassCode, bx.Name())
			}
			if !bx.Addressable() {
				return fmt.Errorf("%q is outside the sector grid", bx.Name())
			}
			fmt.Fprintln(cmd.OutOrStdout(), bx.Parent().Prefix())
			return nil
		},
	}
}

func newChildrenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "children <name>",
		Short: "List the 8 boxels one mass code smaller inside this one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bx, err := parseRegion(args[0])
			if err != nil {
				return err
			}
			if !bx.Addressable() {
				return fmt.Errorf("%q is outside the sector grid", bx.Name())
			}
			for _, child := range bx.Children() {
				fmt.Fprintln(cmd.OutOrStdout(), child.Prefix())
			}
			return nil
		},
	}
}

func newContainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contains <outer> <inner>",
		Short: "Report whether one boxel lies inside another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outer, err := parseRegion(args[0])
			if err != nil {
				return err
			}
			inner, err := parseRegion(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outer.Contains(inner))
			return nil
		},
	}
}
