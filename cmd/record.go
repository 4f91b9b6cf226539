package cmd

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"

	"github.com/spf13/cobra"
)

func newRecordCmd(a *app) *cobra.Command {
	var pos string

	cmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Record a visit to a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseRegion(args[0]); err != nil {
				a.logger.Warn().Str("name", args[0]).Msg("Recording a system that is not a boxel name")
			}

			rec := sources.LocalRecord{Name: args[0], LastRecordedAt: time.Now().UTC()}
			if pos != "" {
				p, err := parseStarPos(pos)
				if err != nil {
					return err
				}
				rec.Position = p
			}

			records, err := a.openRecords()
			if err != nil {
				return err
			}
			defer records.Close()

			if err := records.RecordVisit(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s\n", rec.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&pos, "pos", "", "star position as x,y,z")
	return cmd
}
