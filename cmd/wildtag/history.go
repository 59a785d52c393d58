package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-wildtag/internal/store"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past processing runs, or the images of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.cfg.History.Enabled = true
			hist, err := a.openStore()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				records, err := hist.RunResults(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), records)
			}

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := hist.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum number of runs to list (0 = all)")
	return cmd
}

func printRuns(w io.Writer, runs []store.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tMODE\tTOTAL\tOK\tFAILED\tAVG CONF\tINPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.3f\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Mode,
			r.Total, r.Successful, r.Failed, r.AvgConfidence, r.InputDir)
	}
	return tw.Flush()
}

func printRecords(w io.Writer, records []store.ImageRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tNEW NAME\tANIMAL\tCONF\tOK\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%t\t%s\n",
			r.OriginalName, r.NewName, r.Category, r.Confidence, r.Success, r.Error)
	}
	return tw.Flush()
}
