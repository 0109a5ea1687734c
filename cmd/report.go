package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ctenopool/labeler/internal/journal"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		journalDB string
		format    string
		since     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize journaled submissions per user",
		Example: `  # Accuracy per user over the last week
  labeler report --journal labels.db --since 168h

  # Export as CSV
  labeler report --journal labels.db --format csv > report.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if journalDB == "" {
				journalDB = os.Getenv("LABELER_JOURNAL")
			}
			if journalDB == "" {
				return fmt.Errorf("--journal is required")
			}

			j, err := journal.Open(journalDB)
			if err != nil {
				return err
			}
			defer j.Close()

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			tallies, err := j.Summarize(cmd.Context(), from)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), tallies, format)
		},
	}

	cmd.Flags().StringVar(&journalDB, "journal", "", "Path to the sqlite journal (default $LABELER_JOURNAL)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, or csv")
	cmd.Flags().DurationVar(&since, "since", 0, "Only count submissions newer than this (0 for all)")

	return cmd
}

func writeReport(w io.Writer, tallies []journal.Tally, format string) error {
	switch format {
	case "text":
		return printTextReport(w, tallies)
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(tallies)
	case "csv":
		return printCSVReport(w, tallies)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(w io.Writer, tallies []journal.Tally) error {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Labeling Report")
	fmt.Fprintln(w, "========================================")
	if len(tallies) == 0 {
		fmt.Fprintln(w, "No submissions journaled.")
		return nil
	}

	var total, correct, wrong int
	for _, t := range tallies {
		fmt.Fprintf(w, "%-30s %-7s %5d submitted  %5d correct  %5d wrong  %6.2f%%\n",
			t.Username, t.Mode, t.Total, t.Correct, t.Wrong, t.Accuracy()*100)
		total += t.Total
		correct += t.Correct
		wrong += t.Wrong
	}
	all := journal.Tally{Total: total, Correct: correct, Wrong: wrong}
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Total: %d submitted, %d correct, %d wrong (%.2f%% accuracy)\n",
		total, correct, wrong, all.Accuracy()*100)
	return nil
}

func printCSVReport(w io.Writer, tallies []journal.Tally) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Username", "Mode", "Total", "Correct", "Wrong", "Accuracy"}); err != nil {
		return err
	}
	for _, t := range tallies {
		row := []string{
			t.Username,
			t.Mode,
			strconv.Itoa(t.Total),
			strconv.Itoa(t.Correct),
			strconv.Itoa(t.Wrong),
			fmt.Sprintf("%.4f", t.Accuracy()),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
