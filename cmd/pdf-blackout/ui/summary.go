package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// Table writes rows in aligned columns.
func Table(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(tw, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	_ = tw.Flush()
}

// Summary prints the outcome of a batch. The per-input table is only shown
// when verbose is set or something went wrong.
func Summary(w io.Writer, result *domain.BatchResult, verbose bool) {
	if len(result.Inputs) == 0 {
		Warningf(w, "No PDF documents found, nothing to do")
		return
	}

	if verbose || result.ExitCode() != 0 {
		rows := make([][]string, 0, len(result.Inputs))
		for _, in := range result.Inputs {
			rows = append(rows, []string{in.Path, string(in.Status), fmt.Sprintf("%d", in.Pages)})
		}
		Table(w, []string{"Input", "Status", "Pages"}, rows)
		fmt.Fprintln(w)
	}
	if verbose {
		Infof(w, "Output: %s (%s mode)", result.Target.Path, result.Mode)
	}

	failed := len(result.Failed())
	switch {
	case result.ExitCode() == 0:
		Successf(w, "%d document(s) processed in %s mode, %d artifact(s) written in %s",
			result.Succeeded(), result.Mode, len(result.Outputs()), FormatDuration(result.Duration))
	case result.Mode == domain.ModeConcatenated:
		Errorf(w, "Concatenated output %s was not written", result.Target.Path)
	default:
		Errorf(w, "%d of %d document(s) failed, %d artifact(s) written",
			failed, len(result.Inputs), len(result.Outputs()))
	}
}

// FormatDuration rounds d for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
