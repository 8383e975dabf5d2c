package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/leeovery/minimize/internal/pipeline"
)

// PrettyFormatter renders an aligned table for terminals. Colour is applied
// only when fatih/color detects a terminal.
type PrettyFormatter struct{}

var (
	headerColor = color.New(color.Bold)
	dupColor    = color.New(color.FgYellow)
)

// FormatSummary renders one row per file plus a totals line.
func (f *PrettyFormatter) FormatSummary(w io.Writer, s pipeline.Summary) error {
	if len(s.Files) == 0 {
		_, err := fmt.Fprintln(w, "No files processed.")
		return err
	}

	outW := len("OUTPUT")
	fieldsW := len("FIELDS")
	for _, r := range s.Files {
		outW = max(outW, len(r.Output))
		fieldsW = max(fieldsW, len(r.Fields.String()))
	}

	head := fmt.Sprintf("%-*s  %-*s  %10s  %10s  %10s", outW, "OUTPUT", fieldsW, "FIELDS", "ROWS", "WRITTEN", "DUPLICATES")
	if _, err := fmt.Fprintln(w, headerColor.Sprint(head)); err != nil {
		return err
	}

	var rows, written, dups int64
	for _, r := range s.Files {
		dupText := fmt.Sprintf("%10d", r.Duplicates)
		if r.Duplicates > 0 {
			dupText = dupColor.Sprint(dupText)
		}
		if _, err := fmt.Fprintf(w, "%-*s  %-*s  %10d  %10d  %s\n",
			outW, r.Output, fieldsW, r.Fields.String(), r.Rows, r.Written, dupText); err != nil {
			return err
		}
		rows += r.Rows
		written += r.Written
		dups += r.Duplicates
	}

	if len(s.Files) > 1 {
		label := strconv.Itoa(len(s.Files)) + " files"
		if _, err := fmt.Fprintf(w, "%-*s  %-*s  %10d  %10d  %10d\n",
			outW, label, fieldsW, "", rows, written, dups); err != nil {
			return err
		}
	}
	return nil
}
