// Package report renders the summary of a completed batch.
package report

import (
	"errors"
	"io"
	"os"

	"github.com/leeovery/minimize/internal/pipeline"
)

// Format represents the output format type.
type Format string

// Format constants for output selection.
const (
	FormatToon   Format = "toon"
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

// Formatter renders run output.
type Formatter interface {
	// FormatSummary renders the per-file results of a batch.
	FormatSummary(w io.Writer, s pipeline.Summary) error
}

// DetectTTY checks if the given writer is a terminal.
// Returns false if writer is not an *os.File or Stat() fails.
func DetectTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// ResolveFormat determines the output format from flags and TTY status.
// Returns error if more than one format flag is set.
// If no flags set, returns Pretty for TTY, Toon for non-TTY.
func ResolveFormat(toonFlag, prettyFlag, jsonFlag, isTTY bool) (Format, error) {
	count := 0
	for _, set := range []bool{toonFlag, prettyFlag, jsonFlag} {
		if set {
			count++
		}
	}
	if count > 1 {
		return "", errors.New("cannot specify multiple format flags (--toon, --pretty, --json)")
	}

	switch {
	case toonFlag:
		return FormatToon, nil
	case prettyFlag:
		return FormatPretty, nil
	case jsonFlag:
		return FormatJSON, nil
	case isTTY:
		return FormatPretty, nil
	default:
		return FormatToon, nil
	}
}

// New returns the Formatter for f. Quiet formatters print only output paths.
func New(f Format, quiet bool) Formatter {
	if quiet {
		return &QuietFormatter{}
	}
	switch f {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatPretty:
		return &PrettyFormatter{}
	default:
		return &ToonFormatter{}
	}
}

// QuietFormatter prints one output path per line and nothing else.
type QuietFormatter struct{}

func (f *QuietFormatter) FormatSummary(w io.Writer, s pipeline.Summary) error {
	for _, r := range s.Files {
		if _, err := io.WriteString(w, r.Output+"\n"); err != nil {
			return err
		}
	}
	return nil
}
