package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/leeovery/minimize/internal/pipeline"
)

// JSONFormatter renders summaries as 2-space indented JSON with snake_case keys.
type JSONFormatter struct{}

type jsonFile struct {
	Input      string   `json:"input"`
	Output     string   `json:"output"`
	Fields     []int    `json:"fields"`
	Columns    []string `json:"columns"`
	Rows       int64    `json:"rows"`
	Written    int64    `json:"written"`
	Duplicates int64    `json:"duplicates"`
	Padded     int64    `json:"padded"`
	ElapsedMS  int64    `json:"elapsed_ms"`
}

type jsonSummary struct {
	Files     []jsonFile `json:"files"`
	ElapsedMS int64      `json:"elapsed_ms"`
}

// FormatSummary renders the batch; files is [] rather than null when empty.
func (f *JSONFormatter) FormatSummary(w io.Writer, s pipeline.Summary) error {
	out := jsonSummary{
		Files:     make([]jsonFile, 0, len(s.Files)),
		ElapsedMS: s.Elapsed.Milliseconds(),
	}
	for _, r := range s.Files {
		out.Files = append(out.Files, jsonFile{
			Input:      r.Input,
			Output:     r.Output,
			Fields:     []int(r.Fields),
			Columns:    r.Columns,
			Rows:       r.Rows,
			Written:    r.Written,
			Duplicates: r.Duplicates,
			Padded:     r.Padded,
			ElapsedMS:  r.Elapsed.Milliseconds(),
		})
	}
	return writeJSON(w, out)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
