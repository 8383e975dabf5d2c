package report

import (
	"fmt"
	"io"

	toon "github.com/toon-format/toon-go"

	"github.com/leeovery/minimize/internal/pipeline"
)

// ToonFormatter renders summaries in TOON tabular form, compact for scripts and agents.
type ToonFormatter struct{}

const toonSchema = "{input,output,fields,rows,written,duplicates,padded}"

// FormatSummary renders files[N]{...}: followed by one indented row per file.
// An empty batch renders the header with a zero count.
func (f *ToonFormatter) FormatSummary(w io.Writer, s pipeline.Summary) error {
	if len(s.Files) == 0 {
		_, err := fmt.Fprintln(w, "files[0]"+toonSchema+":")
		return err
	}

	objects := make([]toon.Object, len(s.Files))
	for i, r := range s.Files {
		objects[i] = toon.NewObject(
			toon.Field{Key: "input", Value: r.Input},
			toon.Field{Key: "output", Value: r.Output},
			toon.Field{Key: "fields", Value: r.Fields.String()},
			toon.Field{Key: "rows", Value: int(r.Rows)},
			toon.Field{Key: "written", Value: int(r.Written)},
			toon.Field{Key: "duplicates", Value: int(r.Duplicates)},
			toon.Field{Key: "padded", Value: int(r.Padded)},
		)
	}

	doc := toon.NewObject(toon.Field{Key: "files", Value: objects})
	result, err := toon.MarshalString(doc)
	if err != nil {
		return fmt.Errorf("toon marshal error: %w", err)
	}
	_, err = fmt.Fprintln(w, result)
	return err
}
