// Package pipeline runs the select, project, deduplicate sequence over a
// batch of files, one file at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/leeovery/minimize/internal/dedup"
	"github.com/leeovery/minimize/internal/fields"
	"github.com/leeovery/minimize/internal/project"
	"github.com/leeovery/minimize/internal/rowsplit"
	"github.com/leeovery/minimize/internal/selector"
)

// ErrHeaderMismatch is returned when files in one batch have different headers
// and mixed headers were not allowed.
var ErrHeaderMismatch = errors.New("header differs from the first file")

// ErrPathConflict is returned when a file's intermediate or output path is an
// input of the batch or is shared with another file.
var ErrPathConflict = errors.New("derived path conflicts with another file")

// Options holds the settings shared by every file in a batch.
type Options struct {
	Delimiter         byte
	OutputDelimiter   rune
	Store             dedup.Store
	MaxLine           int
	AllowMixedHeaders bool
}

// FileResult records what happened to one input file.
type FileResult struct {
	Input      string
	Output     string
	Fields     fields.Selection
	Columns    []string
	Rows       int64
	Written    int64
	Duplicates int64
	Padded     int64
	Elapsed    time.Duration
}

// Summary is the outcome of a completed batch.
type Summary struct {
	Files   []FileResult
	Elapsed time.Duration
}

// Runner processes batches of files.
type Runner struct {
	fs        afero.Fs
	opts      Options
	locker    Locker
	progress  io.Writer
	logger    *zap.Logger
	projector *project.Projector
	deduper   *dedup.Deduper
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger passed down to every stage.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLocker sets the batch lock. The default takes no lock.
func WithLocker(l Locker) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.locker = l
		}
	}
}

// WithProgress sets where per-file progress lines are printed. Nil silences them.
func WithProgress(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.progress = w
	}
}

// NewRunner creates a Runner over fs.
func NewRunner(fs afero.Fs, opts Options, ropts ...RunnerOption) *Runner {
	if opts.Delimiter == 0 {
		opts.Delimiter = '\t'
	}
	if opts.MaxLine <= 0 {
		opts.MaxLine = rowsplit.DefaultMaxLine
	}
	r := &Runner{
		fs:     fs,
		opts:   opts,
		locker: NoLock,
		logger: zap.NewNop(),
	}
	for _, o := range ropts {
		o(r)
	}

	r.projector = project.New(fs, opts.Delimiter,
		project.WithLogger(r.logger.Named("project")),
		project.WithMaxLine(opts.MaxLine),
	)
	r.deduper = dedup.New(fs, opts.Delimiter,
		dedup.WithLogger(r.logger.Named("dedup")),
		dedup.WithStore(opts.Store),
		dedup.WithOutputDelimiter(opts.OutputDelimiter),
		dedup.WithMaxLine(opts.MaxLine),
	)
	return r
}

// ReadHeader returns the column names on the first line of path.
func ReadHeader(fs afero.Fs, path string, delim byte, maxLine int) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header, err := rowsplit.ReadHeader(f, delim, maxLine)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return header, nil
}

// checkPaths makes sure no stage writes over an input or over another file's
// output. An input named x.cut would otherwise be truncated by its own projection.
func checkPaths(files []selector.FileRef) error {
	inputs := make(map[string]string, len(files))
	for _, f := range files {
		inputs[filepath.Clean(f.Path)] = f.Path
	}

	owners := make(map[string]string, 2*len(files))
	for _, f := range files {
		for _, derived := range []string{f.CutPath, f.OutPath} {
			key := filepath.Clean(derived)
			if in, ok := inputs[key]; ok {
				return fmt.Errorf("%s: %w: %s would overwrite input %s", f.Path, ErrPathConflict, derived, in)
			}
			if other, ok := owners[key]; ok {
				return fmt.Errorf("%s: %w: %s is also written for %s", f.Path, ErrPathConflict, derived, other)
			}
			owners[key] = f.Path
		}
	}
	return nil
}

// plan resolves the selection for every file before any output is written.
func (r *Runner) plan(files []selector.FileRef, spec fields.Spec) ([]fields.Selection, [][]string, error) {
	if err := checkPaths(files); err != nil {
		return nil, nil, err
	}

	sels := make([]fields.Selection, len(files))
	headers := make([][]string, len(files))

	for i, f := range files {
		header, err := ReadHeader(r.fs, f.Path, r.opts.Delimiter, r.opts.MaxLine)
		if err != nil {
			return nil, nil, err
		}
		if i > 0 && !r.opts.AllowMixedHeaders && !slices.Equal(header, headers[0]) {
			return nil, nil, fmt.Errorf("%s: %w %s", f.Path, ErrHeaderMismatch, files[0].Path)
		}
		headers[i] = header

		sel, err := spec.Resolve(header)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		sels[i] = sel
	}
	return sels, headers, nil
}

// Run processes files in order. The first error stops the batch; outputs of
// files already completed are kept.
func (r *Runner) Run(ctx context.Context, files []selector.FileRef, spec fields.Spec) (Summary, error) {
	if len(files) == 0 {
		return Summary{}, selector.ErrNoInput
	}
	if spec.Empty() {
		return Summary{}, fields.ErrNoFields
	}

	unlock, err := r.locker.Lock(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer unlock()

	start := time.Now()
	sels, headers, err := r.plan(files, spec)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := r.runFile(ctx, f, sels[i], headers[i])
		if err != nil {
			return summary, fmt.Errorf("processing %s: %w", f.Path, err)
		}
		summary.Files = append(summary.Files, res)
	}
	summary.Elapsed = time.Since(start)

	r.logger.Info("batch complete", zap.Int("files", len(summary.Files)), zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

func (r *Runner) runFile(ctx context.Context, f selector.FileRef, sel fields.Selection, header []string) (FileResult, error) {
	start := time.Now()
	log := r.logger.With(zap.String("file", f.Path))

	r.announce("Cutting %s...\n", f.Path)
	pstats, err := r.projector.Project(ctx, f.Path, f.CutPath, sel)
	if err != nil {
		return FileResult{}, err
	}

	r.announce("Deduping and minimizing %s...\n", f.Base)
	dstats, err := r.deduper.Dedup(ctx, f.CutPath, f.OutPath)
	if err != nil {
		return FileResult{}, err
	}

	res := FileResult{
		Input:      f.Path,
		Output:     f.OutPath,
		Fields:     sel,
		Columns:    sel.Names(header),
		Rows:       dstats.Rows,
		Written:    dstats.Written,
		Duplicates: dstats.Duplicates,
		Padded:     pstats.Padded,
		Elapsed:    time.Since(start),
	}
	log.Info("file minimized",
		zap.String("output", res.Output),
		zap.Int64("rows", res.Rows),
		zap.Int64("written", res.Written),
		zap.Int64("duplicates", res.Duplicates),
	)
	return res, nil
}

func (r *Runner) announce(format string, args ...any) {
	if r.progress != nil {
		fmt.Fprintf(r.progress, format, args...)
	}
}
