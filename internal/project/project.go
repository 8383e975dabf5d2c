// Package project reduces delimited files to a subset of columns.
//
// Projection works on raw line bytes: each line is split on the delimiter and
// only the selected fields are written back, joined by the same delimiter.
// No row objects are built, which keeps multi-gigabyte inputs cheap when only
// a few columns are needed.
package project

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/leeovery/minimize/internal/fields"
	"github.com/leeovery/minimize/internal/rowsplit"
)

// ctxCheckEvery is how many lines are projected between cancellation checks.
const ctxCheckEvery = 1 << 16

// Stats describes one projection.
type Stats struct {
	// Lines is the number of lines read, header included.
	Lines int64
	// Padded counts lines missing at least one selected field.
	Padded int64
}

// Projector writes column projections of delimited files.
type Projector struct {
	fs      afero.Fs
	delim   byte
	maxLine int
	logger  *zap.Logger
}

// Option configures a Projector.
type Option func(*Projector)

// WithLogger sets the logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Projector) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxLine sets the longest accepted line in bytes.
func WithMaxLine(n int) Option {
	return func(p *Projector) {
		if n > 0 {
			p.maxLine = n
		}
	}
}

// New creates a Projector reading files from fs split on delim.
func New(fs afero.Fs, delim byte, opts ...Option) *Projector {
	p := &Projector{
		fs:      fs,
		delim:   delim,
		maxLine: rowsplit.DefaultMaxLine,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project writes the selected columns of src to dst in input order. Lines
// lacking a selected field get an empty value there, so every output line has
// exactly len(sel) fields. On any error dst is removed.
func (p *Projector) Project(ctx context.Context, src, dst string, sel fields.Selection) (stats Stats, err error) {
	if len(sel) == 0 {
		return Stats{}, fields.ErrNoFields
	}

	in, err := p.fs.Open(src)
	if err != nil {
		return Stats{}, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := p.fs.Create(dst)
	if err != nil {
		return Stats{}, fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, cerr)
		}
		if err != nil {
			p.fs.Remove(dst)
		}
	}()

	p.logger.Debug("projecting", zap.String("src", src), zap.String("dst", dst), zap.Stringer("fields", sel))

	w := bufio.NewWriterSize(out, 1<<20)
	sc := rowsplit.NewScanner(in, p.maxLine)
	var parts [][]byte

	for sc.Scan() {
		if stats.Lines%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		line := sc.Bytes()
		if stats.Lines == 0 {
			line = rowsplit.TrimBOM(line)
		}
		stats.Lines++

		parts = rowsplit.Split(parts[:0], line, p.delim)
		if sel.Max() > len(parts) {
			stats.Padded++
		}
		for i, pos := range sel {
			if i > 0 {
				w.WriteByte(p.delim)
			}
			if pos <= len(parts) {
				w.Write(parts[pos-1])
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return stats, fmt.Errorf("writing %s: %w", dst, err)
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("reading %s at line %d: %w", src, stats.Lines+1, err)
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("writing %s: %w", dst, err)
	}

	p.logger.Debug("projected", zap.String("src", src), zap.Int64("lines", stats.Lines), zap.Int64("padded", stats.Padded))
	return stats, nil
}
