// Package dedup removes duplicate rows from projected intermediate files.
//
// The first line of the intermediate file is the header. Every following row
// is reduced to a key made of its field values; the first row with a given key
// is written to the output and later ones are dropped. Values are compared
// byte for byte with no normalisation.
package dedup

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/leeovery/minimize/internal/rowsplit"
)

// ErrNoHeader is returned when the intermediate file has no header line.
var ErrNoHeader = errors.New("intermediate file is empty: no header row")

// SeenSuffix is appended to the output path to name the sqlite seen-set database.
const SeenSuffix = ".seen.db"

const ctxCheckEvery = 1 << 16

// Stats describes one deduplication.
type Stats struct {
	// Rows is the number of data rows read, header excluded.
	Rows int64
	// Written is the number of distinct rows written.
	Written int64
	// Duplicates is Rows minus Written.
	Duplicates int64
	// Padded counts rows shorter than the header.
	Padded int64
}

// Deduper writes the distinct rows of intermediate files as CSV.
type Deduper struct {
	fs       afero.Fs
	delim    byte
	outDelim rune
	store    Store
	maxLine  int
	logger   *zap.Logger
}

// Option configures a Deduper.
type Option func(*Deduper)

// WithLogger sets the logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(d *Deduper) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithStore selects the seen-set implementation.
func WithStore(s Store) Option {
	return func(d *Deduper) {
		if s != "" {
			d.store = s
		}
	}
}

// WithOutputDelimiter sets the output field separator (default ',').
func WithOutputDelimiter(r rune) Option {
	return func(d *Deduper) {
		if r != 0 {
			d.outDelim = r
		}
	}
}

// WithMaxLine sets the longest accepted line in bytes.
func WithMaxLine(n int) Option {
	return func(d *Deduper) {
		if n > 0 {
			d.maxLine = n
		}
	}
}

// New creates a Deduper reading intermediate files split on delim.
func New(fs afero.Fs, delim byte, opts ...Option) *Deduper {
	d := &Deduper{
		fs:       fs,
		delim:    delim,
		outDelim: ',',
		store:    StoreMemory,
		maxLine:  rowsplit.DefaultMaxLine,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dedup writes the header and the first occurrence of every distinct row of
// cutPath to outPath, then removes cutPath. Rows shorter than the header are
// padded with empty values; longer rows are an error. outPath is replaced
// atomically, so a failed run never leaves a truncated output behind.
func (d *Deduper) Dedup(ctx context.Context, cutPath, outPath string) (stats Stats, err error) {
	defer func() {
		if rerr := d.fs.Remove(cutPath); rerr != nil && err == nil {
			err = fmt.Errorf("removing %s: %w", cutPath, rerr)
		}
	}()

	in, err := d.fs.Open(cutPath)
	if err != nil {
		return Stats{}, fmt.Errorf("opening %s: %w", cutPath, err)
	}
	defer in.Close()

	sc := rowsplit.NewScanner(in, d.maxLine)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Stats{}, fmt.Errorf("reading header of %s: %w", cutPath, err)
		}
		return Stats{}, ErrNoHeader
	}
	header := rowsplit.Header(sc.Bytes(), d.delim)

	seen, err := OpenSeenSet(d.store, outPath+SeenSuffix)
	if err != nil {
		return Stats{}, err
	}
	defer seen.Close()

	d.logger.Debug("deduplicating",
		zap.String("src", cutPath),
		zap.String("dst", outPath),
		zap.Strings("header", header),
		zap.String("store", string(d.store)),
	)

	err = d.writeAtomic(outPath, func(w *csv.Writer) error {
		if err := w.Write(header); err != nil {
			return err
		}

		var parts [][]byte
		var key []byte
		record := make([]string, len(header))
		line := int64(1)

		for sc.Scan() {
			line++
			if stats.Rows%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			stats.Rows++

			parts = rowsplit.Split(parts[:0], sc.Bytes(), d.delim)
			if len(parts) > len(header) {
				return fmt.Errorf("%s line %d: %d fields, header has %d", cutPath, line, len(parts), len(header))
			}
			if len(parts) < len(header) {
				stats.Padded++
			}

			key = appendKey(key[:0], parts, len(header))
			added, err := seen.Add(key)
			if err != nil {
				return err
			}
			if !added {
				stats.Duplicates++
				continue
			}

			for i := range record {
				record[i] = ""
				if i < len(parts) {
					record[i] = string(parts[i])
				}
			}
			if err := w.Write(record); err != nil {
				return err
			}
			stats.Written++
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("reading %s at line %d: %w", cutPath, line+1, err)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	d.logger.Debug("deduplicated",
		zap.String("dst", outPath),
		zap.Int64("rows", stats.Rows),
		zap.Int64("written", stats.Written),
		zap.Int64("duplicates", stats.Duplicates),
	)
	return stats, nil
}

// appendKey encodes width fields, each prefixed by its length, so that two
// rows share a key only when every field is byte-identical. Missing trailing
// fields encode as empty, matching the padded output row.
func appendKey(dst []byte, parts [][]byte, width int) []byte {
	for i := 0; i < width; i++ {
		var f []byte
		if i < len(parts) {
			f = parts[i]
		}
		dst = binary.AppendUvarint(dst, uint64(len(f)))
		dst = append(dst, f...)
	}
	return dst
}

// writeAtomic runs fill against a CSV writer on a temp file next to path,
// then flushes, fsyncs and renames it over path.
func (d *Deduper) writeAtomic(path string, fill func(w *csv.Writer) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmpFile, err := afero.TempFile(d.fs, dir, "."+base+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			d.fs.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriterSize(tmpFile, 1<<20)
	w := csv.NewWriter(bw)
	w.Comma = d.outDelim

	if err := fill(w); err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := d.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
