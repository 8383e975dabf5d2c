// Package selector resolves the ordered list of files a run processes.
package selector

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrNoInput is returned when neither explicit paths nor a directory scan yield any file.
var ErrNoInput = errors.New("no input files: pass --files or --all with .csv/.txt files present")

const (
	// CutExt is the extension of the intermediate projected file.
	CutExt = ".cut"
	// MinimizedSuffix is appended to the base name of each output file.
	MinimizedSuffix = "_minimized.csv"
)

// DefaultExtensions are the file extensions picked up by a directory scan.
var DefaultExtensions = []string{".csv", ".txt"}

// FileRef identifies one input file and the paths derived from it.
type FileRef struct {
	Path    string
	Base    string
	CutPath string
	OutPath string
}

// NewFileRef derives the intermediate and output paths for path.
// The base is path without its final extension; a name without one is its own base.
func NewFileRef(path string) FileRef {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return FileRef{
		Path:    path,
		Base:    base,
		CutPath: base + CutExt,
		OutPath: base + MinimizedSuffix,
	}
}

// Options controls how Resolve picks files.
type Options struct {
	// Files are explicit paths, used verbatim in order.
	Files []string
	// All scans the directory instead of using Files.
	All bool
	// Extensions recognised by a scan; DefaultExtensions when empty.
	Extensions []string
}

// Resolve returns the files to process, relative paths anchored at dir.
func Resolve(fs afero.Fs, dir string, opts Options) ([]FileRef, error) {
	if opts.All && len(opts.Files) > 0 {
		return nil, fmt.Errorf("--all and --files cannot be used together")
	}

	var paths []string
	var err error
	if opts.All {
		paths, err = scan(fs, dir, opts.Extensions)
	} else {
		paths, err = explicit(fs, dir, opts.Files)
	}
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoInput
	}

	refs := make([]FileRef, len(paths))
	for i, p := range paths {
		refs[i] = NewFileRef(p)
	}
	return refs, nil
}

// scan lists dir and keeps regular files with a recognised extension, sorted by name.
// Outputs of earlier runs are skipped so a re-run does not minimize its own results.
func scan(fs afero.Fs, dir string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Mode().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, MinimizedSuffix) || !hasExt(name, exts) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func hasExt(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func explicit(fs afero.Fs, dir string, files []string) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" {
			continue
		}
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		info, err := fs.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input file %s: %w", f, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input file %s is a directory", f)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
