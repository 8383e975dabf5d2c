package selector

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func writeFiles(t *testing.T, fs afero.Fs, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := afero.WriteFile(fs, filepath.Join(dir, n), []byte("a\tb\n"), 0644); err != nil {
			t.Fatalf("writing %s: %v", n, err)
		}
	}
}

func TestNewFileRef(t *testing.T) {
	t.Run("it derives cut and output paths from the base name", func(t *testing.T) {
		ref := NewFileRef("/data/voters.2024.txt")
		if ref.Base != "/data/voters.2024" {
			t.Errorf("Base = %q, want %q", ref.Base, "/data/voters.2024")
		}
		if ref.CutPath != "/data/voters.2024.cut" {
			t.Errorf("CutPath = %q", ref.CutPath)
		}
		if ref.OutPath != "/data/voters.2024_minimized.csv" {
			t.Errorf("OutPath = %q", ref.OutPath)
		}
	})

	t.Run("it uses the whole name when there is no extension", func(t *testing.T) {
		ref := NewFileRef("/data/voters")
		if ref.Base != "/data/voters" || ref.CutPath != "/data/voters.cut" {
			t.Errorf("ref = %+v", ref)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("it scans the directory in sorted order", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, "/w", "b.txt", "a.csv", "c.tsv", "notes.md")

		refs, err := Resolve(fs, "/w", Options{All: true})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if len(refs) != 2 {
			t.Fatalf("got %d files, want 2", len(refs))
		}
		if refs[0].Path != "/w/a.csv" || refs[1].Path != "/w/b.txt" {
			t.Errorf("paths = %q, %q", refs[0].Path, refs[1].Path)
		}
	})

	t.Run("it skips outputs of earlier runs", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, "/w", "a.txt", "a_minimized.csv")

		refs, err := Resolve(fs, "/w", Options{All: true})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if len(refs) != 1 || refs[0].Path != "/w/a.txt" {
			t.Errorf("refs = %+v", refs)
		}
	})

	t.Run("it honours custom extensions", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, "/w", "a.tsv", "b.txt")

		refs, err := Resolve(fs, "/w", Options{All: true, Extensions: []string{".tsv"}})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if len(refs) != 1 || refs[0].Path != "/w/a.tsv" {
			t.Errorf("refs = %+v", refs)
		}
	})

	t.Run("it fails fast when a scan finds nothing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, "/w", "readme.md")

		_, err := Resolve(fs, "/w", Options{All: true})
		if !errors.Is(err, ErrNoInput) {
			t.Errorf("error = %v, want ErrNoInput", err)
		}
	})

	t.Run("it fails fast when no files are supplied", func(t *testing.T) {
		_, err := Resolve(afero.NewMemMapFs(), "/w", Options{})
		if !errors.Is(err, ErrNoInput) {
			t.Errorf("error = %v, want ErrNoInput", err)
		}
	})

	t.Run("it keeps explicit files in supplied order", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, "/w", "z.txt", "a.txt")

		refs, err := Resolve(fs, "/w", Options{Files: []string{"z.txt", "/w/a.txt"}})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if refs[0].Path != "/w/z.txt" || refs[1].Path != "/w/a.txt" {
			t.Errorf("paths = %q, %q", refs[0].Path, refs[1].Path)
		}
	})

	t.Run("it rejects a missing explicit file", func(t *testing.T) {
		_, err := Resolve(afero.NewMemMapFs(), "/w", Options{Files: []string{"gone.txt"}})
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("it rejects --all combined with --files", func(t *testing.T) {
		_, err := Resolve(afero.NewMemMapFs(), "/w", Options{All: true, Files: []string{"a.txt"}})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
