package dedup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/w/in.cut", []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return fs
}

func read(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestDedup(t *testing.T) {
	t.Run("it keeps the first occurrence of each row in order", func(t *testing.T) {
		fs := setup(t, "a\tb\n1\t2\n1\t2\n4\t5\n")

		d := New(fs, '\t', WithLogger(zaptest.NewLogger(t)))
		stats, err := d.Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv")
		if err != nil {
			t.Fatalf("Dedup returned error: %v", err)
		}

		want := "a,b\n1,2\n4,5\n"
		if got := read(t, fs, "/w/in_minimized.csv"); got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
		if stats.Rows != 3 || stats.Written != 2 || stats.Duplicates != 1 {
			t.Errorf("stats = %+v, want rows 3 written 2 duplicates 1", stats)
		}
	})

	t.Run("it removes the intermediate file", func(t *testing.T) {
		fs := setup(t, "a\n1\n")

		if _, err := New(fs, '\t').Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv"); err != nil {
			t.Fatalf("Dedup returned error: %v", err)
		}
		if ok, _ := afero.Exists(fs, "/w/in.cut"); ok {
			t.Error("intermediate file still exists")
		}
	})

	t.Run("it writes only the header when there are no data rows", func(t *testing.T) {
		fs := setup(t, "a\tb\n")

		stats, err := New(fs, '\t').Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv")
		if err != nil {
			t.Fatalf("Dedup returned error: %v", err)
		}
		if got := read(t, fs, "/w/in_minimized.csv"); got != "a,b\n" {
			t.Errorf("output = %q", got)
		}
		if stats.Written != 0 {
			t.Errorf("Written = %d, want 0", stats.Written)
		}
		if ok, _ := afero.Exists(fs, "/w/in.cut"); ok {
			t.Error("intermediate file still exists")
		}
	})

	t.Run("it compares values exactly", func(t *testing.T) {
		fs := setup(t, "name\nAnn\nann\nAnn \nAnn\n")

		stats, err := New(fs, '\t').Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv")
		if err != nil {
			t.Fatalf("Dedup returned error: %v", err)
		}
		if stats.Written != 3 {
			t.Errorf("Written = %d, want 3", stats.Written)
		}
	})

	t.Run("it does not confuse values that only differ in where fields split", func(t *testing.T) {
		fs := setup(t, "a\tb\nab\t\na\tb\n")

		stats, err := New(fs, '\t').Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv")
		if err != nil {
			t.Fatalf("Dedup returned error: %v", err)
		}
		if stats.Written != 2 {
			t.Errorf("Written = %d, want 2", stats.Written)
		}
	})

	t.Run("it quotes values that contain the output delimiter", func(t *testing.T) {
		fs := setup(t, "city\tstate\nSpringfield, IL\tIL\n\"Q\"\tNY\n")

		if _, err := New(fs, '\t').Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv"); err != nil {
			t.Fatalf("Dedup returned error: %v", err)
		}
		want := "city,state\n\"Springfield, IL\",IL\n\"\"\"Q\"\"\",NY\n"
		if got := read(t, fs, "/w/in_minimized.csv"); got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("it pads short rows and treats them as equal to explicit empties", func(t *testing.T) {
		fs := setup(t, "a\tb\n1\n1\t\n")

		stats, err := New(fs, '\t').Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv")
		if err != nil {
			t.Fatalf("Dedup returned error: %v", err)
		}
		if got := read(t, fs, "/w/in_minimized.csv"); got != "a,b\n1,\n" {
			t.Errorf("output = %q", got)
		}
		if stats.Padded != 1 || stats.Duplicates != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("it rejects rows longer than the header", func(t *testing.T) {
		fs := setup(t, "a\n1\t2\n")

		_, err := New(fs, '\t').Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv")
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Fatalf("error = %v, want line 2 error", err)
		}
		if ok, _ := afero.Exists(fs, "/w/in_minimized.csv"); ok {
			t.Error("output should not exist after a failed run")
		}
	})

	t.Run("it fails on an empty intermediate file", func(t *testing.T) {
		fs := setup(t, "")

		_, err := New(fs, '\t').Dedup(context.Background(), "/w/in.cut", "/w/in_minimized.csv")
		if !errors.Is(err, ErrNoHeader) {
			t.Errorf("error = %v, want ErrNoHeader", err)
		}
	})

	t.Run("it is idempotent on its own output", func(t *testing.T) {
		fs := setup(t, "a\tb\n1\t2\n3\t4\n1\t2\n")
		d := New(fs, '\t')
		if _, err := d.Dedup(context.Background(), "/w/in.cut", "/w/first.csv"); err != nil {
			t.Fatalf("first Dedup returned error: %v", err)
		}
		first := read(t, fs, "/w/first.csv")

		afero.WriteFile(fs, "/w/again.cut", []byte(strings.ReplaceAll(first, ",", "\t")), 0644)
		if _, err := d.Dedup(context.Background(), "/w/again.cut", "/w/second.csv"); err != nil {
			t.Fatalf("second Dedup returned error: %v", err)
		}
		if second := read(t, fs, "/w/second.csv"); second != first {
			t.Errorf("second pass = %q, want %q", second, first)
		}
	})

	t.Run("it honours a custom output delimiter", func(t *testing.T) {
		fs := setup(t, "a\tb\n1\t2\n")

		if _, err := New(fs, '\t', WithOutputDelimiter(';')).Dedup(context.Background(), "/w/in.cut", "/w/out.csv"); err != nil {
			t.Fatalf("Dedup returned error: %v", err)
		}
		if got := read(t, fs, "/w/out.csv"); got != "a;b\n1;2\n" {
			t.Errorf("output = %q", got)
		}
	})
}

func TestDedupSQLiteStore(t *testing.T) {
	t.Run("it produces the same output as the memory store", func(t *testing.T) {
		dir := t.TempDir()
		fs := afero.NewOsFs()
		content := "a\tb\n1\t2\n3\t4\n1\t2\n3\t4\n5\t6\n"

		outputs := make(map[Store]string)
		for _, store := range []Store{StoreMemory, StoreSQLite} {
			cut := filepath.Join(dir, string(store)+".cut")
			out := filepath.Join(dir, string(store)+"_minimized.csv")
			if err := os.WriteFile(cut, []byte(content), 0644); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}

			stats, err := New(fs, '\t', WithStore(store)).Dedup(context.Background(), cut, out)
			if err != nil {
				t.Fatalf("%s Dedup returned error: %v", store, err)
			}
			if stats.Written != 3 {
				t.Errorf("%s Written = %d, want 3", store, stats.Written)
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("reading output: %v", err)
			}
			outputs[store] = string(data)

			if _, err := os.Stat(out + SeenSuffix); !os.IsNotExist(err) {
				t.Errorf("%s seen-set database left behind", store)
			}
		}

		if outputs[StoreMemory] != outputs[StoreSQLite] {
			t.Errorf("memory output %q != sqlite output %q", outputs[StoreMemory], outputs[StoreSQLite])
		}
	})
}

func TestParseStore(t *testing.T) {
	t.Run("it defaults to memory", func(t *testing.T) {
		s, err := ParseStore("")
		if err != nil || s != StoreMemory {
			t.Errorf("ParseStore(\"\") = %q, %v", s, err)
		}
	})

	t.Run("it rejects unknown stores", func(t *testing.T) {
		if _, err := ParseStore("redis"); err == nil {
			t.Error("expected error")
		}
	})
}
