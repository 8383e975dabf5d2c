package main_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leeovery/minimize/internal/testutil"
)

func TestBuild(t *testing.T) {
	// Build once for all subtests.
	repoRoot := testutil.FindRepoRoot(t)
	binary := filepath.Join(t.TempDir(), "minimize")

	cmd := exec.Command("go", "build", "-ldflags", "-X github.com/leeovery/minimize/internal/cli.Version=9.9.9", "-o", binary, "./cmd/minimize/")
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}

	t.Run("go build produces a minimize binary without errors", func(t *testing.T) {
		info, err := os.Stat(binary)
		if err != nil {
			t.Fatalf("binary not found: %v", err)
		}
		if info.Size() == 0 {
			t.Fatal("binary is empty")
		}
		if info.Mode()&0111 == 0 {
			t.Fatal("binary is not executable")
		}
	})

	t.Run("version is injected at link time", func(t *testing.T) {
		out, err := exec.Command(binary, "--version").Output()
		if err != nil {
			t.Fatalf("--version failed: %v", err)
		}
		if !strings.Contains(string(out), "9.9.9") {
			t.Errorf("expected version 9.9.9 in %q", out)
		}
	})

	t.Run("help lists the file and field flags", func(t *testing.T) {
		out, err := exec.Command(binary, "--help").Output()
		if err != nil {
			t.Fatalf("--help failed: %v", err)
		}
		for _, want := range []string{"--files", "--fields", "--all"} {
			if !strings.Contains(string(out), want) {
				t.Errorf("help output missing %s", want)
			}
		}
	})
}
