package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanner_Scan(t *testing.T) {
	// Create a temporary directory structure for testing
	tmpDir := t.TempDir()

	// Create case files
	files := []string{
		"smoke/home.nav.yaml",
		"smoke/mail.nav.yml",
		"checkout/cart.nav.yaml",
		"vendor/lib.nav.yaml",
		"node_modules/pkg/page.nav.yaml",
		".navcheck/old.nav.yaml",
		"smoke/notes.yaml",
		"smoke/.nav.yaml",
	}
	for _, file := range files {
		fullPath := filepath.Join(tmpDir, file)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", file, err)
		}
		if err := os.WriteFile(fullPath, []byte("name: x"), 0644); err != nil {
			t.Fatalf("failed to create file %s: %v", file, err)
		}
	}

	scanner := NewScanner([]string{"vendor", "node_modules"})

	t.Run("scans case files correctly", func(t *testing.T) {
		results, err := scanner.Scan(tmpDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Should find 3 case files, not the ones in vendor/node_modules/hidden dirs
		if len(results) != 3 {
			t.Fatalf("expected 3 case files, got %d: %v", len(results), results)
		}

		expected := []string{
			filepath.Join(tmpDir, "checkout/cart.nav.yaml"),
			filepath.Join(tmpDir, "smoke/home.nav.yaml"),
			filepath.Join(tmpDir, "smoke/mail.nav.yml"),
		}
		for i, want := range expected {
			if results[i] != want {
				t.Errorf("result %d: expected %s, got %s", i, want, results[i])
			}
		}
	})

	t.Run("scans a hidden root", func(t *testing.T) {
		results, err := scanner.Scan(filepath.Join(tmpDir, ".navcheck"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("expected 1 case file, got %d", len(results))
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		_, err := scanner.Scan("/non/existent/path")
		if err == nil {
			t.Error("expected error for non-existent directory")
		}
	})

	t.Run("returns error for file instead of directory", func(t *testing.T) {
		testFile := filepath.Join(tmpDir, "smoke/home.nav.yaml")
		_, err := scanner.Scan(testFile)
		if err == nil {
			t.Error("expected error for file path")
		}
	})
}

func TestIsCaseFile(t *testing.T) {
	tests := map[string]bool{
		"home.nav.yaml": true,
		"home.nav.yml":  true,
		"home.yaml":     false,
		".nav.yaml":     false,
		"home.nav.json": false,
	}
	for name, want := range tests {
		if got := IsCaseFile(name); got != want {
			t.Errorf("IsCaseFile(%q) = %v, want %v", name, got, want)
		}
	}
}
