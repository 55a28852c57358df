package browser

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfileTree(t *testing.T, root string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, "Default"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"Local State":         `{"profile":{}}`,
		"Default/Cookies":     "binary-cookie-data",
		"Default/Preferences": `{"homepage":"x"}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExportProfile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "profile")
	dst := filepath.Join(t.TempDir(), "backup")
	writeProfileTree(t, src)

	if err := ExportProfile(src, dst); err != nil {
		t.Fatalf("ExportProfile: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "Default", "Cookies"))
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if string(data) != "binary-cookie-data" {
		t.Errorf("file content changed: %q", data)
	}
}

func TestExportProfileMissingSource(t *testing.T) {
	err := ExportProfile(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestImportProfileReplacesExisting(t *testing.T) {
	src := filepath.Join(t.TempDir(), "exported")
	dst := filepath.Join(t.TempDir(), "profile")
	writeProfileTree(t, src)

	// pre-existing state that must not survive the import
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dst, "stale-file"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ImportProfile(src, dst); err != nil {
		t.Fatalf("ImportProfile: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "stale-file")); !os.IsNotExist(err) {
		t.Error("stale file survived the import")
	}
	if _, err := os.Stat(filepath.Join(dst, "Local State")); err != nil {
		t.Errorf("imported file missing: %v", err)
	}
}
