package browser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// The profile directory is opaque state owned by Chrome. Export and import
// move it as a whole tree; nothing here inspects or edits its contents.

// ExportProfile copies the profile directory at src to dst.
func ExportProfile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("profile directory not found: %s", src)
	}
	if !info.IsDir() {
		return fmt.Errorf("profile path is not a directory: %s", src)
	}
	return copyTree(src, dst)
}

// ImportProfile replaces the profile directory at dst with the tree at src.
// The browser must not be running while the profile is swapped.
func ImportProfile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source profile not found: %s", src)
	}
	if !info.IsDir() {
		return fmt.Errorf("source profile is not a directory: %s", src)
	}

	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to clear profile dir: %w", err)
	}
	return copyTree(src, dst)
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		// Chrome leaves sockets and pipes behind; skip anything non-regular.
		if !info.Mode().IsRegular() {
			return nil
		}

		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
