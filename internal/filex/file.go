// Package filex holds filesystem helpers shared by the storage packages. All
// helpers work on an afero.Fs so that tests can run against memory.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrPathTraversal is returned for names that would leave their directory.
var ErrPathTraversal = errors.New("path escapes root")

// EnsureDir creates dir (and parents) with mode 0o770 if needed.
func EnsureDir(fs afero.Fs, dir string) error {
	if err := fs.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Join places a single client supplied name under root. Names containing a
// separator, "..", or starting with a dot are rejected.
func Join(root, name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return filepath.Join(root, name), nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it over
// path, so readers see either the old or the new content.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	tmp := path + ".tmp"

	f, err := fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o660)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
