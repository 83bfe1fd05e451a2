package flights

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// BackupSuffix is appended to a user file while it is being replaced. A
// taken name gets a number: ".backup0", ".backup1" and so on.
const BackupSuffix = ".backup"

type backupFile struct {
	path string
	num  int // -1 for the unnumbered backup
	mod  int64
}

// listBackups returns every backup of path, in no particular order.
func listBackups(fs afero.Fs, path string) ([]backupFile, error) {
	matches, err := afero.Glob(fs, globEscape(path)+BackupSuffix+"*")
	if err != nil {
		return nil, fmt.Errorf("glob backups: %w", err)
	}

	prefix := filepath.Base(path) + BackupSuffix
	out := make([]backupFile, 0, len(matches))
	for _, m := range matches {
		rest := strings.TrimPrefix(filepath.Base(m), prefix)
		num := -1
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 0 {
				continue
			}
			num = n
		}
		info, err := fs.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		out = append(out, backupFile{path: m, num: num, mod: info.ModTime().UnixNano()})
	}
	return out, nil
}

// newest picks the most recently modified backup. Equal times go to the
// highest number.
func newest(backups []backupFile) backupFile {
	best := backups[0]
	for _, b := range backups[1:] {
		if b.mod > best.mod || (b.mod == best.mod && b.num > best.num) {
			best = b
		}
	}
	return best
}

// recoverBackups replaces path with its newest backup and removes the rest.
// It reports whether anything was restored.
func recoverBackups(fs afero.Fs, path string) (bool, error) {
	backups, err := listBackups(fs, path)
	if err != nil {
		return false, err
	}
	if len(backups) == 0 {
		return false, nil
	}

	keep := newest(backups)
	if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	if err := fs.Rename(keep.path, path); err != nil {
		return false, fmt.Errorf("promote %s: %w", keep.path, err)
	}
	for _, b := range backups {
		if b.path == keep.path {
			continue
		}
		if err := fs.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return true, fmt.Errorf("remove %s: %w", b.path, err)
		}
	}
	return true, nil
}

// freeBackupPath returns the first unused backup name for path.
func freeBackupPath(fs afero.Fs, path string) (string, error) {
	candidate := path + BackupSuffix
	for i := 0; ; i++ {
		ok, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if !ok {
			return candidate, nil
		}
		candidate = path + BackupSuffix + strconv.Itoa(i)
	}
}

// replaceFile writes data to path. An existing file is first renamed to a
// backup that is deleted once the new content is on disk. If the write fails
// the backup is put back.
func replaceFile(fs afero.Fs, path string, data []byte) error {
	hadFile, err := afero.Exists(fs, path)
	if err != nil {
		return err
	}

	var backup string
	if hadFile {
		if backup, err = freeBackupPath(fs, path); err != nil {
			return fmt.Errorf("backup name: %w", err)
		}
		if err := fs.Rename(path, backup); err != nil {
			return fmt.Errorf("backup %s: %w", path, err)
		}
	}

	if err := writeSynced(fs, path, data); err != nil {
		if hadFile {
			_ = fs.Remove(path)
			_ = fs.Rename(backup, path)
		}
		return err
	}

	if hadFile {
		if err := fs.Remove(backup); err != nil {
			return fmt.Errorf("remove backup: %w", err)
		}
	}
	return nil
}

func writeSynced(fs afero.Fs, path string, data []byte) error {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o660)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return f.Close()
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
