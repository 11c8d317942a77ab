// Package retention manages the local holding area that uploaded originals
// are moved into instead of being deleted outright.
package retention

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Manager moves uploaded files into a holding directory and purges them on
// request. Nothing is ever removed from the source tree without having
// passed through the holding area first.
type Manager struct {
	dir string
	now func() time.Time
}

// NewManager creates a manager over the given holding directory. The
// directory is created lazily on first move.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, now: time.Now}
}

// Dir returns the holding directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// Move relocates path into the holding area under a timestamp-prefixed name
// so repeated moves of identically named files never collide. Returns the
// destination path.
func (m *Manager) Move(path string) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create holding dir: %w", err)
	}

	name := strconv.FormatInt(m.now().UnixMilli(), 10) + "_" + filepath.Base(path)
	dest := filepath.Join(m.dir, name)

	if err := os.Rename(path, dest); err != nil {
		// Rename fails across filesystems; fall back to copy-and-remove.
		if cerr := copyFile(path, dest); cerr != nil {
			return "", fmt.Errorf("move %s to holding area: %w", path, cerr)
		}
		if rerr := os.Remove(path); rerr != nil {
			return "", fmt.Errorf("remove original %s: %w", path, rerr)
		}
	}

	return dest, nil
}

// Purge deletes every file in the holding area and returns how many were
// removed.
func (m *Manager) Purge() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read holding dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("purge %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}

// Count returns the number of files currently held.
func (m *Manager) Count() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			n++
		}
	}
	return n, nil
}

// Size returns the total byte size of all held files.
func (m *Manager) Size() (int64, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// OriginalName strips the timestamp prefix Move applied to a held file.
func OriginalName(held string) string {
	base := filepath.Base(held)
	if _, rest, ok := strings.Cut(base, "_"); ok {
		return rest
	}
	return base
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}

	return out.Close()
}
