package darc

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeFilesAtomic creates a temp file next to each target, lets fn write
// them, and renames every temp file over its target only when fn and all
// closes succeed. Parent directories are created as needed.
func writeFilesAtomic(targets []string, fn func([]io.Writer) error) error {
	temps := make([]*os.File, 0, len(targets))
	cleanup := func() {
		for _, tmp := range temps {
			_ = tmp.Close()           //nolint:errcheck // best-effort cleanup
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}

	for _, target := range targets {
		dir := filepath.Dir(target)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			cleanup()
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
		tmp, err := os.CreateTemp(dir, ".darc-*")
		if err != nil {
			cleanup()
			return fmt.Errorf("create temp file: %w", err)
		}
		temps = append(temps, tmp)
	}

	writers := make([]io.Writer, len(temps))
	for i, tmp := range temps {
		writers[i] = tmp
	}
	if err := fn(writers); err != nil {
		cleanup()
		return err
	}

	for _, tmp := range temps {
		if err := tmp.Close(); err != nil {
			cleanup()
			return fmt.Errorf("close %s: %w", tmp.Name(), err)
		}
	}
	for i, tmp := range temps {
		if err := os.Rename(tmp.Name(), targets[i]); err != nil {
			cleanup()
			return fmt.Errorf("rename to %s: %w", targets[i], err)
		}
	}
	return nil
}

// writeFileInRoot writes data to rel under root through a temp file in the
// same directory and renames it into place.
func writeFileInRoot(root *os.Root, rel string, data []byte) error {
	if err := root.MkdirAll(filepath.Dir(rel), 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", filepath.Dir(rel), err)
	}
	tmp, tmpRel, err := createTempFile(root, filepath.Dir(rel), ".darc-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()          //nolint:errcheck // best-effort cleanup
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := root.Rename(tmpRel, rel); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return err
	}
	return nil
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
