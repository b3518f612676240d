package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EnableEncryption seals every JSON file in the data directory with password
func (s *Storage) EnableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return fmt.Errorf("encryption is already enabled")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	k, err := deriveKeys(password)
	if err != nil {
		return err
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	sealed, err := k.seal([]byte(verifyMagic))
	if err != nil {
		return fmt.Errorf("encrypt verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, sealed, 0600); err != nil {
		return fmt.Errorf("write verification file: %w", err)
	}

	files, err := s.collect(func(path string, data []byte) bool {
		return strings.EqualFold(filepath.Ext(path), ".json") && !isSealed(data)
	})
	if err != nil {
		os.Remove(verifyPath)
		return fmt.Errorf("scan data directory: %w", err)
	}

	var done []string
	for _, path := range files {
		if err := rewrite(path, k.seal); err != nil {
			// best effort: put back what was already sealed
			for _, p := range done {
				rewrite(p, k.open)
			}
			os.Remove(verifyPath)
			return fmt.Errorf("encrypt %s: %w", filepath.Base(path), err)
		}
		done = append(done, path)
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0600); err != nil {
		return fmt.Errorf("write marker file: %w", err)
	}

	s.encrypted = true
	s.keys = k
	return nil
}

// DisableEncryption opens every sealed file in place. The current password is
// required even when the storage is already unlocked.
func (s *Storage) DisableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return fmt.Errorf("encryption is not enabled")
	}

	k, err := s.checkPassword(password)
	if err != nil {
		return err
	}

	files, err := s.collect(func(_ string, data []byte) bool {
		return isSealed(data)
	})
	if err != nil {
		return fmt.Errorf("scan data directory: %w", err)
	}

	for _, path := range files {
		if err := rewrite(path, k.open); err != nil {
			return fmt.Errorf("decrypt %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.keys = nil
	return nil
}

// collect walks the data directory and returns the non-exempt files accepted by keep
func (s *Storage) collect(keep func(path string, data []byte) bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || s.exempt(path) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if keep(path, data) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// rewrite replaces a file's contents with transform(contents)
func rewrite(path string, transform func([]byte) ([]byte, error)) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := transform(data)
	if err != nil {
		return err
	}
	return atomicWrite(path, out, info.Mode().Perm())
}
