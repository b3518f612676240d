// Package storage gives the rest of the application one place to read and
// write files under the data directory. When encryption is enabled, JSON
// files are sealed with age using a password-derived scrypt key and opened
// transparently on read.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// markerFile signals that the directory is encrypted
	markerFile = ".encrypted"

	// verifyFile holds verifyMagic sealed with the current password
	verifyFile = ".encryption-verify"

	verifyMagic = `{"magic":"debtplan-encryption-verify","version":1}`

	// minPasswordLength applies when enabling encryption
	minPasswordLength = 8
)

// ErrLocked is returned when an encrypted file is read before Unlock
var ErrLocked = errors.New("storage is locked")

// Storage is a data directory with optional at-rest encryption
type Storage struct {
	baseDir   string
	encrypted bool
	keys      *keys
	mu        sync.RWMutex
}

// New opens the data directory at baseDir, creating it if needed
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Storage{baseDir: baseDir}
	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}
	return s, nil
}

// BaseDir returns the data directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// Path joins elem onto the data directory
func (s *Storage) Path(elem ...string) string {
	return filepath.Join(append([]string{s.baseDir}, elem...)...)
}

// IsEncrypted reports whether encryption is enabled
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked reports whether files can be read
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.keys != nil
}

// Unlock verifies password against the verify file and keeps the key in memory
func (s *Storage) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	k, err := s.checkPassword(password)
	if err != nil {
		return err
	}
	s.keys = k
	return nil
}

// Lock forgets the key
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = nil
}

// checkPassword derives keys and proves them against the verify file.
// Caller must hold the lock.
func (s *Storage) checkPassword(password string) (*keys, error) {
	k, err := deriveKeys(password)
	if err != nil {
		return nil, err
	}

	sealed, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return nil, fmt.Errorf("read verification file: %w", err)
	}

	plain, err := k.open(sealed)
	if err != nil || string(plain) != verifyMagic {
		return nil, fmt.Errorf("incorrect password")
	}
	return k, nil
}

// ReadFile reads path, opening it when sealed
func (s *Storage) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isSealed(data) {
		return data, nil
	}
	if s.keys == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrLocked)
	}
	return s.keys.open(data)
}

// WriteFile writes path atomically, sealing it when encryption is on
func (s *Storage) WriteFile(path string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.encrypted && !s.exempt(path) {
		if s.keys == nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrLocked)
		}
		sealed, err := s.keys.seal(data)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", filepath.Base(path), err)
		}
		data = sealed
	}

	return atomicWrite(path, data, perm)
}

// ReadJSON reads path into v
func (s *Storage) ReadJSON(path string, v interface{}) error {
	data, err := s.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteJSON writes v to path as indented JSON
func (s *Storage) WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return s.WriteFile(path, data, 0600)
}

// Glob returns files under the data directory matching pattern
func (s *Storage) Glob(pattern string) ([]string, error) {
	return filepath.Glob(filepath.Join(s.baseDir, pattern))
}

// Remove deletes a file
func (s *Storage) Remove(path string) error {
	return os.Remove(path)
}

// exempt reports files that always stay plaintext: the bookkeeping files and
// anything under a cache directory
func (s *Storage) exempt(path string) bool {
	switch filepath.Base(path) {
	case markerFile, verifyFile:
		return true
	}
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil {
		return false
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return first == "cache"
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
