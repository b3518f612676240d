package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	path := store.Path("intake", "abc.json")
	original := record{Name: "Visa", Balance: 4800}
	if err := store.WriteJSON(path, original); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	var got record
	if err := store.ReadJSON(path, &got); err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if got != original {
		t.Errorf("Content mismatch before encryption: %+v", got)
	}

	password := "testpassword123"
	if err := store.EnableEncryption(password); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}
	if !store.IsEncrypted() {
		t.Error("Expected IsEncrypted() to return true")
	}

	raw, _ := os.ReadFile(path)
	if !isSealed(raw) {
		t.Error("File should be encrypted on disk")
	}

	got = record{}
	if err := store.ReadJSON(path, &got); err != nil {
		t.Fatalf("Failed to read encrypted file: %v", err)
	}
	if got != original {
		t.Errorf("Content mismatch after encryption: %+v", got)
	}

	store.Lock()
	if store.IsUnlocked() {
		t.Error("Expected storage to be locked")
	}
	if _, err := store.ReadFile(path); !errors.Is(err, ErrLocked) {
		t.Errorf("ReadFile while locked: got %v, want ErrLocked", err)
	}
	if err := store.Unlock(password); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}

	if err := store.DisableEncryption(password); err != nil {
		t.Fatalf("Failed to disable encryption: %v", err)
	}
	if store.IsEncrypted() {
		t.Error("Expected IsEncrypted() to return false after disable")
	}

	raw, _ = os.ReadFile(path)
	if isSealed(raw) {
		t.Error("File should be decrypted on disk")
	}
	if _, err := os.Stat(filepath.Join(dir, verifyFile)); !os.IsNotExist(err) {
		t.Error("Verify file should be removed")
	}
}

func TestReopenEncryptedDirectory(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)
	if err := store.EnableEncryption("testpassword123"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	if !reopened.IsEncrypted() || reopened.IsUnlocked() {
		t.Error("Reopened storage should be encrypted and locked")
	}
	if err := reopened.Unlock("testpassword123"); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
}

func TestWrongPassword(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)

	if err := store.WriteFile(filepath.Join(dir, "test.json"), []byte(`{"test": true}`), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := store.EnableEncryption("correctpassword"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}

	store.Lock()
	if err := store.Unlock("wrongpassword"); err == nil {
		t.Error("Expected error with wrong password")
	}
	if err := store.DisableEncryption("wrongpassword"); err == nil {
		t.Error("Expected error disabling with wrong password")
	}
}

func TestPasswordTooShort(t *testing.T) {
	store, _ := New(t.TempDir())

	if err := store.EnableEncryption("short"); err == nil {
		t.Error("Expected error for short password")
	}
}

func TestSkipCacheAndNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)

	cacheFile := filepath.Join(dir, "cache", "payoff.json")
	content := []byte(`{"cached": true}`)
	if err := store.WriteFile(cacheFile, content, 0644); err != nil {
		t.Fatalf("Failed to write cache file: %v", err)
	}
	dbFile := filepath.Join(dir, "debtplan.db")
	if err := os.WriteFile(dbFile, []byte("SQLite format 3"), 0644); err != nil {
		t.Fatalf("Failed to write db file: %v", err)
	}

	if err := store.EnableEncryption("testpassword123"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}

	raw, _ := os.ReadFile(cacheFile)
	if string(raw) != string(content) {
		t.Error("Cache file content should be unchanged")
	}
	raw, _ = os.ReadFile(dbFile)
	if isSealed(raw) {
		t.Error("Database file should not be encrypted")
	}
}

func TestNewFilesEncrypted(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)

	if err := store.EnableEncryption("testpassword123"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}

	path := filepath.Join(dir, "new.json")
	content := []byte(`{"balance": 100}`)
	if err := store.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write new file: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if !isSealed(raw) {
		t.Error("New file should be encrypted on disk")
	}

	read, err := store.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read new file: %v", err)
	}
	if string(read) != string(content) {
		t.Errorf("Content mismatch: got %q, want %q", string(read), string(content))
	}
}
