// SPDX-License-Identifier: AGPL-3.0-only
package singleton

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTryAcquireAndRelease(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	lock, acquired, err := TryAcquire(dbPath)
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	if !acquired {
		t.Fatal("Expected to acquire the lock")
	}

	if _, err := os.Stat(dbPath + ".lock"); err != nil {
		t.Errorf("Expected lock file next to the database: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	lock, acquired, err := TryAcquire(dbPath)
	if err != nil || !acquired {
		t.Fatalf("First acquire failed: acquired=%v err=%v", acquired, err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	lock, acquired, err = TryAcquire(dbPath)
	if err != nil || !acquired {
		t.Fatalf("Reacquire failed: acquired=%v err=%v", acquired, err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
}
