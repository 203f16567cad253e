package process

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStackLock_DefaultConfig(t *testing.T) {
	config := DefaultStackLockConfig()

	if config.LockDir == "" {
		t.Error("DefaultStackLockConfig should set LockDir")
	}
	if config.LockName != "composekit" {
		t.Errorf("DefaultStackLockConfig LockName = %q, want %q", config.LockName, "composekit")
	}
}

func TestStackLock_NewStackLock(t *testing.T) {
	tests := []struct {
		name   string
		config StackLockConfig
		want   struct {
			lockDir  string
			lockName string
		}
	}{
		{
			name:   "default values",
			config: StackLockConfig{},
			want: struct {
				lockDir  string
				lockName string
			}{
				lockDir:  os.TempDir(),
				lockName: "composekit",
			},
		},
		{
			name: "custom values",
			config: StackLockConfig{
				LockDir:  "/custom/dir",
				LockName: "myapp-stack",
			},
			want: struct {
				lockDir  string
				lockName string
			}{
				lockDir:  "/custom/dir",
				lockName: "myapp-stack",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lock := NewStackLock(tt.config)

			expectedLockPath := filepath.Join(tt.want.lockDir, tt.want.lockName+".lock")
			if lock.LockPath() != expectedLockPath {
				t.Errorf("LockPath() = %q, want %q", lock.LockPath(), expectedLockPath)
			}

			expectedPIDPath := filepath.Join(tt.want.lockDir, tt.want.lockName+".pid")
			if lock.PIDPath() != expectedPIDPath {
				t.Errorf("PIDPath() = %q, want %q", lock.PIDPath(), expectedPIDPath)
			}
		})
	}
}

func TestNewProjectLock(t *testing.T) {
	lock := NewProjectLock("demo")

	if !strings.HasSuffix(lock.LockPath(), "composekit-demo.lock") {
		t.Errorf("LockPath() = %q, want composekit-demo.lock suffix", lock.LockPath())
	}
}

func TestStackLock_AcquireRelease(t *testing.T) {
	// Use temp directory for test isolation
	tmpDir := t.TempDir()

	lock := NewStackLock(StackLockConfig{
		LockDir:  tmpDir,
		LockName: "test",
	})

	// Initially not held
	if lock.IsHeld() {
		t.Error("Lock should not be held initially")
	}

	// Acquire should succeed
	err := lock.Acquire()
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	// Should be held now
	if !lock.IsHeld() {
		t.Error("Lock should be held after Acquire()")
	}

	// PID file should exist and contain our PID
	pid := lock.HolderPID()
	if pid != os.Getpid() {
		t.Errorf("HolderPID() = %d, want %d", pid, os.Getpid())
	}

	// Double acquire should be idempotent
	err = lock.Acquire()
	if err != nil {
		t.Errorf("Double Acquire() should succeed: %v", err)
	}

	// Release should succeed
	err = lock.Release()
	if err != nil {
		t.Fatalf("Release() failed: %v", err)
	}

	// Should not be held after release
	if lock.IsHeld() {
		t.Error("Lock should not be held after Release()")
	}

	// PID file should be removed
	if _, err := os.Stat(lock.PIDPath()); !os.IsNotExist(err) {
		t.Error("PID file should be removed after Release()")
	}

	// Double release should be safe
	err = lock.Release()
	if err != nil {
		t.Errorf("Double Release() should succeed: %v", err)
	}
}

func TestStackLock_BlocksSecondInstance(t *testing.T) {
	// Use temp directory for test isolation
	tmpDir := t.TempDir()

	lock1 := NewStackLock(StackLockConfig{
		LockDir:  tmpDir,
		LockName: "test",
	})
	lock2 := NewStackLock(StackLockConfig{
		LockDir:  tmpDir,
		LockName: "test",
	})

	// First lock should succeed
	err := lock1.Acquire()
	if err != nil {
		t.Fatalf("First Acquire() failed: %v", err)
	}
	defer lock1.Release()

	// Second lock should fail
	err = lock2.Acquire()
	if err == nil {
		lock2.Release()
		t.Fatal("Second Acquire() should fail when lock is held")
	}

	// The failure carries the holder PID
	var held *LockHeldError
	if !errors.As(err, &held) {
		t.Fatalf("Acquire() error type = %T, want *LockHeldError", err)
	}
	if held.HolderPID != os.Getpid() {
		t.Errorf("LockHeldError.HolderPID = %d, want %d", held.HolderPID, os.Getpid())
	}
}

func TestStackLock_ReleaseMakesAvailable(t *testing.T) {
	tmpDir := t.TempDir()

	lock1 := NewStackLock(StackLockConfig{
		LockDir:  tmpDir,
		LockName: "test",
	})
	lock2 := NewStackLock(StackLockConfig{
		LockDir:  tmpDir,
		LockName: "test",
	})

	// Acquire and release first lock
	if err := lock1.Acquire(); err != nil {
		t.Fatalf("First Acquire() failed: %v", err)
	}
	if err := lock1.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}

	// Second lock should now succeed
	if err := lock2.Acquire(); err != nil {
		t.Fatalf("Second Acquire() should succeed after release: %v", err)
	}
	defer lock2.Release()
}

func TestStackLock_DifferentProjectsDoNotContend(t *testing.T) {
	tmpDir := t.TempDir()

	lockA := NewStackLock(StackLockConfig{LockDir: tmpDir, LockName: "composekit-project-a"})
	lockB := NewStackLock(StackLockConfig{LockDir: tmpDir, LockName: "composekit-project-b"})

	if err := lockA.Acquire(); err != nil {
		t.Fatalf("Acquire() project A failed: %v", err)
	}
	defer lockA.Release()

	if err := lockB.Acquire(); err != nil {
		t.Fatalf("Acquire() project B should not contend with A: %v", err)
	}
	defer lockB.Release()
}

func TestStackLock_HolderPID_NoFile(t *testing.T) {
	tmpDir := t.TempDir()

	lock := NewStackLock(StackLockConfig{
		LockDir:  tmpDir,
		LockName: "test",
	})

	// Without acquiring, HolderPID should return 0
	pid := lock.HolderPID()
	if pid != 0 {
		t.Errorf("HolderPID() without lock = %d, want 0", pid)
	}
}

func TestStackLock_HolderPID_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()

	lock := NewStackLock(StackLockConfig{
		LockDir:  tmpDir,
		LockName: "test",
	})

	// Write invalid PID file
	if err := os.WriteFile(lock.PIDPath(), []byte("not-a-number"), 0644); err != nil {
		t.Fatalf("Failed to write invalid PID file: %v", err)
	}

	pid := lock.HolderPID()
	if pid != 0 {
		t.Errorf("HolderPID() with invalid file = %d, want 0", pid)
	}
}

func TestLockHeldError_Error(t *testing.T) {
	withPID := &LockHeldError{HolderPID: 12345, LockPath: "/tmp/test.lock"}
	if !strings.Contains(withPID.Error(), "PID 12345") {
		t.Errorf("Error() = %q, want PID mentioned", withPID.Error())
	}

	withoutPID := &LockHeldError{LockPath: "/tmp/test.lock"}
	if !strings.Contains(withoutPID.Error(), "lsof /tmp/test.lock") {
		t.Errorf("Error() = %q, want lsof hint", withoutPID.Error())
	}
}
