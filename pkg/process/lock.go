// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// StackLocker defines the interface for per-project stack locking.
//
// # Description
//
// StackLocker prevents multiple processes from mutating the same compose
// project simultaneously, avoiding race conditions like one test binary
// tearing down the stack another binary is still waiting on.
//
// # Thread Safety
//
// Implementations must be safe for use from a single goroutine. The lock
// itself provides inter-process synchronization, not intra-process.
type StackLocker interface {
	// Acquire attempts to get an exclusive lock.
	// Returns nil if lock acquired, error otherwise.
	Acquire() error

	// Release releases the lock if held.
	// Safe to call multiple times or if lock was never acquired.
	Release() error

	// IsHeld returns true if this instance currently holds the lock.
	IsHeld() bool

	// HolderPID returns the PID of the process holding the lock.
	// Returns 0 if no process holds the lock or if unable to determine.
	HolderPID() int
}

// StackLockConfig configures stack lock behavior.
//
// # Description
//
// Allows customization of lock file location and scope.
//
// # Example
//
//	config := StackLockConfig{
//	    LockDir:  "/var/run/composekit",
//	    LockName: "composekit-demo",
//	}
type StackLockConfig struct {
	// LockDir is the directory for lock files.
	// Default: system temp directory
	LockDir string

	// LockName is the base name for lock files.
	// Default: "composekit"
	LockName string
}

// DefaultStackLockConfig returns sensible defaults.
//
// # Description
//
// Uses the system temp directory and "composekit" as the lock name.
// This ensures the lock file is in a writable location on all platforms.
// For per-project scope, set LockName to "composekit-{project}" or use
// NewProjectLock.
//
// # Outputs
//
//   - StackLockConfig: Configuration with default values
func DefaultStackLockConfig() StackLockConfig {
	return StackLockConfig{
		LockDir:  os.TempDir(),
		LockName: "composekit",
	}
}

// StackLock implements StackLocker using file-based locking.
//
// # Description
//
// Uses flock(2) system call for advisory file locking. This prevents
// separate processes from running mutating operations against the same
// compose project simultaneously, avoiding races like:
//
//   - Suite A: stack up for project "shared-db" (waiting for readiness)
//   - Suite B: stack down for project "shared-db" (deletes what A created)
//
// # How It Works
//
//  1. Creates a lock file at {LockDir}/{LockName}.lock
//  2. Attempts exclusive flock on the file
//  3. Writes PID to {LockDir}/{LockName}.pid for debugging
//  4. On release, removes PID file and releases flock
//
// # Thread Safety
//
// StackLock is NOT safe for concurrent use from multiple goroutines.
// Use from a single goroutine (typically the test harness setup).
//
// # Limitations
//
//   - Advisory lock only - other processes can ignore it if they don't check
//   - NFS and some network filesystems don't support flock properly
//   - Lock survives if process crashes without calling Release (OS releases flock)
//
// # Assumptions
//
//   - LockDir exists and is writable
//   - Only one StackLock instance per project per process
//   - OS supports flock(2) system call
//
// # Example
//
//	lock := process.NewProjectLock("demo")
//	if err := lock.Acquire(); err != nil {
//	    return err
//	}
//	defer lock.Release()
type StackLock struct {
	config   StackLockConfig
	lockPath string
	pidPath  string
	lockFile *os.File
	held     bool
}

// NewStackLock creates a new stack lock.
//
// # Description
//
// Creates a StackLock configured to use the specified directory
// and name for lock files. Does not acquire the lock.
//
// # Inputs
//
//   - config: Configuration for lock file location
//
// # Outputs
//
//   - *StackLock: New lock instance (not yet acquired)
//
// # Example
//
//	lock := NewStackLock(StackLockConfig{
//	    LockDir:  "/var/run/myapp",
//	    LockName: "myapp-stack",
//	})
func NewStackLock(config StackLockConfig) *StackLock {
	if config.LockDir == "" {
		config.LockDir = os.TempDir()
	}
	if config.LockName == "" {
		config.LockName = "composekit"
	}

	return &StackLock{
		config:   config,
		lockPath: filepath.Join(config.LockDir, config.LockName+".lock"),
		pidPath:  filepath.Join(config.LockDir, config.LockName+".pid"),
	}
}

// NewProjectLock creates a stack lock scoped to a compose project.
//
// # Description
//
// Convenience constructor used by the test harness: the lock file is
// named after the project so unrelated stacks never contend.
//
// # Inputs
//
//   - project: Compose project name (used verbatim in the file name)
//
// # Outputs
//
//   - *StackLock: New lock instance (not yet acquired)
func NewProjectLock(project string) *StackLock {
	return NewStackLock(StackLockConfig{
		LockName: "composekit-" + project,
	})
}

// Acquire attempts to get an exclusive lock.
//
// # Description
//
// Uses a non-blocking flock to try to acquire the lock. If another
// process holds the lock, returns a *LockHeldError containing the PID
// of the holder (if available).
//
// # Outputs
//
//   - error: nil if lock acquired, descriptive error otherwise
//
// # Error Conditions
//
//   - Another process holds the project lock (returns *LockHeldError)
//   - Cannot create lock file (permission denied, disk full)
//   - Cannot acquire flock (system error)
//
// # Example
//
//	if err := lock.Acquire(); err != nil {
//	    var held *process.LockHeldError
//	    if errors.As(err, &held) {
//	        t.Skipf("project busy (PID %d)", held.HolderPID)
//	    }
//	    t.Fatal(err)
//	}
func (s *StackLock) Acquire() error {
	if s.held {
		return nil // Already held
	}

	// Create lock file
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file %s: %w", s.lockPath, err)
	}

	// Try non-blocking exclusive lock
	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		f.Close()

		// Lock is held by another process
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return &LockHeldError{
				HolderPID: s.readHolderPID(),
				LockPath:  s.lockPath,
			}
		}

		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	s.lockFile = f
	s.held = true

	// Write our PID for debugging. Non-fatal on failure; the flock is
	// already held.
	_ = s.writePID()

	return nil
}

// Release releases the lock if held.
//
// # Description
//
// Removes the PID file and releases the flock. Safe to call multiple
// times or if the lock was never acquired.
//
// # Outputs
//
//   - error: nil on success, error if release fails
//
// # Example
//
//	defer func() {
//	    if err := lock.Release(); err != nil {
//	        logger.Warn("failed to release stack lock", "error", err)
//	    }
//	}()
func (s *StackLock) Release() error {
	if !s.held || s.lockFile == nil {
		return nil
	}

	// Remove PID file first
	os.Remove(s.pidPath)

	// Release flock
	err := syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)

	// Close file (also releases lock if flock failed)
	s.lockFile.Close()
	s.lockFile = nil
	s.held = false

	// Lock file is left in place for faster subsequent acquires.

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}

// IsHeld returns true if this instance currently holds the lock.
//
// # Description
//
// Checks local state only - does not verify the flock is still valid.
// Useful for conditional cleanup in defer blocks.
func (s *StackLock) IsHeld() bool {
	return s.held
}

// HolderPID returns the PID of the process holding the lock.
//
// # Description
//
// Reads the PID file to determine which process holds the lock.
// Returns 0 if no PID file exists or if unable to read it.
//
// # Limitations
//
//   - May return stale PID if holder crashed without cleanup
//   - Relies on PID file, which may not exist
func (s *StackLock) HolderPID() int {
	return s.readHolderPID()
}

// writePID writes the current process PID to the PID file.
func (s *StackLock) writePID() error {
	pid := os.Getpid()
	content := fmt.Sprintf("%d\n", pid)
	return os.WriteFile(s.pidPath, []byte(content), 0644)
}

// readHolderPID reads the PID from the PID file.
func (s *StackLock) readHolderPID() int {
	data, err := os.ReadFile(s.pidPath)
	if err != nil {
		return 0
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0
	}

	return pid
}

// LockPath returns the path to the lock file.
//
// Useful for error messages and debugging.
func (s *StackLock) LockPath() string {
	return s.lockPath
}

// PIDPath returns the path to the PID file.
//
// Useful for error messages and debugging.
func (s *StackLock) PIDPath() string {
	return s.pidPath
}

// LockHeldError is returned when the lock is held by another process.
type LockHeldError struct {
	HolderPID int
	LockPath  string
}

// Error implements the error interface.
func (e *LockHeldError) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("another process holds the stack lock (PID %d). "+
			"If this is stale, remove %s", e.HolderPID, e.LockPath)
	}
	return fmt.Sprintf("another process holds the stack lock (check: lsof %s)", e.LockPath)
}

// Compile-time interface satisfaction check
var _ StackLocker = (*StackLock)(nil)
