package binary

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireInstallLock(t *testing.T) {
	t.Run("creates_lock_file_with_metadata", func(t *testing.T) {
		root := t.TempDir()
		lock, err := acquireInstallLock(context.Background(), root)
		if err != nil {
			t.Fatalf("acquireInstallLock: %v", err)
		}
		defer lock.Release()

		data, err := os.ReadFile(filepath.Join(root, lockFileName))
		if err != nil {
			t.Fatalf("lock file missing: %v", err)
		}
		if !strings.Contains(string(data), "pid=") {
			t.Errorf("lock metadata = %q, want pid entry", data)
		}
	})

	t.Run("creates_cache_root_if_needed", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "cache")
		lock, err := acquireInstallLock(context.Background(), root)
		if err != nil {
			t.Fatalf("acquireInstallLock: %v", err)
		}
		defer lock.Release()
	})

	t.Run("waits_for_holder_until_context_expires", func(t *testing.T) {
		root := t.TempDir()
		lock, err := acquireInstallLock(context.Background(), root)
		if err != nil {
			t.Fatal(err)
		}
		defer lock.Release()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if _, err := acquireInstallLock(ctx, root); err == nil {
			t.Error("expected context expiry while lock is held")
		}
	})

	t.Run("acquires_after_holder_releases", func(t *testing.T) {
		root := t.TempDir()
		lock1, err := acquireInstallLock(context.Background(), root)
		if err != nil {
			t.Fatal(err)
		}

		done := make(chan error, 1)
		go func() {
			lock2, err := acquireInstallLock(context.Background(), root)
			if err == nil {
				lock2.Release()
			}
			done <- err
		}()

		time.Sleep(10 * time.Millisecond)
		if err := lock1.Release(); err != nil {
			t.Fatal(err)
		}
		if err := <-done; err != nil {
			t.Errorf("second acquire after release: %v", err)
		}
	})

	t.Run("never_breaks_fresh_lock", func(t *testing.T) {
		root := t.TempDir()
		lockPath := filepath.Join(root, lockFileName)
		if err := os.WriteFile(lockPath, []byte("pid=99999\n"), 0600); err != nil {
			t.Fatal(err)
		}

		// A lock written moments ago belongs to a live holder; the
		// break path must re-check freshness and leave it alone.
		if breakStaleLock(lockPath) {
			t.Error("breakStaleLock removed a fresh lock")
		}
		if _, err := os.Stat(lockPath); err != nil {
			t.Errorf("fresh lock should survive: %v", err)
		}
	})

	t.Run("breaks_stale_lock", func(t *testing.T) {
		root := t.TempDir()
		lockPath := filepath.Join(root, lockFileName)
		if err := os.WriteFile(lockPath, []byte("pid=99999\n"), 0600); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(-staleLockThreshold - time.Minute)
		if err := os.Chtimes(lockPath, old, old); err != nil {
			t.Fatal(err)
		}

		lock, err := acquireInstallLock(context.Background(), root)
		if err != nil {
			t.Fatalf("expected stale lock to be broken: %v", err)
		}
		defer lock.Release()
	})
}

func TestInstallLockReleaseIdempotent(t *testing.T) {
	root := t.TempDir()
	lock, err := acquireInstallLock(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second release should be a no-op: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, lockFileName)); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}
}
