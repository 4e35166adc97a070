package binary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockFileName = ".install.lock"

	// staleLockThreshold matches the archive download timeout: a lock
	// older than this belongs to a process that died mid-install.
	staleLockThreshold = archiveTimeout

	lockPollInterval = 500 * time.Millisecond
)

// installLock serializes installs into a cache root across processes.
// Acquisition uses O_CREATE|O_EXCL so exactly one process wins.
type installLock struct {
	path string
	file *os.File
}

// acquireInstallLock obtains the install lock for a cache root, waiting
// for a concurrent holder to finish. Stale locks left by crashed
// processes are broken after staleLockThreshold.
func acquireInstallLock(ctx context.Context, root string) (*installLock, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	lockPath := filepath.Join(root, lockFileName)

	for {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err == nil {
			meta := fmt.Sprintf("pid=%d\ntimestamp=%s\n",
				os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			if _, werr := file.WriteString(meta); werr != nil {
				file.Close()
				os.Remove(lockPath)
				return nil, fmt.Errorf("write lock metadata: %w", werr)
			}
			return &installLock{path: lockPath, file: file}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		if breakStaleLock(lockPath) {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for install lock: %w", ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Release drops the lock. Safe to call more than once.
func (l *installLock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path != "" {
		path := l.path
		l.path = ""
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}
	return nil
}

// breakStaleLock removes an abandoned lock file. The mtime is checked
// immediately before removal so a lock that was just replaced by a new
// holder is left alone. The check-then-remove window is small but not
// zero; stale-lock breaking is best-effort.
func breakStaleLock(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil || time.Since(info.ModTime()) <= staleLockThreshold {
		return false
	}
	os.Remove(lockPath)
	return true
}
