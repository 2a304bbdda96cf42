// Package cachefile implements the deterministic hashing and atomic
// write-then-rename machinery used by the cache transport (spec.md
// §4.3, §6, scenario S6): a finished cache file "<hash>.cache", an
// in-progress file "<hash>.cache.temp", and a writer-lock file
// "<hash>.cache.lock" created with O_EXCL semantics, all on one
// filesystem so the final rename is atomic.
package cachefile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Hash returns the deterministic hash used to name a resource's cache
// files: the URI plus any attributes that affect its content.
func Hash(uri string, extra ...string) string {
	h := sha256.New()
	h.Write([]byte(uri))
	for _, e := range extra {
		h.Write([]byte{0})
		h.Write([]byte(e))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Paths returns the three deterministic paths for a resource's cache
// files under dir.
func Paths(dir, hash string) (cache, temp, lock string) {
	base := filepath.Join(dir, hash)
	return base + ".cache", base + ".cache.temp", base + ".cache.lock"
}

// AcquireLock creates the lock file with O_EXCL semantics. If the lock
// already exists, ok is false and the caller must fall back to
// read-through-without-caching (spec.md §5).
func AcquireLock(lockPath string) (ok bool, err error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("cachefile: acquire lock: %w", err)
	}
	return true, f.Close()
}

// ReleaseLock removes the lock file.
func ReleaseLock(lockPath string) error {
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cachefile: release lock: %w", err)
	}
	return nil
}

// Commit renames temp over cache atomically. Both paths must be on the
// same filesystem; this is verified with a stat-device comparison
// rather than assumed, since a misconfigured cache dir would otherwise
// fail silently with a cross-device rename error from the OS.
func Commit(temp, cache string) error {
	var st unix.Stat_t
	if err := unix.Stat(filepath.Dir(temp), &st); err != nil {
		return fmt.Errorf("cachefile: stat cache dir: %w", err)
	}
	var cst unix.Stat_t
	if err := unix.Stat(filepath.Dir(cache), &cst); err != nil {
		return fmt.Errorf("cachefile: stat cache dir: %w", err)
	}
	if st.Dev != cst.Dev {
		return fmt.Errorf("cachefile: commit: %s and %s are on different filesystems", temp, cache)
	}
	if err := os.Rename(temp, cache); err != nil {
		return fmt.Errorf("cachefile: commit: %w", err)
	}
	return nil
}

// Exists reports whether the finished cache file is present.
func Exists(cachePath string) bool {
	_, err := os.Stat(cachePath)
	return err == nil
}
