package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	pkgerrors "github.com/pkg/errors"
)

const (
	// BackendFilesystem is the directory based backend name.
	BackendFilesystem = "filesystem"

	fileExtension = ".cache"
	lockFileName  = ".lock"
	dirPerm       = 0o750
	filePerm      = 0o640
)

// fileEntry is the on-disk representation of one cache entry.
type fileEntry struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
	Value     []byte    `json:"value"`
}

func (e *fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Filesystem stores one file per key in a directory shared by every process using the same path.
// Readers take a shared lock and writers an exclusive lock on a lock file inside the directory.
// The flock handle is not safe for concurrent use, so calls within one process are serialized by mu.
type Filesystem struct {
	mu   sync.Mutex
	dir  string
	lock *flock.Flock
	now  func() time.Time
}

// NewFilesystem creates the cache directory if needed and returns the backend.
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		return nil, pkgerrors.Wrap(ErrBackend, "filesystem cache path is empty")
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, pkgerrors.Wrapf(err, "create cache directory %s", dir)
	}

	return &Filesystem{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFileName)),
		now:  time.Now,
	}, nil
}

// Name implements Adapter.
func (f *Filesystem) Name() string { return BackendFilesystem }

// Has implements Adapter.
func (f *Filesystem) Has(key string) (bool, error) {
	_, err := f.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrMiss):
		return false, nil
	default:
		return false, err
	}
}

// Get implements Adapter.
func (f *Filesystem) Get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.RLock(); err != nil {
		return nil, f.backendErr(err, "lock")
	}
	defer f.unlock()

	entry, err := f.read(key)
	if err != nil {
		return nil, err
	}

	if entry.expired(f.now()) {
		return nil, ErrMiss
	}

	return entry.Value, nil
}

// Set implements Adapter.
func (f *Filesystem) Set(key string, value []byte, ttl time.Duration) error {
	entry := fileEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = f.now().Add(ttl)
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		return f.backendErr(err, "encode")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err = f.lock.Lock(); err != nil {
		return f.backendErr(err, "lock")
	}
	defer f.unlock()

	tmp, err := os.CreateTemp(f.dir, "tmp-*")
	if err != nil {
		return f.backendErr(err, "create temp file")
	}

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return f.backendErr(err, "write")
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return f.backendErr(err, "close")
	}

	if err = os.Chmod(tmp.Name(), filePerm); err != nil {
		_ = os.Remove(tmp.Name())

		return f.backendErr(err, "chmod")
	}

	if err = os.Rename(tmp.Name(), f.path(key)); err != nil {
		_ = os.Remove(tmp.Name())

		return f.backendErr(err, "rename")
	}

	return nil
}

// Delete implements Adapter.
func (f *Filesystem) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.Lock(); err != nil {
		return f.backendErr(err, "lock")
	}
	defer f.unlock()

	for _, key := range keys {
		if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return f.backendErr(err, "delete")
		}
	}

	return nil
}

// Clear implements Adapter.
func (f *Filesystem) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.Lock(); err != nil {
		return f.backendErr(err, "lock")
	}
	defer f.unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return f.backendErr(err, "list")
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExtension) {
			continue
		}

		if err = os.Remove(filepath.Join(f.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return f.backendErr(err, "delete")
		}
	}

	return nil
}

func (f *Filesystem) read(key string) (*fileEntry, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMiss
		}

		return nil, f.backendErr(err, "read")
	}

	var entry fileEntry
	if err = json.Unmarshal(data, &entry); err != nil {
		return nil, f.backendErr(err, "decode")
	}

	// sha256 collision or foreign file
	if entry.Key != key {
		return nil, ErrMiss
	}

	return &entry, nil
}

// path maps a key to its file. Keys are hashed so any string is a valid file name.
func (f *Filesystem) path(key string) string {
	sum := sha256.Sum256([]byte(key))

	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+fileExtension)
}

func (f *Filesystem) unlock() {
	_ = f.lock.Unlock()
}

func (f *Filesystem) backendErr(err error, op string) error {
	return pkgerrors.Wrapf(ErrBackend, "filesystem %s %s: %v", op, f.dir, err)
}
