package kvstore

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File keeps one file per key beneath Dir. The filename is the md5 of the
// clear-text key; the first line of each file holds the clear-text key so
// Keys can recover it, the rest is the value.
type File struct {
	Dir string

	mu sync.Mutex
}

// DefaultDir resolves the base cache directory.
// Precedence:
//  1. CATALOG_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/catalogd
//
// Returns ("", false) if a base cannot be resolved.
func DefaultDir() (string, bool) {
	if c, ok := os.LookupEnv("CATALOG_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "catalogd"), true
	}
	return "", false
}

// NewFile creates dir if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &File{Dir: dir}, nil
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	stored, value, ok := bytes.Cut(b, []byte("\n"))
	if !ok || string(stored) != key {
		return "", false, fmt.Errorf("cache file for %q is malformed", key)
	}
	return string(value), true, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	if strings.ContainsRune(key, '\n') {
		return fmt.Errorf("key %q contains a newline", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.path(key)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(key+"\n"+value), os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *File) Keys(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		key, err := firstLine(filepath.Join(f.Dir, e.Name()))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (f *File) Close() error { return nil }

func (f *File) path(key string) string {
	return filepath.Join(f.Dir, encodeKey(key))
}

func firstLine(p string) (string, error) {
	fh, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	r := bufio.NewReader(fh)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// encodeKey hashes k with MD5 and returns the hex string.
func encodeKey(k string) string {
	h := md5.New()
	_, _ = h.Write([]byte(k))
	return hex.EncodeToString(h.Sum(nil))
}
