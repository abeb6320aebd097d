package kvstore

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drivers(t *testing.T) map[string]Store {
	t.Helper()

	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"file":   f,
		"sqlite": sq,
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "ns_missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "ns_a", `{"v":1}`))
			require.NoError(t, s.Set(ctx, "ns_a", `{"v":2}`))

			v, ok, err := s.Get(ctx, "ns_a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"v":2}`, v)

			require.NoError(t, s.Delete(ctx, "ns_a"))
			_, ok, err = s.Get(ctx, "ns_a")
			require.NoError(t, err)
			assert.False(t, ok)

			// deleting twice is fine
			require.NoError(t, s.Delete(ctx, "ns_a"))
		})
	}
}

func TestStores_KeysByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "ns_courses?page=1", "1"))
			require.NoError(t, s.Set(ctx, "ns_categories", "2"))
			require.NoError(t, s.Set(ctx, "other_key", "3"))

			keys, err := s.Keys(ctx, "ns_")
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{"ns_categories", "ns_courses?page=1"}, keys)

			all, err := s.Keys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestFile_ValueWithNewlines(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, f.Set(ctx, "k", "line1\nline2"))
	v, ok, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "line1\nline2", v)

	assert.Error(t, f.Set(ctx, "bad\nkey", "x"))
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Config{Driver: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	s, err = Open(ctx, Config{Driver: "none"})
	require.NoError(t, err)
	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = Open(ctx, Config{Driver: "etcd"})
	assert.Error(t, err)
}

func TestOpenRedis_Unreachable(t *testing.T) {
	_, err := OpenRedis(context.Background(), Config{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `course_explorer_cache_`, globEscape("course_explorer_cache_"))
	assert.Equal(t, `a\*b\?\[c\]`, globEscape("a*b?[c]"))
}
