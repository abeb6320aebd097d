package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogd/internal/catalog"
)

var courses = []catalog.Course{
	{ID: "1", Title: "Go Basics", Teacher: "Ada", Category: "Backend", Lessons: []catalog.Lesson{
		{Title: "Intro", Duration: 45, VideosCount: 2},
		{Title: "Types", Duration: 30, VideosCount: 3},
	}},
	{ID: "2", Title: "CSS Grid", Teacher: "Lin", Category: "Frontend"},
	{ID: "3", Title: "Channels", Teacher: "Ada", Category: "Backend"},
}

func upstream(t *testing.T) (string, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/courses":
			_ = json.NewEncoder(w).Encode(courses)
		case "/courses/1":
			_ = json.NewEncoder(w).Encode(courses[0])
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`"Not found"`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL, &hits
}

func run(t *testing.T, base, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	argv := append([]string{"catalogctl", "--upstream", base, "--cache-dir", dir}, args...)
	err := newApp(&out).Run(context.Background(), argv)
	return out.String(), err
}

func TestCourses_PersistsAcrossRuns(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	base, hits := upstream(t)
	dir := t.TempDir()

	out, err := run(t, base, dir, "courses", "--limit", "3")
	require.NoError(t, err)
	var got []catalog.Course
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 3)

	_, err = run(t, base, dir, "courses", "--limit", "3")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "second run should be served from the file store")
}

func TestCourse_Summary(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	base, _ := upstream(t)

	out, err := run(t, base, t.TempDir(), "course", "--summary", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Go Basics (Backend)")
	assert.Contains(t, out, "lessons: 2, videos: 5, total: 1h 15m")
}

func TestCourse_NotFound(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	base, _ := upstream(t)

	_, err := run(t, base, t.TempDir(), "course", "42")
	require.Error(t, err)
	assert.True(t, catalog.IsNotFound(err))
}

func TestCourse_MissingID(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	base, hits := upstream(t)

	_, err := run(t, base, t.TempDir(), "course")
	assert.ErrorIs(t, err, catalog.ErrInvalidID)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestCategories(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	base, _ := upstream(t)

	out, err := run(t, base, t.TempDir(), "categories")
	require.NoError(t, err)
	assert.Equal(t, []string{"Backend", "Frontend"}, strings.Fields(out))
}

func TestCacheStatsAndClear(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	base, hits := upstream(t)
	dir := t.TempDir()

	_, err := run(t, base, dir, "course", "1")
	require.NoError(t, err)
	_, err = run(t, base, dir, "categories")
	require.NoError(t, err)

	out, err := run(t, base, dir, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "entries: 2 (expired 0)")

	out, err = run(t, base, dir, "cache", "clear", "--course", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared course 1")

	_, err = run(t, base, dir, "course", "1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))

	out, err = run(t, base, dir, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared 2 entries")
}

func TestNoCache(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	base, hits := upstream(t)
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		_, err := run(t, base, dir, "--no-cache", "categories")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}
