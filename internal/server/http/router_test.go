package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"

	"catalogd/internal/catalog"
	"catalogd/internal/config"
	"catalogd/internal/respcache"
	"catalogd/pkg/kvstore"
)

type upstream struct {
	hits   int32
	mu     sync.Mutex
	reqIDs []string
}

func (u *upstream) Hits() int { return int(atomic.LoadInt32(&u.hits)) }

func (u *upstream) LastRequestID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.reqIDs) == 0 {
		return ""
	}
	return u.reqIDs[len(u.reqIDs)-1]
}

var fixtures = []catalog.Course{
	{ID: "1", Title: "Go Basics", Category: "Backend"},
	{ID: "2", Title: "CSS Grid", Category: "Frontend"},
	{ID: "3", Title: "Channels", Category: "Backend"},
}

// newTestApp wires a full server against a fake course API.
func newTestApp(t *testing.T) (*fiber.App, *upstream) {
	t.Helper()
	up := &upstream{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&up.hits, 1)
		up.mu.Lock()
		up.reqIDs = append(up.reqIDs, r.Header.Get("X-Request-Id"))
		up.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/courses" && r.URL.Query().Get("search") == "nothing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`"Not found"`))
		case r.URL.Path == "/courses":
			json.NewEncoder(w).Encode(fixtures)
		case r.URL.Path == "/courses/1":
			json.NewEncoder(w).Encode(fixtures[0])
		case r.URL.Path == "/courses/500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`"Not found"`))
		}
	}))
	t.Cleanup(backend.Close)

	cache := respcache.New(kvstore.NewMemory())
	client, err := catalog.New(catalog.Config{BaseURL: backend.URL}, cache)
	if err != nil {
		t.Fatalf("catalog.New err=%v", err)
	}

	t.Setenv("APP_ENV", "prod")
	srv := New(&config.Config{}, client)
	return srv.App(), up
}

func do(t *testing.T, app *fiber.App, method, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("%s %s err=%v", method, target, err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestCourses_SecondRequestServedFromCache(t *testing.T) {
	app, up := newTestApp(t)

	for i := 0; i < 2; i++ {
		resp, body := do(t, app, http.MethodGet, "/courses?page=1&limit=6")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusOK)
		}
		var got []catalog.Course
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len=%d want 3", len(got))
		}
	}
	if up.Hits() != 1 {
		t.Fatalf("upstream hits=%d want 1", up.Hits())
	}
}

func TestCourses_NoMatchIsEmptyList(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := do(t, app, http.MethodGet, "/courses?search=nothing")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusOK)
	}
	if string(body) != "[]" {
		t.Fatalf("body=%s want []", body)
	}
}

func TestCourse_StatusMapping(t *testing.T) {
	app, _ := newTestApp(t)

	cases := map[string]int{
		"/courses/1":   http.StatusOK,
		"/courses/42":  http.StatusNotFound,
		"/courses/500": http.StatusBadGateway,
		"/courses/%20": http.StatusBadRequest,
	}
	for target, want := range cases {
		resp, body := do(t, app, http.MethodGet, target)
		if resp.StatusCode != want {
			t.Fatalf("%s status=%d want %d body=%s", target, resp.StatusCode, want, body)
		}
	}
}

func TestCategories_Distinct(t *testing.T) {
	app, _ := newTestApp(t)

	_, body := do(t, app, http.MethodGet, "/categories")
	var got []string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0] != "Backend" || got[1] != "Frontend" {
		t.Fatalf("categories=%v want [Backend Frontend]", got)
	}
}

func TestCacheAdmin(t *testing.T) {
	app, up := newTestApp(t)

	do(t, app, http.MethodGet, "/courses/1")
	do(t, app, http.MethodGet, "/categories")

	_, body := do(t, app, http.MethodGet, "/cache/stats")
	var st respcache.Stats
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.Entries != 2 || st.Expired != 0 || st.TotalSize == 0 {
		t.Fatalf("stats=%+v", st)
	}

	resp, _ := do(t, app, http.MethodDelete, "/cache/courses/1")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear course status=%d want %d", resp.StatusCode, http.StatusNoContent)
	}
	do(t, app, http.MethodGet, "/courses/1")
	if up.Hits() != 3 {
		t.Fatalf("upstream hits=%d want 3", up.Hits())
	}

	resp, body = do(t, app, http.MethodPost, "/cache/sweep")
	if resp.StatusCode != http.StatusOK || string(body) != `{"removed":0}` {
		t.Fatalf("sweep status=%d body=%s", resp.StatusCode, body)
	}

	_, body = do(t, app, http.MethodDelete, "/cache")
	if string(body) != `{"removed":2}` {
		t.Fatalf("clear body=%s want removed 2", body)
	}
}

func TestRequestID_EchoedAndForwarded(t *testing.T) {
	app, up := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/courses/1", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test err=%v", err)
	}
	if got := resp.Header.Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("echoed id=%q want abc-123", got)
	}
	if got := up.LastRequestID(); got != "abc-123" {
		t.Fatalf("forwarded id=%q want abc-123", got)
	}

	resp, _ = do(t, app, http.MethodGet, "/health")
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("missing generated request id")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	do(t, app, http.MethodGet, "/courses/1")
	resp, body := do(t, app, http.MethodGet, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(string(body), "catalogd_upstream_requests_total") {
		t.Fatalf("metrics output missing upstream counter")
	}
}
