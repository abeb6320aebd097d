// Package catalog reads the course API through the response cache.
//
// Every operation follows the same pattern: derive a key from the endpoint
// and its parameters, answer from the cache when the entry is fresh, and
// otherwise call upstream and cache what came back. Only successful
// answers are cached; a 404 on the listing counts as a successful empty page.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"catalogd/internal/metrics"
	"catalogd/internal/respcache"
)

const (
	DefaultBaseURL = "https://6873dfedc75558e273558266.mockapi.io/api/v1"
	DefaultTimeout = 10 * time.Second

	endpointCourses    = "courses"
	endpointCourse     = "courses/{id}"
	endpointCategories = "categories"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Coalesce collapses concurrent misses for the same key into one
	// upstream call.
	Coalesce bool
}

type Client struct {
	base     *url.URL
	timeout  time.Duration
	http     *http.Client
	cache    *respcache.Cache
	coalesce bool
	group    singleflight.Group
	log      zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(cfg Config, cache *respcache.Cache, opts ...Option) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := parseBaseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url %q: %w", raw, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		base:     base,
		timeout:  timeout,
		http:     http.DefaultClient,
		cache:    cache,
		coalesce: cfg.Coalesce,
		log:      log.With().Str("component", "catalog").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Cache() *respcache.Cache { return c.cache }

// ListCourses returns one page of courses. An upstream 404 means the filter
// matched nothing and yields an empty, cached page.
func (c *Client) ListCourses(ctx context.Context, q ListQuery) ([]Course, error) {
	params := q.Values()
	key := respcache.Key(endpointCourses, params)

	data, err := c.remember(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		body, status, err := c.get(ctx, endpointCourses, endpointCourses, params)
		if err != nil {
			return nil, err
		}
		switch {
		case status == http.StatusNotFound:
			return json.RawMessage(`[]`), nil
		case !isSuccess(status):
			return nil, &FetchError{Kind: KindStatus, Endpoint: endpointCourses, Status: status}
		}
		var probe []Course
		if err := json.Unmarshal(body, &probe); err != nil {
			return nil, &FetchError{Kind: KindDecode, Endpoint: endpointCourses, Err: err}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	courses := make([]Course, 0)
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, &FetchError{Kind: KindDecode, Endpoint: endpointCourses, Err: err}
	}
	return courses, nil
}

// GetCourse returns a single course. A missing course is a KindNotFound
// error and is not cached.
func (c *Client) GetCourse(ctx context.Context, id string) (*Course, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	path := "courses/" + url.PathEscape(id)

	data, err := c.remember(ctx, courseKey(id), func(ctx context.Context) (json.RawMessage, error) {
		body, status, err := c.get(ctx, endpointCourse, path, nil)
		if err != nil {
			return nil, err
		}
		switch {
		case status == http.StatusNotFound:
			return nil, &FetchError{Kind: KindNotFound, Endpoint: path, Status: status}
		case !isSuccess(status):
			return nil, &FetchError{Kind: KindStatus, Endpoint: path, Status: status}
		}
		var probe Course
		if err := json.Unmarshal(body, &probe); err != nil {
			return nil, &FetchError{Kind: KindDecode, Endpoint: path, Err: err}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	var course Course
	if err := json.Unmarshal(data, &course); err != nil {
		return nil, &FetchError{Kind: KindDecode, Endpoint: path, Err: err}
	}
	return &course, nil
}

// Categories lists the distinct course categories in the order they first
// appear in the unfiltered listing.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	key := respcache.Key(endpointCategories, nil)

	data, err := c.remember(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		body, status, err := c.get(ctx, endpointCategories, endpointCourses, nil)
		if err != nil {
			return nil, err
		}
		if !isSuccess(status) {
			return nil, &FetchError{Kind: KindStatus, Endpoint: endpointCategories, Status: status}
		}
		var courses []Course
		if err := json.Unmarshal(body, &courses); err != nil {
			return nil, &FetchError{Kind: KindDecode, Endpoint: endpointCategories, Err: err}
		}
		return json.Marshal(distinctCategories(courses))
	})
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0)
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, &FetchError{Kind: KindDecode, Endpoint: endpointCategories, Err: err}
	}
	return categories, nil
}

// ClearCourse forgets the cached copy of one course.
func (c *Client) ClearCourse(ctx context.Context, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	c.cache.Clear(ctx, courseKey(id))
}

func (c *Client) ClearAll(ctx context.Context) int { return c.cache.ClearAll(ctx) }

func (c *Client) SweepExpired(ctx context.Context) int { return c.cache.SweepExpired(ctx) }

func (c *Client) CacheStats(ctx context.Context) respcache.Stats { return c.cache.Stats(ctx) }

// remember serves key through the cache. With coalescing on, concurrent
// misses share one fetch that runs detached from any single caller, so a
// caller that gives up never fails the others; the upstream timeout in get
// still bounds it. Each caller waits on its own ctx.
func (c *Client) remember(ctx context.Context, key string, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if !c.coalesce {
		return c.cache.Remember(ctx, key, fetch)
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.cache.Remember(detached, key, fetch)
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{Kind: KindTransport, Endpoint: key, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			c.log.Debug().Str("key", key).Msg("coalesced concurrent request")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	}
}

// get performs one upstream GET and returns body and status. Only transport
// level failures are errors here; status handling is up to the caller.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// path arrives escaped; keep that form on the wire and give Path the
	// decoded twin so String does not escape it again.
	target := *c.base
	target.RawPath = singleJoinPath(c.base.EscapedPath(), path)
	decoded, err := url.PathUnescape(target.RawPath)
	if err != nil {
		return nil, 0, &FetchError{Kind: KindTransport, Endpoint: path, Err: fmt.Errorf("bad path: %w", err)}
	}
	target.Path = decoded
	target.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, 0, &FetchError{Kind: KindTransport, Endpoint: path, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := RequestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "0").Inc()
		c.log.Error().Err(err).Str("url", target.String()).Msg("upstream request failed")
		return nil, 0, &FetchError{Kind: KindTransport, Endpoint: path, Err: err}
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &FetchError{Kind: KindTransport, Endpoint: path, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug().
		Str("url", target.String()).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("req_id", RequestIDFrom(ctx)).
		Msg("upstream call")
	return data, resp.StatusCode, nil
}

func courseKey(id string) string {
	return respcache.Key("courses/"+id, nil)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func parseBaseURL(raw string) (*url.URL, error) {
	baseURL := raw
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return url.Parse(baseURL)
}

func singleJoinPath(a, b string) string {
	if a == "" && b == "" {
		return "/"
	}
	if a == "" {
		if !strings.HasPrefix(b, "/") {
			return "/" + b
		}
		return b
	}
	if b == "" {
		if !strings.HasPrefix(a, "/") {
			return "/" + a
		}
		return a
	}

	a = strings.TrimRight(a, "/")
	b = strings.TrimLeft(b, "/")
	return a + "/" + b
}
