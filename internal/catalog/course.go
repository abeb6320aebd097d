package catalog

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 6
)

type Lesson struct {
	Title       string `json:"title"`
	Duration    int    `json:"duration"` // minutes
	VideosCount int    `json:"videos_count"`
}

type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Teacher     string   `json:"teacher"`
	Category    string   `json:"category"`
	ImageSource string   `json:"image_source,omitempty"`
	Lessons     []Lesson `json:"lessons"`
}

// TotalMinutes sums the lesson durations.
func (c Course) TotalMinutes() int {
	total := 0
	for _, l := range c.Lessons {
		total += l.Duration
	}
	return total
}

func (c Course) TotalVideos() int {
	total := 0
	for _, l := range c.Lessons {
		total += l.VideosCount
	}
	return total
}

// FormatDuration renders minutes as "1h 5m", or "45m" under an hour.
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// ListQuery selects one page of the course listing. Zero Page/Limit fall
// back to DefaultPage/DefaultLimit; empty Search/Category mean no filter.
type ListQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	return q
}

// Values renders the query parameters sent upstream. The same values feed
// the cache key, so a filter omitted here is omitted from the key too.
func (q ListQuery) Values() url.Values {
	q = q.normalized()
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return v
}

// distinctCategories keeps the first occurrence of every non-empty category.
func distinctCategories(courses []Course) []string {
	seen := make(map[string]struct{}, len(courses))
	out := make([]string, 0)
	for _, c := range courses {
		if c.Category == "" {
			continue
		}
		if _, ok := seen[c.Category]; ok {
			continue
		}
		seen[c.Category] = struct{}{}
		out = append(out, c.Category)
	}
	return out
}
