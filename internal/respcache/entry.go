package respcache

import (
	"encoding/json"
	"time"
)

// Entry is the persisted form of a cached response. Timestamps are
// milliseconds since the Unix epoch.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Expiry    int64           `json:"expiry"`
}

func newEntry(data json.RawMessage, now time.Time, ttl time.Duration) Entry {
	stored := now.UnixMilli()
	return Entry{
		Data:      data,
		Timestamp: stored,
		Expiry:    stored + ttl.Milliseconds(),
	}
}

func (e Entry) ExpiresAt() time.Time { return time.UnixMilli(e.Expiry) }

// FreshAt reports whether the entry is still valid at now (now < expiry).
func (e Entry) FreshAt(now time.Time) bool {
	return now.UnixMilli() < e.Expiry
}

func decodeEntry(raw string) (Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, err
	}
	if len(e.Data) == 0 || e.Expiry == 0 {
		return Entry{}, errMalformed
	}
	return e, nil
}
