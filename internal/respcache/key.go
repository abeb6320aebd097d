package respcache

import "net/url"

// Key derives the logical cache key for a request: the endpoint, followed by
// "?" and the query parameters sorted by name when any remain. Parameters
// with empty values are dropped, matching how requests omit them, so
// {a:1,b:2} and {b:2,a:1} and {a:1,b:2,c:""} share one key.
func Key(endpoint string, params url.Values) string {
	kept := make(url.Values, len(params))
	for name, vals := range params {
		for _, v := range vals {
			if v != "" {
				kept[name] = append(kept[name], v)
			}
		}
	}
	if len(kept) == 0 {
		return endpoint
	}
	return endpoint + "?" + kept.Encode()
}
