package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind string

const (
	KindTransport Kind = "transport" // upstream unreachable, timeout, cancelled
	KindNotFound  Kind = "not_found" // single resource does not exist
	KindStatus    Kind = "status"    // any other non-2xx answer
	KindDecode    Kind = "decode"    // body is not the expected JSON
)

// ErrInvalidID is returned for an empty course id before any I/O happens.
var ErrInvalidID = errors.New("course id is required")

type FetchError struct {
	Kind     Kind
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.Endpoint, e.Kind, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: %s (status %d)", e.Endpoint, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.Endpoint, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.Endpoint, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNotFound
}
