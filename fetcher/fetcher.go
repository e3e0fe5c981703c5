// Package fetcher retrieves the most recent post for a twitter handle.
package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// PostRef identifies the most recent post observed for an account.
type PostRef struct {
	ID     string
	Exists bool // false when the account has no posts
}

// Fetcher is the capability the poller uses to look up the latest post.
type Fetcher interface {
	LatestPost(ctx context.Context, handle string) (PostRef, error)
}

// ErrorKind classifies fetch failures. The caller only inspects the kind;
// every kind aborts processing for the current cycle without mutating state.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindRateLimited
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// FetchError wraps a failed lookup with its classification.
type FetchError struct {
	Kind   ErrorKind
	Handle string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.Handle, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Handle, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
