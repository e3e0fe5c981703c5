// Package dedup decides whether a fetched post is new relative to the
// stored watermark. Pure logic, no I/O.
package dedup

import "twitter-notifier/fetcher"

// Kind is the outcome of a dedup decision.
type Kind int

const (
	// KindSkip means the account has no posts at all.
	KindSkip Kind = iota
	// KindUnchanged means the fetched id equals the stored watermark.
	KindUnchanged
	// KindNew means the watermark should advance to the fetched id.
	KindNew
)

func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindUnchanged:
		return "unchanged"
	default:
		return "new"
	}
}

// Verdict carries the decision for one poll of one tracked account.
type Verdict struct {
	Kind   Kind
	PostID string
	// Initial marks the first-ever observation: the id is recorded but no
	// notification is sent, so a freshly added account does not announce a
	// post its followers already saw.
	Initial bool
}

// Decide compares the stored watermark against a fetched post reference.
// Post ids are opaque tokens compared by exact string identity; no numeric
// ordering is assumed.
func Decide(stored string, fetched fetcher.PostRef) Verdict {
	if !fetched.Exists {
		return Verdict{Kind: KindSkip}
	}
	if fetched.ID == stored {
		return Verdict{Kind: KindUnchanged}
	}
	return Verdict{
		Kind:    KindNew,
		PostID:  fetched.ID,
		Initial: stored == "",
	}
}
