package fetcher

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"twitter-notifier/tracking"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
)

// Nitter scrapes the latest timeline entry from a Nitter-style mirror.
// Rate limiting is absorbed here: 429 and 5xx responses are retried with
// backoff before a FetchError surfaces to the caller.
type Nitter struct {
	client  *http.Client
	baseURL string
	timeout time.Duration

	// Retry posture for 429/5xx responses.
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
}

// NewNitter creates a fetcher against the given mirror base URL.
func NewNitter(client *http.Client, baseURL string, timeout time.Duration) *Nitter {
	if client == nil {
		client = &http.Client{}
	}
	return &Nitter{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		attempts: 5,
		delay:    time.Second,
		maxDelay: 30 * time.Second,
	}
}

// LatestPost fetches the handle's profile page and returns its newest
// (non-pinned) post. An existing account with an empty timeline yields
// PostRef{Exists: false}, which is not an error.
func (n *Nitter) LatestPost(ctx context.Context, handle string) (PostRef, error) {
	handle = tracking.NormalizeHandle(handle)
	pageURL := fmt.Sprintf("%s/%s", n.baseURL, url.PathEscape(handle))

	var doc *goquery.Document
	var lastStatus int

	err := retry.Do(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, n.timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := n.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			lastStatus = resp.StatusCode
			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(fmt.Errorf("GET %s: status 404", pageURL))
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("GET %s: unexpected status %d", pageURL, resp.StatusCode)
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("GET %s: unexpected status %d", pageURL, resp.StatusCode))
			}

			d, err := goquery.NewDocumentFromReader(resp.Body)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("parse %s: %w", pageURL, err))
			}
			doc = d
			return nil
		},
		retry.Attempts(n.attempts),
		retry.Delay(n.delay),
		retry.MaxDelay(n.maxDelay),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			log.Printf("Retrying fetch for @%s (attempt %d): %v", handle, attempt+1, err)
		}),
	)
	if err != nil {
		return PostRef{}, classify(handle, lastStatus, err)
	}

	return latestFromTimeline(doc), nil
}

// classify maps the terminal retry error onto a FetchError kind using the
// last HTTP status seen inside the retry loop.
func classify(handle string, lastStatus int, err error) error {
	switch {
	case lastStatus == http.StatusNotFound:
		return &FetchError{Kind: KindNotFound, Handle: handle, Err: err}
	case lastStatus == http.StatusTooManyRequests:
		return &FetchError{Kind: KindRateLimited, Handle: handle, Err: err}
	case lastStatus >= 500:
		return &FetchError{Kind: KindTransient, Handle: handle, Err: err}
	case lastStatus == 0:
		// No response ever arrived (network error or timeout).
		return &FetchError{Kind: KindTransient, Handle: handle, Err: err}
	default:
		return &FetchError{Kind: KindUnknown, Handle: handle, Err: err}
	}
}

// latestFromTimeline picks the newest non-pinned timeline entry.
func latestFromTimeline(doc *goquery.Document) PostRef {
	var ref PostRef
	doc.Find(".timeline .timeline-item").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("pinned") {
			return true // pinned posts are not the latest
		}
		href, ok := sel.Find("a.tweet-link").Attr("href")
		if !ok {
			return true
		}
		id := statusID(href)
		if id == "" {
			return true
		}
		ref = PostRef{ID: id, Exists: true}
		return false
	})
	return ref
}

// statusID extracts the post id from hrefs like "/name/status/123#m".
func statusID(href string) string {
	const marker = "/status/"
	i := strings.Index(href, marker)
	if i < 0 {
		return ""
	}
	id := href[i+len(marker):]
	if j := strings.IndexAny(id, "#?/"); j >= 0 {
		id = id[:j]
	}
	return id
}
