package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timelinePage = `<!DOCTYPE html>
<html><body>
<div class="timeline">
  <div class="timeline-item pinned">
    <a class="tweet-link" href="/alice/status/50#m"></a>
  </div>
  <div class="timeline-item">
    <a class="tweet-link" href="/alice/status/101#m"></a>
  </div>
  <div class="timeline-item">
    <a class="tweet-link" href="/alice/status/100#m"></a>
  </div>
</div>
</body></html>`

const emptyTimelinePage = `<!DOCTYPE html>
<html><body>
<div class="timeline">
  <div class="timeline-none">No items found</div>
</div>
</body></html>`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *Nitter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	n := NewNitter(srv.Client(), srv.URL, 5*time.Second)
	n.attempts = 3
	n.delay = time.Millisecond
	n.maxDelay = 5 * time.Millisecond
	return n
}

func TestLatestPostSkipsPinned(t *testing.T) {
	n := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alice", r.URL.Path)
		w.Write([]byte(timelinePage))
	})

	ref, err := n.LatestPost(context.Background(), "@Alice")
	require.NoError(t, err)
	assert.True(t, ref.Exists)
	assert.Equal(t, "101", ref.ID)
}

func TestLatestPostEmptyTimeline(t *testing.T) {
	n := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyTimelinePage))
	})

	ref, err := n.LatestPost(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ref.Exists)
	assert.Empty(t, ref.ID)
}

func TestLatestPostNotFound(t *testing.T) {
	var calls int
	n := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	})

	_, err := n.LatestPost(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	// 404 is unrecoverable and must not be retried.
	assert.Equal(t, 1, calls)
}

func TestLatestPostRateLimited(t *testing.T) {
	var calls int
	n := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := n.LatestPost(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, 3, calls)
}

func TestLatestPostRetriesServerErrors(t *testing.T) {
	var calls int
	n := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(timelinePage))
	})

	ref, err := n.LatestPost(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "101", ref.ID)
	assert.Equal(t, 3, calls)
}

func TestLatestPostServerErrorExhausted(t *testing.T) {
	n := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := n.LatestPost(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestStatusID(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/alice/status/101#m", "101"},
		{"/alice/status/101?cursor=x", "101"},
		{"/alice/status/101", "101"},
		{"/alice/with_replies", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusID(tt.href), "href %q", tt.href)
	}
}
