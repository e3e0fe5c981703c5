package dedup

import (
	"testing"

	"twitter-notifier/fetcher"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name        string
		stored      string
		fetched     fetcher.PostRef
		wantKind    Kind
		wantPostID  string
		wantInitial bool
	}{
		{
			name:     "no posts at all",
			stored:   "100",
			fetched:  fetcher.PostRef{},
			wantKind: KindSkip,
		},
		{
			name:     "no posts and no watermark",
			stored:   "",
			fetched:  fetcher.PostRef{},
			wantKind: KindSkip,
		},
		{
			name:     "unchanged",
			stored:   "100",
			fetched:  fetcher.PostRef{ID: "100", Exists: true},
			wantKind: KindUnchanged,
		},
		{
			name:       "new post",
			stored:     "100",
			fetched:    fetcher.PostRef{ID: "101", Exists: true},
			wantKind:   KindNew,
			wantPostID: "101",
		},
		{
			name:        "first observation",
			stored:      "",
			fetched:     fetcher.PostRef{ID: "100", Exists: true},
			wantKind:    KindNew,
			wantPostID:  "100",
			wantInitial: true,
		},
		{
			// Ids are opaque tokens: a lexically "smaller" id still counts
			// as new when it differs from the watermark.
			name:       "id is not numerically compared",
			stored:     "200",
			fetched:    fetcher.PostRef{ID: "99", Exists: true},
			wantKind:   KindNew,
			wantPostID: "99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Decide(tt.stored, tt.fetched)
			assert.Equal(t, tt.wantKind, v.Kind)
			assert.Equal(t, tt.wantPostID, v.PostID)
			assert.Equal(t, tt.wantInitial, v.Initial)
		})
	}
}

func TestDecideIsIdempotent(t *testing.T) {
	// Two polls in a row with the same fetched id: the second one must be
	// a no-op once the watermark advanced.
	first := Decide("100", fetcher.PostRef{ID: "101", Exists: true})
	assert.Equal(t, KindNew, first.Kind)

	second := Decide(first.PostID, fetcher.PostRef{ID: "101", Exists: true})
	assert.Equal(t, KindUnchanged, second.Kind)
}
