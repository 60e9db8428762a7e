package rewards

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func badgeBlock(appID uint32, remaining int) string {
	return fmt.Sprintf(`<div class="badge_row is_link">
		<a class="badge_row_overlay" href="https://steamcommunity.com/profiles/1/gamecards/%d/"></a>
		<div class="badge_title_stats_drops">
			<span class="progress_info_bold">%d card drops remaining</span>
		</div>
	</div>`, appID, remaining)
}

func badgePage(blocks ...string) string {
	return "<html><body>" + strings.Join(blocks, "\n") + "</body></html>"
}

func TestDocumentClientPagination(t *testing.T) {
	acct := &testAccount{
		id:      76561198000000001,
		cookies: []*http.Cookie{{Name: "sessionid", Value: "abc"}},
	}

	pages := map[int]string{
		1: badgePage(badgeBlock(10, 3), badgeBlock(20, 5)),
		2: badgePage(badgeBlock(20, 1), badgeBlock(30, 2)),
		3: badgePage(badgeBlock(10, 3), badgeBlock(30, 2)),
	}

	var requested []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profiles/76561198000000001/badges", r.URL.Path)
		assert.Equal(t, "english", r.URL.Query().Get("l"))

		cookie, err := r.Cookie("sessionid")
		require.NoError(t, err)
		assert.Equal(t, "abc", cookie.Value)

		page, _ := strconv.Atoi(r.URL.Query().Get("p"))
		requested = append(requested, page)
		_, _ = w.Write([]byte(pages[page]))
	}))
	defer srv.Close()

	c := NewDocumentClient(DocumentConfig{BaseURL: srv.URL})
	records := c.FetchRewardCounts(context.Background(), acct)

	// Page 3 repeats earlier apps only, so fetching stops there.
	assert.Equal(t, []int{1, 2, 3}, requested)
	require.Len(t, records, 3)

	// The first page to mention an app wins on duplicates.
	rec := findRecord(t, records, 20)
	require.NotNil(t, rec.Remaining)
	assert.Equal(t, 5, *rec.Remaining)
}

func TestDocumentClientNoCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("badge document fetched without a web session")
	}))
	defer srv.Close()

	c := NewDocumentClient(DocumentConfig{BaseURL: srv.URL})
	assert.Nil(t, c.FetchRewardCounts(context.Background(), &testAccount{id: 1}))
}

func TestDocumentClientPartialOnError(t *testing.T) {
	acct := &testAccount{
		id:      1,
		cookies: []*http.Cookie{{Name: "sessionid", Value: "abc"}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("p") == "1" {
			_, _ = w.Write([]byte(badgePage(badgeBlock(10, 3))))
			return
		}
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewDocumentClient(DocumentConfig{BaseURL: srv.URL})
	records := c.FetchRewardCounts(context.Background(), acct)

	require.Len(t, records, 1)
	assert.Equal(t, uint32(10), records[0].AppID)
}

func TestDocumentClientPageBound(t *testing.T) {
	acct := &testAccount{
		id:      1,
		cookies: []*http.Cookie{{Name: "sessionid", Value: "abc"}},
	}

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page, _ := strconv.Atoi(r.URL.Query().Get("p"))
		// Every page yields a fresh app, so only the bound stops us.
		_, _ = w.Write([]byte(badgePage(badgeBlock(uint32(page), 1))))
	}))
	defer srv.Close()

	c := NewDocumentClient(DocumentConfig{BaseURL: srv.URL, MaxPages: 3})
	records := c.FetchRewardCounts(context.Background(), acct)

	assert.Equal(t, 3, requests)
	assert.Len(t, records, 3)
}
