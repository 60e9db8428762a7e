package rewards

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAccount struct {
	id      uint64
	cookies []*http.Cookie
}

func (a *testAccount) AccountID() uint64          { return a.id }
func (a *testAccount) WebCookies() []*http.Cookie { return a.cookies }

func TestFeedClientFetchRewardCounts(t *testing.T) {
	acct := &testAccount{id: 76561198000000001}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "76561198000000001", r.URL.Query().Get("steamid"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"drops":[
			{"appid":440,"remaining":3},
			{"appid":570,"remaining":0}
		]}}`))
	}))
	defer srv.Close()

	c := NewFeedClient(FeedConfig{FeedURL: srv.URL, APIKey: "secret"})
	records := c.FetchRewardCounts(context.Background(), acct)

	require.Len(t, records, 2)
	assert.Equal(t, uint32(440), records[0].AppID)
	require.NotNil(t, records[0].Remaining)
	assert.Equal(t, 3, *records[0].Remaining)
	assert.True(t, records[1].Exhausted())
}

func TestFeedClientUnconfigured(t *testing.T) {
	c := NewFeedClient(FeedConfig{FeedURL: "http://example.invalid"})
	assert.False(t, c.Configured())
	assert.Nil(t, c.FetchRewardCounts(context.Background(), &testAccount{id: 1}))
}

func TestFeedClientTransportFailureIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewFeedClient(FeedConfig{FeedURL: srv.URL, APIKey: "secret"})
	assert.Empty(t, c.FetchRewardCounts(context.Background(), &testAccount{id: 1}))
}

func TestFeedClientMalformedResponseIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":`))
	}))
	defer srv.Close()

	c := NewFeedClient(FeedConfig{FeedURL: srv.URL, APIKey: "secret"})
	assert.Empty(t, c.FetchRewardCounts(context.Background(), &testAccount{id: 1}))
}

func TestFeedClientFetchOwnedCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("include_played_free_games"))
		_, _ = w.Write([]byte(`{"response":{"game_count":2,"games":[
			{"appid":440,"playtime_forever":120},
			{"appid":220,"playtime_forever":0}
		]}}`))
	}))
	defer srv.Close()

	c := NewFeedClient(FeedConfig{CatalogURL: srv.URL, APIKey: "secret"})
	games := c.FetchOwnedCatalog(context.Background(), &testAccount{id: 1})

	require.Len(t, games, 2)
	assert.Equal(t, uint32(440), games[0].AppID)
	assert.Equal(t, 120, games[0].PlaytimeMinutes)
	assert.Equal(t, 0, games[1].PlaytimeMinutes)
}

func TestSourcesNilAdapters(t *testing.T) {
	s := &Sources{Acct: &testAccount{id: 1}}

	assert.False(t, s.Configured())
	assert.Nil(t, s.FetchRewardCounts(context.Background()))
	assert.Nil(t, s.FetchDocumentRewardCounts(context.Background()))
	assert.Nil(t, s.FetchOwnedCatalog(context.Background()))
}
