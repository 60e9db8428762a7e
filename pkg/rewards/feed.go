package rewards

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/metrics"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

// Account is the slice of the live session the reward adapters need.
type Account interface {
	AccountID() uint64
	WebCookies() []*http.Cookie
}

// FeedConfig configures the numeric feed adapter.
type FeedConfig struct {
	FeedURL    string
	CatalogURL string
	APIKey     string
	Timeout    time.Duration
	Client     *http.Client // optional, for tests
}

// FeedClient fetches the numeric reward feed and the owned catalog.
// Both fetches are best effort: any transport or shape problem is
// logged and yields an empty result, never an error.
type FeedClient struct {
	client     *http.Client
	feedURL    string
	catalogURL string
	apiKey     string
	logger     zerolog.Logger
}

// NewFeedClient creates a feed adapter.
func NewFeedClient(cfg FeedConfig) *FeedClient {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &FeedClient{
		client:     client,
		feedURL:    cfg.FeedURL,
		catalogURL: cfg.CatalogURL,
		apiKey:     cfg.APIKey,
		logger:     log.WithComponent("rewards"),
	}
}

// Configured reports whether the feed can be queried at all.
func (c *FeedClient) Configured() bool {
	return c.apiKey != "" && c.feedURL != ""
}

// FetchRewardCounts returns the feed's per-app remaining drop counts.
func (c *FeedClient) FetchRewardCounts(ctx context.Context, acct Account) []types.RewardRecord {
	if !c.Configured() {
		return nil
	}

	body, err := fetch(ctx, c.client, c.keyedURL(c.feedURL, acct), nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("reward feed fetch failed")
		metrics.SourceErrorsTotal.WithLabelValues("feed").Inc()
		return nil
	}

	var payload struct {
		Response struct {
			Drops []struct {
				AppID     uint32 `json:"appid"`
				Remaining int    `json:"remaining"`
			} `json:"drops"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("reward feed response malformed")
		metrics.SourceErrorsTotal.WithLabelValues("feed").Inc()
		return nil
	}

	records := make([]types.RewardRecord, 0, len(payload.Response.Drops))
	for _, drop := range payload.Response.Drops {
		remaining := drop.Remaining
		records = append(records, types.RewardRecord{
			AppID:     drop.AppID,
			Remaining: &remaining,
		})
	}
	c.logger.Debug().Int("records", len(records)).Msg("reward feed fetched")
	return records
}

// FetchOwnedCatalog returns the account's owned games with playtime.
func (c *FeedClient) FetchOwnedCatalog(ctx context.Context, acct Account) []types.OwnedGame {
	if c.apiKey == "" || c.catalogURL == "" {
		return nil
	}

	u := c.keyedURL(c.catalogURL, acct)
	u += "&include_played_free_games=1"
	body, err := fetch(ctx, c.client, u, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("owned catalog fetch failed")
		metrics.SourceErrorsTotal.WithLabelValues("catalog").Inc()
		return nil
	}

	var payload struct {
		Response struct {
			Games []struct {
				AppID           uint32 `json:"appid"`
				PlaytimeForever int    `json:"playtime_forever"`
			} `json:"games"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("owned catalog response malformed")
		metrics.SourceErrorsTotal.WithLabelValues("catalog").Inc()
		return nil
	}

	games := make([]types.OwnedGame, 0, len(payload.Response.Games))
	for _, g := range payload.Response.Games {
		games = append(games, types.OwnedGame{
			AppID:           g.AppID,
			PlaytimeMinutes: g.PlaytimeForever,
		})
	}
	c.logger.Debug().Int("games", len(games)).Msg("owned catalog fetched")
	return games
}

func (c *FeedClient) keyedURL(base string, acct Account) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("steamid", strconv.FormatUint(acct.AccountID(), 10))
	q.Set("format", "json")
	u.RawQuery = q.Encode()
	return u.String()
}
