package rewards

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/metrics"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

// DocumentConfig configures the badge document adapter.
type DocumentConfig struct {
	BaseURL  string
	MaxPages int
	Timeout  time.Duration
	Client   *http.Client // optional, for tests
}

// DocumentClient scrapes the account's badge pages. Like the feed it
// is best effort: without web cookies, or on any transport failure,
// it returns whatever it has so far and never an error.
type DocumentClient struct {
	client   *http.Client
	baseURL  string
	maxPages int
	logger   zerolog.Logger
}

// NewDocumentClient creates a badge document adapter.
func NewDocumentClient(cfg DocumentConfig) *DocumentClient {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxPages := cfg.MaxPages
	if maxPages < 1 {
		maxPages = 8
	}
	return &DocumentClient{
		client:   client,
		baseURL:  cfg.BaseURL,
		maxPages: maxPages,
		logger:   log.WithComponent("rewards"),
	}
}

// FetchRewardCounts walks the badge pages until one yields nothing
// new or the page bound is hit. The first page to mention an app wins
// on duplicates.
func (c *DocumentClient) FetchRewardCounts(ctx context.Context, acct Account) []types.RewardRecord {
	if c.baseURL == "" {
		return nil
	}
	cookies := acct.WebCookies()
	if len(cookies) == 0 {
		c.logger.Debug().Msg("no web session yet, skipping badge document")
		return nil
	}

	seen := make(map[uint32]bool)
	var all []types.RewardRecord

	for page := 1; page <= c.maxPages; page++ {
		u := fmt.Sprintf("%s/profiles/%d/badges?l=english&p=%d", c.baseURL, acct.AccountID(), page)
		body, err := fetch(ctx, c.client, u, cookies)
		if err != nil {
			c.logger.Warn().Err(err).Int("page", page).Msg("badge document fetch failed")
			metrics.SourceErrorsTotal.WithLabelValues("document").Inc()
			break
		}

		records := ParseBadgeDocument(string(body))
		added := 0
		for _, rec := range records {
			if seen[rec.AppID] {
				continue
			}
			seen[rec.AppID] = true
			all = append(all, rec)
			added++
		}

		// A page with nothing new means we ran off the end.
		if added == 0 {
			break
		}
	}

	c.logger.Debug().Int("records", len(all)).Msg("badge document fetched")
	return all
}
