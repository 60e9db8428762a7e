package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArtyProf/steam-card-idler/pkg/log"
)

// tradingCardsCategoryID is the storefront category marking apps that
// still grant card drops to someone.
const tradingCardsCategoryID = 29

// ProbeConfig configures the storefront capability probe.
type ProbeConfig struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client // optional, for tests
}

// CategoryProbe classifies a single app by asking the storefront for
// its category list. Unlike the reward adapters a probe is allowed to
// fail loudly: the prober treats an error as "still unknown".
type CategoryProbe struct {
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewCategoryProbe creates a storefront prober.
func NewCategoryProbe(cfg ProbeConfig) *CategoryProbe {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &CategoryProbe{
		client:  client,
		baseURL: cfg.BaseURL,
		logger:  log.WithComponent("rewards"),
	}
}

// Probe reports whether appID carries the trading cards category. A
// storefront entry with success=false is a delisted app and a firm
// "not capable"; a malformed or missing response is an error.
func (p *CategoryProbe) Probe(ctx context.Context, appID uint32) (bool, error) {
	u := fmt.Sprintf("%s?appids=%d&filters=categories", p.baseURL, appID)
	body, err := fetch(ctx, p.client, u, nil)
	if err != nil {
		return false, err
	}

	var payload map[string]struct {
		Success bool `json:"success"`
		Data    struct {
			Categories []struct {
				ID          int    `json:"id"`
				Description string `json:"description"`
			} `json:"categories"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, fmt.Errorf("appdetails response malformed: %w", err)
	}

	entry, ok := payload[strconv.FormatUint(uint64(appID), 10)]
	if !ok {
		return false, fmt.Errorf("appdetails response missing app %d", appID)
	}
	if !entry.Success {
		return false, nil
	}

	for _, category := range entry.Data.Categories {
		if category.ID == tradingCardsCategoryID {
			return true, nil
		}
	}
	return false, nil
}
