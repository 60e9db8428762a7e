package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/ArtyProf/steam-card-idler/pkg/steam"
)

// scheduleParser accepts the same syntax the idling scheduler does:
// five-field cron specs plus @every / @hourly style descriptors.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Duration wraps time.Duration so YAML accepts "90s" / "5m" style
// values. Bare integers are interpreted as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler. The int case must run
// first: yaml happily decodes a bare integer scalar into a string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value at line %d", value.Line)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the daemon's full configuration tree.
type Config struct {
	Account    AccountConfig    `yaml:"account"`
	Idle       IdleConfig       `yaml:"idle"`
	Connection ConnectionConfig `yaml:"connection"`
	Sources    SourcesConfig    `yaml:"sources"`
	Cache      CacheConfig      `yaml:"cache"`
	API        APIConfig        `yaml:"api"`
	Log        LogConfig        `yaml:"log"`
}

// AccountConfig identifies the Steam account the daemon signs in as.
type AccountConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	APIKey   string `yaml:"api_key"`
}

// IdleConfig tunes the idling scheduler.
type IdleConfig struct {
	Parallelism        int      `yaml:"parallelism"`
	DisplayLimit       int      `yaml:"display_limit"`
	RefreshSchedule    string   `yaml:"refresh_schedule"`
	ManualAppIDs       []uint32 `yaml:"manual_app_ids"`
	LowPlaytimeMinutes int      `yaml:"low_playtime_minutes"`

	// Play-bounce tuning. RestartAfterHours is the hours-on-record
	// delta that triggers a bounce when the badge document reports
	// hours; RestartAfter is the wall-clock fallback when it does not.
	RestartAfter      Duration `yaml:"restart_after"`
	RestartAfterHours float64  `yaml:"restart_after_hours"`
	RestartDelay      Duration `yaml:"restart_delay"`

	// DocumentPrecedence picks the winning source when the numeric
	// feed and the badge document disagree: "prefer" or "fallback".
	DocumentPrecedence              string `yaml:"document_precedence"`
	DocumentAuthoritativeOnZeroFeed bool   `yaml:"document_authoritative_on_zero_feed"`

	WebCredentialWait Duration `yaml:"web_credential_wait"`
}

// ConnectionConfig tunes the session supervisor.
type ConnectionConfig struct {
	ReconnectFallback Duration `yaml:"reconnect_fallback"`
	PollInterval      Duration `yaml:"poll_interval"`
	PollFailures      int      `yaml:"poll_failures"`
	ConnectTimeout    Duration `yaml:"connect_timeout"`
	AutoRelogin       bool     `yaml:"auto_relogin"`
}

// SourcesConfig holds reward source endpoints.
type SourcesConfig struct {
	RewardFeedURL    string   `yaml:"reward_feed_url"`
	OwnedCatalogURL  string   `yaml:"owned_catalog_url"`
	BadgeDocumentURL string   `yaml:"badge_document_url"`
	StorefrontURL    string   `yaml:"storefront_url"`
	MaxDocumentPages int      `yaml:"max_document_pages"`
	Timeout          Duration `yaml:"timeout"`
}

// CacheConfig tunes the capability cache and its prober.
type CacheConfig struct {
	Backend     string  `yaml:"backend"` // "file" or "bolt"
	Path        string  `yaml:"path"`
	ProbeWindow int     `yaml:"probe_window"`
	ProbeBudget int     `yaml:"probe_budget"`
	ProbeRate   float64 `yaml:"probe_rate"` // probes per second
}

// APIConfig tunes the admin HTTP server. An empty Addr disables it.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig tunes structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Idle: IdleConfig{
			Parallelism:                     20,
			DisplayLimit:                    steam.MaxDeclaredApps,
			RefreshSchedule:                 "@every 5m",
			LowPlaytimeMinutes:              120,
			RestartAfter:                    Duration(2 * time.Hour),
			RestartAfterHours:               1.0,
			RestartDelay:                    Duration(5 * time.Second),
			DocumentPrecedence:              "prefer",
			DocumentAuthoritativeOnZeroFeed: true,
			WebCredentialWait:               Duration(10 * time.Second),
		},
		Connection: ConnectionConfig{
			ReconnectFallback: Duration(15 * time.Second),
			PollInterval:      Duration(10 * time.Second),
			PollFailures:      2,
			ConnectTimeout:    Duration(30 * time.Second),
			AutoRelogin:       true,
		},
		Sources: SourcesConfig{
			RewardFeedURL:    "https://api.steampowered.com/IPlayerService/GetCardDrops/v1/",
			OwnedCatalogURL:  "https://api.steampowered.com/IPlayerService/GetOwnedGames/v1/",
			BadgeDocumentURL: "https://steamcommunity.com",
			StorefrontURL:    "https://store.steampowered.com/api/appdetails",
			MaxDocumentPages: 8,
			Timeout:          Duration(15 * time.Second),
		},
		Cache: CacheConfig{
			Backend:     "file",
			Path:        "card-capability.json",
			ProbeWindow: 6,
			ProbeBudget: 64,
			ProbeRate:   2,
		},
		API: APIConfig{
			Addr: "127.0.0.1:8809",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies
// environment overrides, and validates the result. An empty path
// skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Account.Name = getEnv("STEAM_ACCOUNT", cfg.Account.Name)
	cfg.Account.Password = getEnv("STEAM_PASSWORD", cfg.Account.Password)
	cfg.Account.APIKey = getEnv("STEAM_API_KEY", cfg.Account.APIKey)
	cfg.API.Addr = getEnv("IDLER_API_ADDR", cfg.API.Addr)
	cfg.Log.Level = getEnv("IDLER_LOG_LEVEL", cfg.Log.Level)
	cfg.Idle.Parallelism = getEnvInt("IDLER_PARALLELISM", cfg.Idle.Parallelism)
}

// Validate checks invariants and clamps the display limit to the
// session cap.
func (c *Config) Validate() error {
	if c.Idle.Parallelism < 1 {
		return fmt.Errorf("idle.parallelism must be at least 1, got %d", c.Idle.Parallelism)
	}
	if c.Idle.DisplayLimit < 1 {
		return fmt.Errorf("idle.display_limit must be at least 1, got %d", c.Idle.DisplayLimit)
	}
	if c.Idle.DisplayLimit > steam.MaxDeclaredApps {
		c.Idle.DisplayLimit = steam.MaxDeclaredApps
	}
	if c.Idle.RefreshSchedule == "" {
		return fmt.Errorf("idle.refresh_schedule must not be empty")
	}
	if _, err := scheduleParser.Parse(c.Idle.RefreshSchedule); err != nil {
		return fmt.Errorf("invalid idle.refresh_schedule %q: %w", c.Idle.RefreshSchedule, err)
	}
	switch c.Idle.DocumentPrecedence {
	case "prefer", "fallback":
	default:
		return fmt.Errorf("idle.document_precedence must be %q or %q, got %q",
			"prefer", "fallback", c.Idle.DocumentPrecedence)
	}
	if c.Idle.RestartAfterHours < 0 {
		return fmt.Errorf("idle.restart_after_hours must not be negative")
	}
	switch c.Cache.Backend {
	case "file", "bolt":
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", "file", "bolt", c.Cache.Backend)
	}
	if c.Cache.ProbeWindow < 1 {
		return fmt.Errorf("cache.probe_window must be at least 1, got %d", c.Cache.ProbeWindow)
	}
	if c.Cache.ProbeBudget < 0 {
		return fmt.Errorf("cache.probe_budget must not be negative")
	}
	if c.Cache.ProbeRate <= 0 {
		return fmt.Errorf("cache.probe_rate must be positive, got %v", c.Cache.ProbeRate)
	}
	if c.Connection.PollFailures < 1 {
		return fmt.Errorf("connection.poll_failures must be at least 1, got %d", c.Connection.PollFailures)
	}
	if c.Sources.MaxDocumentPages < 1 {
		return fmt.Errorf("sources.max_document_pages must be at least 1, got %d", c.Sources.MaxDocumentPages)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
