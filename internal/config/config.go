package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Monitor MonitorConfig `toml:"monitor"`
	AI      AIConfig      `toml:"ai"`
	Filters FiltersConfig `toml:"filters"`
	Topics  TopicsConfig  `toml:"topics"`
	Storage StorageConfig `toml:"storage"`
	Sink    SinkConfig    `toml:"sink"`
	Sources SourcesConfig `toml:"sources"`
}

type MonitorConfig struct {
	CheckInterval   string `toml:"check_interval"`
	SocialInterval  string `toml:"social_interval"`
	FetchTimeout    string `toml:"fetch_timeout"`
	QuietHoursStart string `toml:"quiet_hours_start"`
	QuietHoursEnd   string `toml:"quiet_hours_end"`
	Timezone        string `toml:"timezone"`
}

type AIConfig struct {
	Backend         string  `toml:"backend"`
	Model           string  `toml:"model"`
	BestModel       string  `toml:"best_model"`
	VisionModel     string  `toml:"vision_model"`
	EmbedModel      string  `toml:"embed_model"`
	Temperature     float64 `toml:"temperature"`
	EvalTemperature float64 `toml:"eval_temperature"`
	MaxConcurrent   int     `toml:"max_concurrent"`
	RequestsPerMin  int     `toml:"requests_per_minute"`
}

type FiltersConfig struct {
	Whitelist           []string `toml:"whitelist"`
	Blacklist           []string `toml:"blacklist"`
	ShortTextThreshold  int      `toml:"short_text_threshold"`
	SimilarityThreshold float64  `toml:"similarity_threshold"`
}

type TopicsConfig struct {
	ConsequenceThresholds []float64          `toml:"consequence_thresholds"`
	EscalationThreshold   float64            `toml:"escalation_threshold"`
	BaseImportance        float64            `toml:"base_importance"`
	Cooldown              string             `toml:"cooldown"`
	Retention             string             `toml:"retention"`
	CategoryWeights       map[string]float64 `toml:"category_weights"`
}

type StorageConfig struct {
	CachePath  string `toml:"cache_path"`
	LedgerPath string `toml:"ledger_path"`
}

type SinkConfig struct {
	Type      string `toml:"type"`
	Token     string `toml:"token"`
	ChannelID string `toml:"channel_id"`
}

type SourcesConfig struct {
	SocialAPI SocialAPIConfig `toml:"social_api"`
	Social    []SocialSource  `toml:"social"`
	Feeds     []FeedSource    `toml:"feed"`
	Scrapes   []ScrapeSource  `toml:"scrape"`
}

type SocialAPIConfig struct {
	BaseURL string   `toml:"base_url"`
	Keys    []string `toml:"keys"`
}

type SocialSource struct {
	Name           string `toml:"name"`
	Handle         string `toml:"handle"`
	Enabled        bool   `toml:"enabled"`
	Priority       int    `toml:"priority"`
	MediaOnly      bool   `toml:"media_only"`
	SkipEvaluation bool   `toml:"skip_evaluation"`
	PromptSpecific bool   `toml:"prompt_specific"`
	Prompt         string `toml:"prompt"`
}

type FeedSource struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Enabled  bool   `toml:"enabled"`
	Priority int    `toml:"priority"`
	MaxItems int    `toml:"max_items"`
}

type ScrapeSource struct {
	Name      string          `toml:"name"`
	BaseURL   string          `toml:"base_url"`
	PageURL   string          `toml:"page_url"`
	Enabled   bool            `toml:"enabled"`
	Priority  int             `toml:"priority"`
	MaxItems  int             `toml:"max_items"`
	MaxPages  int             `toml:"max_pages"`
	Timezone  string          `toml:"timezone"`
	Selectors ScrapeSelectors `toml:"selectors"`
}

// ScrapeSelectors are the goquery selectors for one scraped listing page.
// Item selects each entry; the rest are resolved relative to it.
type ScrapeSelectors struct {
	Item    string `toml:"item"`
	Title   string `toml:"title"`
	Link    string `toml:"link"`
	Time    string `toml:"time"`
	Content string `toml:"content"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Monitor.CheckInterval == "" {
		config.Monitor.CheckInterval = "10m"
	}
	if config.Monitor.SocialInterval == "" {
		config.Monitor.SocialInterval = config.Monitor.CheckInterval
	}
	if config.Monitor.FetchTimeout == "" {
		config.Monitor.FetchTimeout = "60s"
	}
	if config.Monitor.Timezone == "" {
		config.Monitor.Timezone = "America/Sao_Paulo"
	}

	for name, value := range map[string]string{
		"check_interval":  config.Monitor.CheckInterval,
		"social_interval": config.Monitor.SocialInterval,
		"fetch_timeout":   config.Monitor.FetchTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if (config.Monitor.QuietHoursStart == "") != (config.Monitor.QuietHoursEnd == "") {
		return fmt.Errorf("quiet_hours_start and quiet_hours_end must be set together")
	}
	for _, value := range []string{config.Monitor.QuietHoursStart, config.Monitor.QuietHoursEnd} {
		if value == "" {
			continue
		}
		if _, err := time.Parse("15:04", value); err != nil {
			return fmt.Errorf("invalid quiet hours time %q: %w", value, err)
		}
	}
	if _, err := time.LoadLocation(config.Monitor.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	if config.AI.Backend == "" {
		config.AI.Backend = "ollama"
	}
	if config.AI.Backend != "ollama" && config.AI.Backend != "gemini" {
		return fmt.Errorf("unsupported ai backend: %s", config.AI.Backend)
	}
	if config.AI.Model == "" {
		return fmt.Errorf("ai model is required")
	}
	if config.AI.BestModel == "" {
		config.AI.BestModel = config.AI.Model
	}
	if config.AI.VisionModel == "" {
		config.AI.VisionModel = config.AI.BestModel
	}
	if config.AI.EmbedModel == "" {
		config.AI.EmbedModel = "nomic-embed-text"
	}
	if config.AI.Temperature == 0 {
		config.AI.Temperature = 0.3
	}
	if config.AI.EvalTemperature == 0 {
		config.AI.EvalTemperature = 0.1
	}
	if config.AI.MaxConcurrent <= 0 {
		config.AI.MaxConcurrent = 3
	}

	if config.Filters.ShortTextThreshold <= 0 {
		config.Filters.ShortTextThreshold = 25
	}
	if config.Filters.SimilarityThreshold <= 0 {
		config.Filters.SimilarityThreshold = 0.86
	}

	if len(config.Topics.ConsequenceThresholds) == 0 {
		config.Topics.ConsequenceThresholds = []float64{7, 8, 10}
	}
	for i := 1; i < len(config.Topics.ConsequenceThresholds); i++ {
		if config.Topics.ConsequenceThresholds[i] <= config.Topics.ConsequenceThresholds[i-1] {
			return fmt.Errorf("consequence_thresholds must be strictly increasing")
		}
	}
	if config.Topics.EscalationThreshold == 0 {
		config.Topics.EscalationThreshold = 9.5
	}
	if config.Topics.BaseImportance == 0 {
		config.Topics.BaseImportance = 8
	}
	if config.Topics.Cooldown == "" {
		config.Topics.Cooldown = "48h"
	}
	if config.Topics.Retention == "" {
		config.Topics.Retention = "72h"
	}
	for name, value := range map[string]string{
		"cooldown":  config.Topics.Cooldown,
		"retention": config.Topics.Retention,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if config.Storage.CachePath == "" {
		config.Storage.CachePath = "./sentinela-cache.json"
	}
	if config.Storage.LedgerPath == "" {
		config.Storage.LedgerPath = "./sentinela.db"
	}

	enabled := 0
	for _, src := range config.Sources.Social {
		if src.Enabled {
			enabled++
			if src.Handle == "" {
				return fmt.Errorf("social source %s: handle is required", src.Name)
			}
		}
	}
	for _, src := range config.Sources.Feeds {
		if src.Enabled {
			enabled++
			if src.URL == "" {
				return fmt.Errorf("feed source %s: url is required", src.Name)
			}
		}
	}
	for _, src := range config.Sources.Scrapes {
		if src.Enabled {
			enabled++
			if src.BaseURL == "" || src.Selectors.Item == "" {
				return fmt.Errorf("scrape source %s: base_url and selectors.item are required", src.Name)
			}
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	return nil
}

// CategoryWeight returns the configured weight for a category, defaulting to 1.
func (t TopicsConfig) CategoryWeight(category string) float64 {
	if w, ok := t.CategoryWeights[category]; ok && w > 0 {
		return w
	}
	return 1
}

// Duration parses a duration string that validateConfig already accepted.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
