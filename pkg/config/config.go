// Package config loads bot configuration from an optional YAML file with
// environment variable overrides. Environment always wins so deployments can
// keep secrets out of the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FeishuConfig holds the Feishu app identity and API endpoints.
type FeishuConfig struct {
	AppID             string `yaml:"app_id" env:"FEISHU_APP_ID"`
	AppSecret         string `yaml:"app_secret" env:"FEISHU_APP_SECRET"`
	VerificationToken string `yaml:"verification_token" env:"FEISHU_VERIFICATION_TOKEN"`
	EncryptKey        string `yaml:"encrypt_key" env:"FEISHU_ENCRYPT_KEY"`
	APIBase           string `yaml:"api_base" env:"FEISHU_API_BASE" envDefault:"https://open.feishu.cn"`

	// DefaultCalendarID is the shared calendar used when primary calendar
	// resolution fails for a sender. Degraded mode, not silent loss.
	DefaultCalendarID string `yaml:"default_calendar_id" env:"FEISHU_DEFAULT_CALENDAR_ID"`
}

// OAuthConfig drives the optional user-token flow. When unset, calendar
// calls run on the tenant token only.
type OAuthConfig struct {
	AuthorizeURL string `yaml:"authorize_url" env:"FEISHU_OAUTH_AUTHORIZE_URL" envDefault:"https://open.feishu.cn/open-apis/authen/v1/authorize"`
	TokenURL     string `yaml:"token_url" env:"FEISHU_OAUTH_TOKEN_URL" envDefault:"https://open.feishu.cn/open-apis/authen/v2/oauth/token"`
	RedirectURI  string `yaml:"redirect_uri" env:"FEISHU_OAUTH_REDIRECT_URI"`
	Scope        string `yaml:"scope" env:"FEISHU_OAUTH_SCOPE" envDefault:"calendar:calendar"`
	StorePath    string `yaml:"store_path" env:"SKYLARK_TOKEN_STORE" envDefault:"data/user_tokens"`
}

// ExtractorConfig selects and configures the schedule extractor provider.
type ExtractorConfig struct {
	Provider    string `yaml:"provider" env:"EXTRACTOR_PROVIDER" envDefault:"doubao"`
	APIKey      string `yaml:"api_key" env:"EXTRACTOR_API_KEY"`
	BaseURL     string `yaml:"base_url" env:"EXTRACTOR_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Model       string `yaml:"model" env:"EXTRACTOR_MODEL" envDefault:"doubao-1-5-pro-32k-250115"`
	VisionModel string `yaml:"vision_model" env:"EXTRACTOR_VISION_MODEL" envDefault:"doubao-seed-1-8-251228"`
}

// DedupConfig controls the durable message idempotency store.
type DedupConfig struct {
	Path           string        `yaml:"path" env:"SKYLARK_DEDUP_DB" envDefault:"data/dedup.db"`
	Window         time.Duration `yaml:"window" env:"SKYLARK_DEDUP_WINDOW" envDefault:"1h"`
	SweepCron      string        `yaml:"sweep_cron" env:"SKYLARK_DEDUP_SWEEP_CRON" envDefault:"0 * * * *"`
	SweepThreshold int           `yaml:"sweep_threshold" env:"SKYLARK_DEDUP_SWEEP_THRESHOLD" envDefault:"2000"`
}

// Config is the root configuration.
type Config struct {
	Feishu    FeishuConfig    `yaml:"feishu"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Dedup     DedupConfig     `yaml:"dedup"`

	Timezone        string        `yaml:"timezone" env:"SKYLARK_TIMEZONE" envDefault:"Asia/Shanghai"`
	DefaultDuration time.Duration `yaml:"default_duration" env:"SKYLARK_DEFAULT_DURATION" envDefault:"1h"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"SKYLARK_REQUEST_TIMEOUT" envDefault:"15s"`
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"SKYLARK_DOWNLOAD_TIMEOUT" envDefault:"30s"`

	// HTTPAddr enables the health/OAuth-callback server when non-empty.
	HTTPAddr string `yaml:"http_addr" env:"SKYLARK_HTTP_ADDR"`
}

// Load reads the YAML file at path (if path is non-empty and the file
// exists) and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Feishu.AppID == "" {
		missing = append(missing, "FEISHU_APP_ID")
	}
	if c.Feishu.AppSecret == "" {
		missing = append(missing, "FEISHU_APP_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %v", missing)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}
