package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	RateLimitModeWindow = "window"
	RateLimitModeSmooth = "smooth"
)

const (
	DefaultNotionBaseURL    = "https://api.notion.com/v1"
	DefaultNotionVersion    = "2022-06-28"
	DefaultSignatureHeader  = "X-Notion-Signature"
	DefaultRecordEventType  = "page.created"
	DefaultArtifactMimeType = "image/png"
)

type PropertyConfig struct {
	ID       string `koanf:"id" mapstructure:"id"`
	UUID     string `koanf:"uuid" mapstructure:"uuid"`
	Artifact string `koanf:"artifact" mapstructure:"artifact"`
}

type NotionConfig struct {
	BaseURL    string         `koanf:"base_url" mapstructure:"base_url"`
	Token      string         `koanf:"token" mapstructure:"token"`
	Version    string         `koanf:"version" mapstructure:"version"`
	DatabaseID string         `koanf:"database_id" mapstructure:"database_id"`
	Properties PropertyConfig `koanf:"properties" mapstructure:"properties"`
}

// RateLimitConfig sizes the shared rate budget. Ceiling tokens are available
// per Window and RefillAmount tokens are added back at each window boundary.
type RateLimitConfig struct {
	Mode          string        `koanf:"mode" mapstructure:"mode"`
	Ceiling       int           `koanf:"ceiling" mapstructure:"ceiling"`
	RefillAmount  int           `koanf:"refill_amount" mapstructure:"refill_amount"`
	Window        time.Duration `koanf:"window" mapstructure:"window"`
	MaxConcurrent int           `koanf:"max_concurrent" mapstructure:"max_concurrent"`
}

type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay" mapstructure:"base_delay"`
}

// WebhookConfig drives the inbound server. CoalesceWindow, when positive,
// drops repeat events for the same record that arrive within the window.
type WebhookConfig struct {
	Addr            string        `koanf:"addr" mapstructure:"addr"`
	Secret          string        `koanf:"secret" mapstructure:"secret"`
	SignatureHeader string        `koanf:"signature_header" mapstructure:"signature_header"`
	EventTypes      []string      `koanf:"event_types" mapstructure:"event_types"`
	ParentID        string        `koanf:"parent_id" mapstructure:"parent_id"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
	CoalesceWindow  time.Duration `koanf:"coalesce_window" mapstructure:"coalesce_window"`
}

type BatchConfig struct {
	Workers int `koanf:"workers" mapstructure:"workers"`
}

type ArtifactConfig struct {
	ContentType string `koanf:"content_type" mapstructure:"content_type"`
	Size        int    `koanf:"size" mapstructure:"size"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Notion      NotionConfig    `koanf:"notion" mapstructure:"notion"`
	RateLimit   RateLimitConfig `koanf:"rate_limit" mapstructure:"rate_limit"`
	Retry       RetryConfig     `koanf:"retry" mapstructure:"retry"`
	Webhook     WebhookConfig   `koanf:"webhook" mapstructure:"webhook"`
	Batch       BatchConfig     `koanf:"batch" mapstructure:"batch"`
	Artifact    ArtifactConfig  `koanf:"artifact" mapstructure:"artifact"`
}

// DefaultConfig keeps outbound traffic under the Notion limit of three
// requests per second.
func DefaultConfig() Config {
	return Config{
		ServiceName: "qrsync",
		Notion: NotionConfig{
			BaseURL: DefaultNotionBaseURL,
			Version: DefaultNotionVersion,
			Properties: PropertyConfig{
				ID:       "ID",
				UUID:     "UUID",
				Artifact: "QR",
			},
		},
		RateLimit: RateLimitConfig{
			Mode:          RateLimitModeWindow,
			Ceiling:       3,
			RefillAmount:  3,
			Window:        time.Second,
			MaxConcurrent: 3,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		Webhook: WebhookConfig{
			Addr:            ":8080",
			SignatureHeader: DefaultSignatureHeader,
			EventTypes:      []string{DefaultRecordEventType},
			MaxBodyBytes:    1 << 20,
		},
		Batch: BatchConfig{
			Workers: 3,
		},
		Artifact: ArtifactConfig{
			ContentType: DefaultArtifactMimeType,
			Size:        256,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Notion.BaseURL) == "" {
		return fmt.Errorf("core: notion.base_url is required")
	}
	if strings.TrimSpace(c.Notion.Properties.ID) == "" ||
		strings.TrimSpace(c.Notion.Properties.UUID) == "" ||
		strings.TrimSpace(c.Notion.Properties.Artifact) == "" {
		return fmt.Errorf("core: notion.properties id, uuid and artifact are required")
	}
	switch strings.ToLower(strings.TrimSpace(c.RateLimit.Mode)) {
	case "", RateLimitModeWindow, RateLimitModeSmooth:
	default:
		return fmt.Errorf("core: rate_limit.mode %q is invalid", c.RateLimit.Mode)
	}
	if c.RateLimit.Ceiling <= 0 || c.RateLimit.MaxConcurrent <= 0 {
		return fmt.Errorf("core: rate_limit.ceiling and rate_limit.max_concurrent must be positive")
	}
	if c.RateLimit.RefillAmount <= 0 || c.RateLimit.RefillAmount > c.RateLimit.Ceiling {
		return fmt.Errorf("core: rate_limit.refill_amount must be between 1 and ceiling")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("core: rate_limit.window must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("core: retry.max_attempts must be positive")
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("core: retry.base_delay must not be negative")
	}
	if c.Webhook.CoalesceWindow < 0 {
		return fmt.Errorf("core: webhook.coalesce_window must not be negative")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("core: batch.workers must be positive")
	}
	return nil
}

// ValidateForSweep checks what the batch sweep needs on top of Validate.
func (c Config) ValidateForSweep() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Notion.Token) == "" {
		return fmt.Errorf("core: notion.token is required")
	}
	if strings.TrimSpace(c.Notion.DatabaseID) == "" {
		return fmt.Errorf("core: notion.database_id is required")
	}
	return nil
}

// ValidateForServe checks what the webhook server needs on top of Validate.
func (c Config) ValidateForServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Notion.Token) == "" {
		return fmt.Errorf("core: notion.token is required")
	}
	if strings.TrimSpace(c.Webhook.Secret) == "" {
		return fmt.Errorf("core: webhook.secret is required")
	}
	if strings.TrimSpace(c.Webhook.Addr) == "" {
		return fmt.Errorf("core: webhook.addr is required")
	}
	return nil
}
