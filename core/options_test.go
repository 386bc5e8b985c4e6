package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func envLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestEnvConfigLoader_MapsVariablesOntoSections(t *testing.T) {
	loader := EnvConfigLoader{Lookup: envLookup(map[string]string{
		"NOTION_API_TOKEN":               "secret_abc",
		"NOTION_DATABASE_ID":             "db-1",
		"QRSYNC_UUID_PROPERTY":           "Stable UUID",
		"NOTION_VERIFICATION_TOKEN":      "verify",
		"QRSYNC_WEBHOOK_EVENT_TYPES":     "page.created, page.properties_updated,",
		"QRSYNC_BATCH_WORKERS":           "6",
		"QRSYNC_WEBHOOK_COALESCE_WINDOW": "5s",
		"QRSYNC_RATE_LIMIT_MODE":         "  ",
	})}

	raw, err := loader.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	notion, _ := raw["notion"].(map[string]any)
	if notion["token"] != "secret_abc" || notion["database_id"] != "db-1" {
		t.Fatalf("unexpected notion section %#v", notion)
	}
	properties, _ := notion["properties"].(map[string]any)
	if !reflect.DeepEqual(properties, map[string]any{"uuid": "Stable UUID"}) {
		t.Fatalf("unexpected properties %#v", properties)
	}
	webhook, _ := raw["webhook"].(map[string]any)
	if webhook["secret"] != "verify" || webhook["coalesce_window"] != 5*time.Second {
		t.Fatalf("unexpected webhook section %#v", webhook)
	}
	if !reflect.DeepEqual(webhook["event_types"], []string{"page.created", "page.properties_updated"}) {
		t.Fatalf("unexpected event types %#v", webhook["event_types"])
	}
	if batch, _ := raw["batch"].(map[string]any); batch["workers"] != 6 {
		t.Fatalf("unexpected batch section %#v", raw["batch"])
	}
	if _, ok := raw["rate_limit"]; ok {
		t.Fatalf("expected blank variables to be ignored, got %#v", raw["rate_limit"])
	}
}

func TestEnvConfigLoader_RejectsMalformedNumbers(t *testing.T) {
	loader := EnvConfigLoader{Lookup: envLookup(map[string]string{"QRSYNC_RETRY_MAX_ATTEMPTS": "three"})}
	if _, err := loader.LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
	loader = EnvConfigLoader{Lookup: envLookup(map[string]string{"QRSYNC_RETRY_BASE_DELAY": "soon"})}
	if _, err := loader.LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

type fixedConfigProvider struct {
	cfg Config
	err error
}

func (p fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, p.err
}

func TestResolveConfig_RuntimeWinsOverLoadedOverDefaults(t *testing.T) {
	loaded := DefaultConfig()
	loaded.Notion.Token = "loaded-token"
	loaded.Batch.Workers = 5
	loaded.Retry.MaxAttempts = 4

	runtime := Config{Batch: BatchConfig{Workers: 8}}
	runtime.Notion.DatabaseID = "db-runtime"

	resolved, err := ResolveConfig(context.Background(), fixedConfigProvider{cfg: loaded}, nil, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Batch.Workers != 8 {
		t.Fatalf("expected runtime workers, got %d", resolved.Batch.Workers)
	}
	if resolved.Notion.Token != "loaded-token" || resolved.Retry.MaxAttempts != 4 {
		t.Fatalf("expected loaded values to survive, got %#v", resolved)
	}
	if resolved.Notion.DatabaseID != "db-runtime" {
		t.Fatalf("expected runtime database id, got %q", resolved.Notion.DatabaseID)
	}
	if resolved.RateLimit.Ceiling != 3 || resolved.Notion.Properties.Artifact != "QR" {
		t.Fatalf("expected defaults to fill the rest, got %#v", resolved.RateLimit)
	}
}

func TestResolveConfig_PropagatesProviderError(t *testing.T) {
	sentinel := errors.New("config unreadable")
	if _, err := ResolveConfig(context.Background(), fixedConfigProvider{err: sentinel}, nil, Config{}); !errors.Is(err, sentinel) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestConfig_ValidateRejectsBadRateLimits(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown mode":       func(c *Config) { c.RateLimit.Mode = "burst" },
		"refill over limit":  func(c *Config) { c.RateLimit.RefillAmount = 4 },
		"zero concurrency":   func(c *Config) { c.RateLimit.MaxConcurrent = 0 },
		"zero window":        func(c *Config) { c.RateLimit.Window = 0 },
		"negative coalesce":  func(c *Config) { c.Webhook.CoalesceWindow = -time.Second },
		"missing properties": func(c *Config) { c.Notion.Properties.UUID = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}

func TestConfig_ValidateForServeRequiresSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notion.Token = "secret_abc"
	if err := cfg.ValidateForServe(); err == nil {
		t.Fatalf("expected missing secret error")
	}
	cfg.Webhook.Secret = "verify"
	if err := cfg.ValidateForServe(); err != nil {
		t.Fatalf("validate for serve: %v", err)
	}
	if err := cfg.ValidateForSweep(); err == nil {
		t.Fatalf("expected sweep to require a database id")
	}
}
