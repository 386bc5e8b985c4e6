package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// ResolveConfig layers defaults, provider-loaded values and runtime overrides.
func ResolveConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvConfigLoader maps process environment variables onto the raw config tree.
type EnvConfigLoader struct {
	Lookup func(key string) (string, bool)
}

func NewEnvConfigLoader() EnvConfigLoader {
	return EnvConfigLoader{Lookup: os.LookupEnv}
}

func (l EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	raw := map[string]any{}
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}
	set := func(section string, key string, value any) {
		if section == "" {
			raw[key] = value
			return
		}
		nested, _ := raw[section].(map[string]any)
		if nested == nil {
			nested = map[string]any{}
			raw[section] = nested
		}
		nested[key] = value
	}

	if value, ok := get("QRSYNC_SERVICE_NAME"); ok {
		set("", "service_name", value)
	}

	for env, key := range map[string]string{
		"NOTION_API_TOKEN":   "token",
		"NOTION_DATABASE_ID": "database_id",
		"NOTION_BASE_URL":    "base_url",
		"NOTION_VERSION":     "version",
	} {
		if value, ok := get(env); ok {
			set("notion", key, value)
		}
	}
	properties := map[string]any{}
	for env, key := range map[string]string{
		"QRSYNC_ID_PROPERTY":       "id",
		"QRSYNC_UUID_PROPERTY":     "uuid",
		"QRSYNC_ARTIFACT_PROPERTY": "artifact",
	} {
		if value, ok := get(env); ok {
			properties[key] = value
		}
	}
	if len(properties) > 0 {
		set("notion", "properties", properties)
	}

	if value, ok := get("NOTION_VERIFICATION_TOKEN"); ok {
		set("webhook", "secret", value)
	}
	if value, ok := get("QRSYNC_WEBHOOK_ADDR"); ok {
		set("webhook", "addr", value)
	}
	if value, ok := get("QRSYNC_WEBHOOK_PARENT_ID"); ok {
		set("webhook", "parent_id", value)
	}
	if value, ok := get("QRSYNC_WEBHOOK_EVENT_TYPES"); ok {
		set("webhook", "event_types", splitList(value))
	}
	if value, ok := get("QRSYNC_RATE_LIMIT_MODE"); ok {
		set("rate_limit", "mode", value)
	}

	ints := []struct {
		env     string
		section string
		key     string
	}{
		{"QRSYNC_RATE_LIMIT_CEILING", "rate_limit", "ceiling"},
		{"QRSYNC_RATE_LIMIT_REFILL", "rate_limit", "refill_amount"},
		{"QRSYNC_RATE_LIMIT_CONCURRENCY", "rate_limit", "max_concurrent"},
		{"QRSYNC_RETRY_MAX_ATTEMPTS", "retry", "max_attempts"},
		{"QRSYNC_BATCH_WORKERS", "batch", "workers"},
	}
	for _, entry := range ints {
		value, ok := get(entry.env)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("core: parse %s: %w", entry.env, err)
		}
		set(entry.section, entry.key, parsed)
	}

	durations := []struct {
		env     string
		section string
		key     string
	}{
		{"QRSYNC_RATE_LIMIT_WINDOW", "rate_limit", "window"},
		{"QRSYNC_RETRY_BASE_DELAY", "retry", "base_delay"},
		{"QRSYNC_WEBHOOK_COALESCE_WINDOW", "webhook", "coalesce_window"},
	}
	for _, entry := range durations {
		value, ok := get(entry.env)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("core: parse %s: %w", entry.env, err)
		}
		set(entry.section, entry.key, parsed)
	}
	return raw, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString := func(target map[string]any, key string, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			target[key] = value
		}
	}
	putInt := func(target map[string]any, key string, value int) {
		if includeZero || value != 0 {
			target[key] = value
		}
	}
	putDuration := func(target map[string]any, key string, value time.Duration) {
		if includeZero || value != 0 {
			target[key] = value
		}
	}
	putSection := func(key string, section map[string]any) {
		if len(section) > 0 {
			layer[key] = section
		}
	}

	putString(layer, "service_name", cfg.ServiceName)

	properties := map[string]any{}
	putString(properties, "id", cfg.Notion.Properties.ID)
	putString(properties, "uuid", cfg.Notion.Properties.UUID)
	putString(properties, "artifact", cfg.Notion.Properties.Artifact)
	notion := map[string]any{}
	putString(notion, "base_url", cfg.Notion.BaseURL)
	putString(notion, "token", cfg.Notion.Token)
	putString(notion, "version", cfg.Notion.Version)
	putString(notion, "database_id", cfg.Notion.DatabaseID)
	if len(properties) > 0 {
		notion["properties"] = properties
	}
	putSection("notion", notion)

	rateLimit := map[string]any{}
	putString(rateLimit, "mode", cfg.RateLimit.Mode)
	putInt(rateLimit, "ceiling", cfg.RateLimit.Ceiling)
	putInt(rateLimit, "refill_amount", cfg.RateLimit.RefillAmount)
	putDuration(rateLimit, "window", cfg.RateLimit.Window)
	putInt(rateLimit, "max_concurrent", cfg.RateLimit.MaxConcurrent)
	putSection("rate_limit", rateLimit)

	retry := map[string]any{}
	putInt(retry, "max_attempts", cfg.Retry.MaxAttempts)
	putDuration(retry, "base_delay", cfg.Retry.BaseDelay)
	putSection("retry", retry)

	webhook := map[string]any{}
	putString(webhook, "addr", cfg.Webhook.Addr)
	putString(webhook, "secret", cfg.Webhook.Secret)
	putString(webhook, "signature_header", cfg.Webhook.SignatureHeader)
	putString(webhook, "parent_id", cfg.Webhook.ParentID)
	if includeZero || len(cfg.Webhook.EventTypes) > 0 {
		webhook["event_types"] = append([]string(nil), cfg.Webhook.EventTypes...)
	}
	if includeZero || cfg.Webhook.MaxBodyBytes != 0 {
		webhook["max_body_bytes"] = cfg.Webhook.MaxBodyBytes
	}
	putDuration(webhook, "coalesce_window", cfg.Webhook.CoalesceWindow)
	putSection("webhook", webhook)

	batch := map[string]any{}
	putInt(batch, "workers", cfg.Batch.Workers)
	putSection("batch", batch)

	artifact := map[string]any{}
	putString(artifact, "content_type", cfg.Artifact.ContentType)
	putInt(artifact, "size", cfg.Artifact.Size)
	putSection("artifact", artifact)
	return layer
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
