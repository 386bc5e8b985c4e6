package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-qrsync"
	"github.com/goliatone/go-qrsync/adapters/gologger"
	"github.com/goliatone/go-qrsync/core"
)

// globalFlags is the runtime config layer; unset flags leave env and
// defaults in place.
type globalFlags struct {
	logLevel      string
	token         string
	databaseID    string
	baseURL       string
	idProperty    string
	uuidProperty  string
	artifactProp  string
	workers       int
	maxAttempts   int
	retryDelay    time.Duration
	rateCeiling   int
	maxConcurrent int
}

func (f *globalFlags) bind(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&f.token, "token", "", "Notion integration token (default $NOTION_API_TOKEN)")
	pf.StringVar(&f.databaseID, "database-id", "", "Notion database id (default $NOTION_DATABASE_ID)")
	pf.StringVar(&f.baseURL, "base-url", "", "Notion API base url")
	pf.StringVar(&f.idProperty, "id-property", "", "property holding the external key")
	pf.StringVar(&f.uuidProperty, "uuid-property", "", "property holding the stable uuid")
	pf.StringVar(&f.artifactProp, "artifact-property", "", "files property receiving the QR code")
	pf.IntVar(&f.workers, "workers", 0, "records processed concurrently during a sweep")
	pf.IntVar(&f.maxAttempts, "retry-attempts", 0, "attempts per remote call")
	pf.DurationVar(&f.retryDelay, "retry-delay", 0, "base delay between attempts")
	pf.IntVar(&f.rateCeiling, "rate-ceiling", 0, "remote calls allowed per window")
	pf.IntVar(&f.maxConcurrent, "max-concurrent", 0, "remote calls in flight at once")
}

func (f *globalFlags) runtimeConfig() core.Config {
	var cfg core.Config
	cfg.Notion.Token = f.token
	cfg.Notion.DatabaseID = f.databaseID
	cfg.Notion.BaseURL = f.baseURL
	cfg.Notion.Properties.ID = f.idProperty
	cfg.Notion.Properties.UUID = f.uuidProperty
	cfg.Notion.Properties.Artifact = f.artifactProp
	cfg.Batch.Workers = f.workers
	cfg.Retry.MaxAttempts = f.maxAttempts
	cfg.Retry.BaseDelay = f.retryDelay
	cfg.RateLimit.Ceiling = f.rateCeiling
	cfg.RateLimit.RefillAmount = f.rateCeiling
	cfg.RateLimit.MaxConcurrent = f.maxConcurrent
	return cfg
}

func (f *globalFlags) newRuntime(cfg core.Config, logOutput io.Writer) (*qrsync.Runtime, error) {
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logger := gologger.NewJSONLogger(logOutput, f.logLevel)
	return qrsync.New(cfg,
		qrsync.WithLoggerProvider(gologger.NewSlogProvider(logger)),
		qrsync.WithConfigProvider(core.NewCfgxConfigProvider(core.NewEnvConfigLoader())),
	)
}
