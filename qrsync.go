package qrsync

import (
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/pipeline"
	"github.com/goliatone/go-qrsync/ratelimit"
	"github.com/goliatone/go-qrsync/transport"
)

type Config = core.Config

type RecordReference = core.RecordReference

type ProcessingError = core.ProcessingError

type Report = pipeline.Report

type Result = pipeline.Result

type Option func(*runtimeBuilder)

type runtimeBuilder struct {
	runtimeConfig   Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	httpClient      transport.HTTPDoer
	encoder         core.ArtifactEncoder
	tokens          ratelimit.TokenSource
	onReport        func(Report)
}

func WithLogger(logger core.Logger) Option {
	return func(b *runtimeBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *runtimeBuilder) {
		b.loggerProvider = provider
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *runtimeBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *runtimeBuilder) {
		b.optionsResolver = resolver
	}
}

func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(b *runtimeBuilder) {
		b.httpClient = client
	}
}

func WithEncoder(encoder core.ArtifactEncoder) Option {
	return func(b *runtimeBuilder) {
		b.encoder = encoder
	}
}

// WithTokenSource replaces the configured token source of the shared budget.
func WithTokenSource(tokens ratelimit.TokenSource) Option {
	return func(b *runtimeBuilder) {
		b.tokens = tokens
	}
}

func WithReportHandler(handler func(Report)) Option {
	return func(b *runtimeBuilder) {
		b.onReport = handler
	}
}

func DefaultConfig() Config {
	return core.DefaultConfig()
}
