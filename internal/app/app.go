// Package app builds the parse pipeline shared by the api and worker binaries.
package app

import (
	"github.com/rs/zerolog"

	"github.com/briangreenhill/tripparse/cache"
	"github.com/briangreenhill/tripparse/claude"
	"github.com/briangreenhill/tripparse/fetch"
	"github.com/briangreenhill/tripparse/internal/config"
	"github.com/briangreenhill/tripparse/pagetext"
	"github.com/briangreenhill/tripparse/parser"
	"github.com/briangreenhill/tripparse/platforms"
	"github.com/briangreenhill/tripparse/travel"
)

// NewStore creates the extraction cache described by cfg.
func NewStore(cfg *config.Config, logger zerolog.Logger) (*cache.Store[travel.Record], error) {
	return cache.New[travel.Record](cache.Options{
		TTL:     cfg.Cache.TTL(),
		Enabled: cfg.Cache.Enabled,
		MaxSize: cfg.Cache.MaxSize,
		Logger:  logger,
	})
}

// NewParser wires fetching, text extraction and the Anthropic extractor
// around store. obs may be nil.
func NewParser(cfg *config.Config, store *cache.Store[travel.Record], obs parser.Observer, logger zerolog.Logger) (*parser.Parser, error) {
	llmOpts := []claude.Option{claude.WithModel(cfg.Anthropic.Model)}
	if cfg.Anthropic.BaseURL != "" {
		llmOpts = append(llmOpts, claude.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	llm, err := claude.NewAnthropic(cfg.Anthropic.APIKey, llmOpts...)
	if err != nil {
		return nil, err
	}

	registry := platforms.Default()
	return parser.New(parser.Options{
		Fetcher: fetch.New(
			fetch.WithTimeout(cfg.API.RequestTimeout),
			fetch.WithMaxRetries(cfg.Fetch.MaxRetries),
			fetch.WithRequestsPerMinute(cfg.Fetch.RateLimitPerMinute),
			fetch.WithLogger(logger),
		),
		Text:      pagetext.New(registry, logger),
		LLM:       claude.NewExtractor(llm, logger),
		Cache:     store,
		Platforms: registry,
		Observer:  obs,
		Logger:    logger,
	})
}
