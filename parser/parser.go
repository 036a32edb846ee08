// Package parser turns a booking URL into a validated travel record.
// It fetches the page, reduces it to booking text and asks the model for
// structured fields, caching model results per (url, text, kind).
package parser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/tripparse/cache"
	"github.com/briangreenhill/tripparse/fetch"
	"github.com/briangreenhill/tripparse/platforms"
	"github.com/briangreenhill/tripparse/travel"
)

var (
	// ErrInvalidURL is returned for links without an http(s) scheme and host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrNoContent is returned when a page has no usable booking text.
	ErrNoContent = errors.New("no meaningful text content found on the page")
)

// Fetcher downloads a page.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// TextExtractor reduces HTML to booking text.
type TextExtractor interface {
	Extract(page, pageURL string) (string, error)
}

// RecordExtractor asks the model for a record of the given kind.
type RecordExtractor interface {
	Extract(ctx context.Context, kind travel.DataType, text string) (travel.Record, error)
}

// Observer is notified after every parse. It may be nil.
type Observer interface {
	ObserveParse(kind travel.DataType, err error, elapsed time.Duration)
}

// Options wires a Parser.
type Options struct {
	Fetcher   Fetcher
	Text      TextExtractor
	LLM       RecordExtractor
	Cache     *cache.Store[travel.Record] // nil disables caching
	Platforms *platforms.Registry
	Observer  Observer
	Logger    zerolog.Logger
}

type Parser struct {
	fetcher   Fetcher
	text      TextExtractor
	llm       RecordExtractor
	cache     *cache.Store[travel.Record]
	platforms *platforms.Registry
	observer  Observer
	log       zerolog.Logger
}

func New(opts Options) (*Parser, error) {
	if opts.Fetcher == nil || opts.Text == nil || opts.LLM == nil {
		return nil, errors.New("parser: fetcher, text extractor and llm are required")
	}
	reg := opts.Platforms
	if reg == nil {
		reg = platforms.Default()
	}
	return &Parser{
		fetcher:   opts.Fetcher,
		text:      opts.Text,
		llm:       opts.LLM,
		cache:     opts.Cache,
		platforms: reg,
		observer:  opts.Observer,
		log:       opts.Logger.With().Str("component", "parser").Logger(),
	}, nil
}

// ParseFlight extracts flight details from a booking URL.
func (p *Parser) ParseFlight(ctx context.Context, link string) (travel.Flight, error) {
	rec, err := p.Parse(ctx, travel.KindFlight, link)
	if err != nil {
		return travel.Flight{}, err
	}
	return rec.(travel.Flight), nil
}

// ParseLodging extracts lodging details from a booking URL.
func (p *Parser) ParseLodging(ctx context.Context, link string) (travel.Lodging, error) {
	rec, err := p.Parse(ctx, travel.KindLodging, link)
	if err != nil {
		return travel.Lodging{}, err
	}
	return rec.(travel.Lodging), nil
}

// Parse runs the full pipeline for kind.
func (p *Parser) Parse(ctx context.Context, kind travel.DataType, link string) (rec travel.Record, err error) {
	start := time.Now()
	if p.observer != nil {
		defer func() { p.observer.ObserveParse(kind, err, time.Since(start)) }()
	}
	log := p.log.With().Str("kind", string(kind)).Str("url", link).Logger()

	u, err := ValidateURL(link)
	if err != nil {
		return nil, err
	}
	if !p.platforms.Supports(u.Host, kind) {
		log.Warn().Str("domain", platforms.NormalizeHost(u.Host)).Msgf("domain may not be a supported %s platform", kind)
	}

	text, err := p.ScrapeText(ctx, link)
	if err != nil {
		log.Error().Err(err).Msg("scrape failed")
		return nil, fmt.Errorf("%s parsing failed: %w", kind, err)
	}

	// Rejected records are returned as errors so they are never cached.
	compute := func(ctx context.Context) (travel.Record, error) {
		rec, err := p.llm.Extract(ctx, kind, text)
		if err != nil {
			return nil, err
		}
		if rec.Kind() != kind {
			return nil, fmt.Errorf("extractor returned %s record", rec.Kind())
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		return rec, nil
	}
	if p.cache != nil {
		rec, err = p.cache.GetOrCompute(ctx, cache.DeriveKey(link, text, string(kind)), compute)
	} else {
		rec, err = compute(ctx)
	}
	if err != nil {
		log.Error().Err(err).Msg("extraction failed")
		return nil, fmt.Errorf("%s parsing failed: %w", kind, err)
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("parsed booking")
	return rec, nil
}

// ScrapeText fetches link and returns its cleaned booking text.
func (p *Parser) ScrapeText(ctx context.Context, link string) (string, error) {
	page, err := p.fetcher.Get(ctx, link)
	if err != nil {
		return "", err
	}
	text, err := p.text.Extract(page.Body, link)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoContent
	}
	p.log.Debug().Str("url", link).Int("chars", len(text)).Msg("extracted text")
	return text, nil
}

// ValidateURL accepts absolute http and https links only.
func ValidateURL(link string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, link)
	}
	return u, nil
}
