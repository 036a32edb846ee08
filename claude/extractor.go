package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/tripparse/travel"
)

// Extractor asks the model for structured booking fields.
type Extractor struct {
	llm Completer
	log zerolog.Logger
}

func NewExtractor(llm Completer, logger zerolog.Logger) *Extractor {
	return &Extractor{llm: llm, log: logger}
}

// ExtractFlight reads flight details out of cleaned page text.
func (e *Extractor) ExtractFlight(ctx context.Context, text string) (travel.Flight, error) {
	raw, err := e.ask(ctx, travel.KindFlight, FlightPrompt(text))
	if err != nil {
		return travel.Flight{}, err
	}
	f, err := travel.DecodeFlight(raw)
	if err != nil {
		return travel.Flight{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return f, nil
}

// ExtractLodging reads lodging details out of cleaned page text.
func (e *Extractor) ExtractLodging(ctx context.Context, text string) (travel.Lodging, error) {
	raw, err := e.ask(ctx, travel.KindLodging, LodgingPrompt(text))
	if err != nil {
		return travel.Lodging{}, err
	}
	l, err := travel.DecodeLodging(raw)
	if err != nil {
		return travel.Lodging{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return l, nil
}

// Extract dispatches on kind.
func (e *Extractor) Extract(ctx context.Context, kind travel.DataType, text string) (travel.Record, error) {
	switch kind {
	case travel.KindFlight:
		return e.ExtractFlight(ctx, text)
	case travel.KindLodging:
		return e.ExtractLodging(ctx, text)
	}
	return nil, fmt.Errorf("extract: unsupported data type %q", kind)
}

func (e *Extractor) ask(ctx context.Context, kind travel.DataType, prompt string) ([]byte, error) {
	reply, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		e.log.Error().Err(err).Str("kind", string(kind)).Msg("llm extraction failed")
		return nil, fmt.Errorf("extract %s data: %w", kind, err)
	}
	e.log.Debug().Str("kind", string(kind)).Str("reply", reply).Msg("llm reply")

	obj, ok := JSONObject(reply)
	if !ok {
		return nil, fmt.Errorf("extract %s data: %w: no JSON object in reply", kind, ErrInvalidResponse)
	}
	return []byte(obj), nil
}

// JSONObject returns the span from the first '{' to the last '}' of s.
func JSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
