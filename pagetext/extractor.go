// Package pagetext reduces a booking page to the text that describes the booking.
package pagetext

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/briangreenhill/tripparse/platforms"
)

var noiseSelectors = []string{
	"nav", "header", "footer", "aside",
	".navigation", ".nav", ".menu", ".sidebar",
	".advertisement", ".ad", ".ads", ".banner",
	".social", ".share", ".newsletter", ".popup",
	".cookie", ".gdpr", ".privacy-notice",
	"script", "style", "noscript", "iframe",
	".comments", ".reviews-summary", ".user-reviews",
	".breadcrumb", ".breadcrumbs",
}

// Matched against individual class names. Kept narrow so names like
// "c-accommodation-header" survive.
var noiseClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^ad$`),
	regexp.MustCompile(`(?i)^ads$`),
	regexp.MustCompile(`(?i)advertisement`),
	regexp.MustCompile(`(?i)banner`),
	regexp.MustCompile(`(?i)popup`),
	regexp.MustCompile(`(?i)modal`),
	regexp.MustCompile(`(?i)cookie`),
	regexp.MustCompile(`(?i)gdpr`),
	regexp.MustCompile(`(?i)newsletter`),
	regexp.MustCompile(`(?i)social-share`),
	regexp.MustCompile(`(?i)promo`),
}

var bookingSelectors = []string{
	".booking", ".reservation", ".itinerary",
	".flight-details", ".hotel-details", ".property-details",
	".price", ".cost", ".fare", ".rate", ".total",
	".date", ".time", ".duration", ".nights",
	".guest", ".passenger", ".traveler",
	".location", ".destination", ".airport", ".city",
	".room", ".accommodation", ".property",
	`[data-testid*="price"]`, `[data-testid*="date"]`,
	`[data-testid*="flight"]`, `[data-testid*="hotel"]`,
}

var mainSelectors = []string{"main", ".main", "#main", ".content", ".container"}

var (
	reSpaces      = regexp.MustCompile(`\s+`)
	reLeadMarker  = regexp.MustCompile(`(?m)^\s*[|\-*+]\s*`)
	reTrailMarker = regexp.MustCompile(`(?m)\s*[|\-*+]\s*$`)
	reManyDots    = regexp.MustCompile(`\.{3,}`)
	reManyDashes  = regexp.MustCompile(`-{3,}`)
)

// Extractor pulls booking text out of HTML pages.
type Extractor struct {
	platforms *platforms.Registry
	log       zerolog.Logger
}

// New creates an Extractor. A nil registry disables site specific selectors.
func New(registry *platforms.Registry, logger zerolog.Logger) *Extractor {
	if registry == nil {
		registry = platforms.NewRegistry()
	}
	return &Extractor{platforms: registry, log: logger}
}

// Extract returns the cleaned booking text of page. pageURL selects site
// specific selectors and may be empty.
func (e *Extractor) Extract(page, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	platform, known := e.platformFor(pageURL)
	if known {
		removeAll(doc, platform.NoiseSelectors)
	}
	removeAll(doc, noiseSelectors)
	removeNoiseClasses(doc)

	var texts []string
	if known {
		texts = collect(doc, platform.ContentSelectors, texts)
	}
	texts = collect(doc, bookingSelectors, texts)
	if len(texts) == 0 {
		texts = collect(doc, mainSelectors, texts)
	}
	if len(texts) == 0 {
		texts = collect(doc, []string{"body"}, texts)
	}

	text := Clean(strings.Join(texts, "\n"))
	e.log.Debug().
		Str("platform", platform.Name).
		Int("chars", len(text)).
		Msg("extracted page text")
	return text, nil
}

func (e *Extractor) platformFor(pageURL string) (platforms.Platform, bool) {
	if pageURL == "" {
		return platforms.Platform{}, false
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return platforms.Platform{}, false
	}
	return e.platforms.Lookup(u.Host)
}

func removeAll(doc *goquery.Document, selectors []string) {
	for _, sel := range selectors {
		doc.Find(sel).Remove()
	}
}

func removeNoiseClasses(doc *goquery.Document) {
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		for _, name := range strings.Fields(class) {
			for _, re := range noiseClassPatterns {
				if re.MatchString(name) {
					s.Remove()
					return
				}
			}
		}
	})
}

func collect(doc *goquery.Document, selectors []string, texts []string) []string {
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := nodeText(s); t != "" {
				texts = append(texts, t)
			}
		})
	}
	return texts
}

// nodeText joins the trimmed text nodes under s with single spaces.
func nodeText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// Clean collapses whitespace and strips list markers and runs of punctuation.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = reSpaces.ReplaceAllString(text, " ")
	text = reLeadMarker.ReplaceAllString(text, "")
	text = reTrailMarker.ReplaceAllString(text, "")
	text = reManyDots.ReplaceAllString(text, "...")
	text = reManyDashes.ReplaceAllString(text, "---")
	return strings.TrimSpace(text)
}
