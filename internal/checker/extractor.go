package checker

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
)

// ErrContentNotLoaded is returned when the page lacks the ready marker.
var ErrContentNotLoaded = errors.New("content not loaded")

// Extractor turns a registrar page into an availability status.
// It is immutable after construction and safe for concurrent use.
type Extractor struct {
	readySelector       string
	availableSelector   string
	unavailableSelector string

	matcher        *ahocorasick.Matcher
	availableCount int
}

// NewExtractor builds an extractor from the checker config.
func NewExtractor(cfg config.CheckerConfig) *Extractor {
	e := &Extractor{
		readySelector:       cfg.ReadySelector,
		availableSelector:   cfg.AvailableSelector,
		unavailableSelector: cfg.UnavailableSelector,
	}

	dictionary := make([]string, 0, len(cfg.AvailablePhrases)+len(cfg.UnavailablePhrases))
	for _, p := range cfg.AvailablePhrases {
		dictionary = append(dictionary, normalizeText(p))
	}
	e.availableCount = len(dictionary)
	for _, p := range cfg.UnavailablePhrases {
		dictionary = append(dictionary, normalizeText(p))
	}
	if len(dictionary) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(dictionary)
	}
	return e
}

// Extract returns available, unavailable or unknown for a loaded page.
func (e *Extractor) Extract(body []byte) (domain.Status, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.StatusUnknown, fmt.Errorf("parse page: %w", err)
	}

	if e.readySelector != "" && doc.Find(e.readySelector).Length() == 0 {
		return domain.StatusUnknown, ErrContentNotLoaded
	}

	if st, ok := e.fromSelectors(doc); ok {
		return st, nil
	}
	return e.fromPhrases(visibleText(doc)), nil
}

func (e *Extractor) fromSelectors(doc *goquery.Document) (domain.Status, bool) {
	available := e.availableSelector != "" && doc.Find(e.availableSelector).Length() > 0
	unavailable := e.unavailableSelector != "" && doc.Find(e.unavailableSelector).Length() > 0

	switch {
	case available && !unavailable:
		return domain.StatusAvailable, true
	case unavailable && !available:
		return domain.StatusUnavailable, true
	default:
		return domain.StatusUnknown, false
	}
}

func (e *Extractor) fromPhrases(text string) domain.Status {
	if e.matcher == nil {
		return domain.StatusUnknown
	}

	var available, unavailable bool
	for _, hit := range e.matcher.MatchThreadSafe([]byte(text)) {
		if hit < e.availableCount {
			available = true
		} else {
			unavailable = true
		}
	}

	switch {
	case available && !unavailable:
		return domain.StatusAvailable
	case unavailable && !available:
		return domain.StatusUnavailable
	default:
		return domain.StatusUnknown
	}
}

// visibleText returns the lowercased, whitespace-collapsed body text.
func visibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template").Remove()
	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	return normalizeText(sel.Text())
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
