package crawler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nordgren/eventscout/internal/event"
)

// Source is one event listing to crawl. Parse extracts candidates from
// the loaded page content.
type Source interface {
	Name() string
	URL() string
	Parse(content string) ([]*event.Candidate, error)
}

// Selectors maps listing page structure to candidate fields. Item scopes
// each event; the rest are resolved inside an item. Link reads the href
// attribute of the matched element.
type Selectors struct {
	Item        string `yaml:"item"`
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Time        string `yaml:"time"`
	Location    string `yaml:"location"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
}

// SelectorSource parses a listing page with CSS selectors, which keeps
// new sources a config change rather than a code change.
type SelectorSource struct {
	name      string
	url       string
	selectors Selectors
}

// NewSelectorSource creates a source. Name, URL, and the item and title
// selectors are required.
func NewSelectorSource(name, url string, sel Selectors) (*SelectorSource, error) {
	if name == "" || url == "" {
		return nil, fmt.Errorf("source needs a name and url")
	}
	if sel.Item == "" || sel.Title == "" {
		return nil, fmt.Errorf("source %s: item and title selectors are required", name)
	}
	return &SelectorSource{name: name, url: url, selectors: sel}, nil
}

func (s *SelectorSource) Name() string { return s.name }
func (s *SelectorSource) URL() string  { return s.url }

// Parse extracts one candidate per item node. Items without a title are
// skipped; everything else is left for validation to judge.
func (s *SelectorSource) Parse(content string) ([]*event.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s page: %w", s.name, err)
	}

	var candidates []*event.Candidate
	doc.Find(s.selectors.Item).Each(func(_ int, item *goquery.Selection) {
		title := text(item, s.selectors.Title)
		if title == "" {
			return
		}

		c := &event.Candidate{
			Title:       title,
			Date:        text(item, s.selectors.Date),
			Time:        text(item, s.selectors.Time),
			Location:    text(item, s.selectors.Location),
			Description: text(item, s.selectors.Description),
			Source:      s.name,
		}

		if s.selectors.Link != "" {
			if href, ok := item.Find(s.selectors.Link).First().Attr("href"); ok {
				c.Link = strings.TrimSpace(href)
			}
		}
		if s.selectors.Price != "" {
			c.Price = parsePrice(text(item, s.selectors.Price))
		}

		candidates = append(candidates, c)
	})
	return candidates, nil
}

func text(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}

var priceRe = regexp.MustCompile(`(\d+)(?:[.,](\d{2}))?`)

// parsePrice extracts the amount from a price label in minor currency
// units, so "$25" and "25.50 EUR" become 2500 and 2550. "Free" and empty
// labels mean price zero; an unparseable label means no price at all.
func parsePrice(label string) *int {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	if strings.Contains(strings.ToLower(label), "free") {
		zero := 0
		return &zero
	}
	m := priceRe.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	whole, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	n := whole * 100
	if m[2] != "" {
		cents, err := strconv.Atoi(m[2])
		if err != nil {
			return nil
		}
		n += cents
	}
	return &n
}
