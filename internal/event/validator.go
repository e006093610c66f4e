package event

import (
	"regexp"
	"strings"
	"time"
)

// ValidationError describes why a single candidate was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// category pairs a name with the keywords that select it. The table is
// ordered; the first category with a keyword found in title+description
// wins.
type category struct {
	name     string
	keywords []string
}

var categories = []category{
	{"Music", []string{"concert", "band", "dj", "festival", "live music", "orchestra", "gig", "album"}},
	{"Sports", []string{"match", "tournament", "league", "race", "marathon", "game day", "cup", "athletics"}},
	{"Arts & Theatre", []string{"theatre", "theater", "exhibition", "gallery", "museum", "opera", "ballet", "play"}},
	{"Food & Drink", []string{"tasting", "brunch", "dinner", "food", "wine", "beer", "brewery", "cocktail"}},
	{"Tech", []string{"hackathon", "meetup", "workshop", "conference", "developer", "startup", "coding"}},
	{"Family", []string{"kids", "family", "children", "storytime", "puppet"}},
	{"Nightlife", []string{"club", "party", "rave", "karaoke"}},
}

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "Other"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	zeroWidth     = strings.NewReplacer(
		"\u200b", "", // zero-width space
		"\u200c", "", // zero-width non-joiner
		"\u200d", "", // zero-width joiner
		"\ufeff", "", // byte-order mark
		"\u00ad", "", // soft hyphen
	)
)

// Validator normalizes candidates into validated events. now is injectable
// for tests; the zero Validator uses time.Now.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a Validator anchored to the real clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// NewValidatorAt creates a Validator with a fixed clock.
func NewValidatorAt(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate normalizes a single candidate. On failure it returns one error
// per problem found; a candidate with errors never reaches the tracker or
// the store.
func (v *Validator) Validate(c *Candidate) (*Validated, []*ValidationError) {
	var errs []*ValidationError

	required := []struct {
		field string
		value string
	}{
		{"title", c.Title},
		{"date", c.Date},
		{"location", c.Location},
		{"link", c.Link},
		{"source", c.Source},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, &ValidationError{
				Field:  r.field,
				Reason: "Missing required field: " + r.field,
			})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	date, err := ParseDate(strings.TrimSpace(c.Date), v.now())
	if err != nil {
		return nil, []*ValidationError{{Field: "date", Reason: "Unparseable date: " + c.Date}}
	}

	link, ok := normalizeLink(c.Link)
	if !ok {
		return nil, []*ValidationError{{Field: "link", Reason: "Invalid link scheme: " + c.Link}}
	}

	title := CleanText(c.Title)
	location := CleanText(c.Location)

	price := 0
	if c.Price != nil {
		price = *c.Price
	}

	return &Validated{
		Title:       title,
		Date:        date,
		Time:        strings.TrimSpace(c.Time),
		Location:    location,
		Link:        link,
		Description: CleanText(c.Description),
		Source:      c.Source,
		Price:       price,
		PriceTier:   PriceTier(price),
		Category:    Categorize(c.Title, c.Description),
		ContentHash: ContentHash(title, date, location, c.Source),
	}, nil
}

// ValidateAll partitions candidates into valid events and per-candidate
// rejection reasons.
func (v *Validator) ValidateAll(candidates []*Candidate) ([]*Validated, []string) {
	valid := make([]*Validated, 0, len(candidates))
	var invalid []string

	for _, c := range candidates {
		ev, errs := v.Validate(c)
		if len(errs) > 0 {
			for _, e := range errs {
				invalid = append(invalid, e.Error())
			}
			continue
		}
		valid = append(valid, ev)
	}

	return valid, invalid
}

// CleanText strips zero-width characters and collapses whitespace runs.
func CleanText(s string) string {
	s = zeroWidth.Replace(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// PriceTier buckets a price into tiers 0-4.
func PriceTier(price int) int {
	switch {
	case price <= 0:
		return 0
	case price < 20:
		return 1
	case price < 50:
		return 2
	case price < 100:
		return 3
	default:
		return 4
	}
}

// Categorize returns the first category whose keyword set matches a
// substring of title+description, case-insensitive.
func Categorize(title, description string) string {
	haystack := strings.ToLower(title + " " + description)
	for _, cat := range categories {
		for _, kw := range cat.keywords {
			if strings.Contains(haystack, kw) {
				return cat.name
			}
		}
	}
	return DefaultCategory
}

func normalizeLink(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link, true
	}
	// A bare host is auto-prefixed; anything with another scheme is
	// rejected.
	if strings.Contains(link, "://") {
		return "", false
	}
	return "https://" + link, true
}
