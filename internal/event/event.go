package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// Candidate represents a raw scraped record as emitted by a source adapter.
// Price is in minor currency units (cents); nil means the source did not
// report one.
type Candidate struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
	Price       *int   `json:"price,omitempty"`
}

// Validated is a candidate after normalization, with derived fields.
type Validated struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
	Price       int    `json:"price"`
	PriceTier   int    `json:"price_tier"`
	Category    string `json:"category"`
	ContentHash string `json:"content_hash"`
}

// ContentHash creates a deterministic identity for an event based on its
// stable fields. Title and location are lowercased and trimmed so cosmetic
// differences between crawls do not change identity; the link is excluded
// on purpose.
func ContentHash(title, date, location, source string) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(title)),
		date,
		strings.ToLower(strings.TrimSpace(location)),
		source,
	}
	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", h.Sum(nil))
}
