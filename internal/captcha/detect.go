package captcha

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Type identifies a CAPTCHA vendor.
type Type string

const (
	TypeRecaptcha Type = "recaptcha"
	TypeHcaptcha  Type = "hcaptcha"
	TypeTurnstile Type = "turnstile"
)

// Challenge describes one detected CAPTCHA. Challenges are ephemeral:
// detected per navigation and never persisted.
type Challenge struct {
	Type    Type
	SiteKey string
	PageURL string
}

// responseField returns the hidden form field the vendor's own script
// would fill on success.
func (c *Challenge) responseField() string {
	switch c.Type {
	case TypeHcaptcha:
		return "h-captcha-response"
	case TypeTurnstile:
		return "cf-turnstile-response"
	default:
		return "g-recaptcha-response"
	}
}

var iframePatterns = []struct {
	typ Type
	re  *regexp.Regexp
}{
	{TypeRecaptcha, regexp.MustCompile(`(?i)google\.com/recaptcha/(?:api2|enterprise)/anchor[^"']*[?&]k=([\w-]+)`)},
	{TypeHcaptcha, regexp.MustCompile(`(?i)hcaptcha\.com/captcha[^"']*[?&]sitekey=([\w-]+)`)},
	{TypeTurnstile, regexp.MustCompile(`(?i)challenges\.cloudflare\.com/turnstile[^"']*`)},
}

// widgetSelectors map widget container classes to vendors. Checked before
// iframe sources because the container carries the site key directly.
var widgetSelectors = []struct {
	typ      Type
	selector string
}{
	{TypeRecaptcha, ".g-recaptcha[data-sitekey]"},
	{TypeHcaptcha, ".h-captcha[data-sitekey]"},
	{TypeTurnstile, ".cf-turnstile[data-sitekey]"},
}

// Detect scans page content for a CAPTCHA widget and extracts its
// challenge parameters. Returns nil when none is present.
func Detect(pageContent, pageURL string) *Challenge {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageContent)); err == nil {
		for _, w := range widgetSelectors {
			sel := doc.Find(w.selector).First()
			if sel.Length() == 0 {
				continue
			}
			key, _ := sel.Attr("data-sitekey")
			if key != "" {
				return &Challenge{Type: w.typ, SiteKey: key, PageURL: pageURL}
			}
		}
	}

	for _, p := range iframePatterns {
		m := p.re.FindStringSubmatch(pageContent)
		if m == nil {
			continue
		}
		key := ""
		if len(m) > 1 {
			key = m[1]
		} else if u := extractSiteKeyParam(m[0]); u != "" {
			key = u
		}
		return &Challenge{Type: p.typ, SiteKey: key, PageURL: pageURL}
	}

	return nil
}

func extractSiteKeyParam(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, param := range []string{"sitekey", "k"} {
		if v := q.Get(param); v != "" {
			return v
		}
	}
	return ""
}
