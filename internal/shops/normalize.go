package shops

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

var priceJunk = regexp.MustCompile(`[^\d,.]`)

// ParsePrice normalises storefront price text such as "1 299,00 kr", "€1,234.56"
// or "649 kr". With both separators present the later one is the decimal point;
// with only commas, a final group of exactly two digits is decimal.
func ParsePrice(text string) (decimal.Decimal, bool) {
	cleaned := priceJunk.ReplaceAllString(text, "")
	if cleaned == "" {
		return decimal.Zero, false
	}

	comma := strings.LastIndex(cleaned, ",")
	dot := strings.LastIndex(cleaned, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case comma >= 0:
		groups := strings.Split(cleaned, ",")
		if len(groups) == 2 && len(groups[1]) == 2 {
			cleaned = groups[0] + "." + groups[1]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/product/(\d+)`),
	regexp.MustCompile(`/p/(\d+)`),
	regexp.MustCompile(`/(\d+)\.html`),
	regexp.MustCompile(`[?&]id=(\d+)`),
	regexp.MustCompile(`/([A-Z0-9]{6,})`),
}

// IDFromURL derives a product identity from a storefront URL, falling back to the
// last path segment.
func IDFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

var sizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(XXS|XS|S|M|L|XL|XXL|XXXL)\b`),
	regexp.MustCompile(`\b(\d{2,3})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2}Y)\b`),
}

// SizesFromText pulls letter sizes, numeric sizes (36, 128) and kids ages (8Y)
// out of free text, in pattern order without duplicates.
func SizesFromText(text string) []string {
	var sizes []string
	seen := map[string]bool{}
	for _, re := range sizePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			s := strings.ToUpper(m[1])
			if seen[s] {
				continue
			}
			seen[s] = true
			sizes = append(sizes, s)
		}
	}
	return sizes
}

var strict = bluemonday.StrictPolicy()

// CleanText strips markup from descriptions and collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	plain := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(plain), " ")
}
