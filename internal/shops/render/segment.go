package render

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// TextParts is what Segment recovers from a tile's combined text. Price is nil
// when no price was present.
type TextParts struct {
	Brand string
	Name  string
	Price *decimal.Decimal
}

var tilePrice = regexp.MustCompile(`(\d[\d\s]*)\s*kr`)

// Segment splits a tile text blob such as "NyhetLyle & ScottCrew Neck Sweatshirt649 kr"
// into brand, name and price. The brand is the lexicon entry found earliest in the
// text, longest first on ties; the name is whatever follows it.
func Segment(text string, lexicon []string) TextParts {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.TrimSpace(strings.ReplaceAll(text, "Nyhet", ""))

	var parts TextParts
	if loc := tilePrice.FindStringSubmatchIndex(text); loc != nil {
		digits := strings.Join(strings.Fields(text[loc[2]:loc[3]]), "")
		if d, err := decimal.NewFromString(digits); err == nil {
			parts.Price = &d
		}
		text = strings.TrimSpace(text[:loc[0]])
	}

	at, brand := -1, ""
	for _, b := range lexicon {
		i := strings.Index(text, b)
		if i < 0 {
			continue
		}
		if at < 0 || i < at || (i == at && len(b) > len(brand)) {
			at, brand = i, b
		}
	}
	if brand != "" {
		parts.Brand = brand
		parts.Name = strings.TrimSpace(text[at+len(brand):])
		return parts
	}
	parts.Name = text
	return parts
}
