// Package relevance scores how well a product matches a search query.
package relevance

import (
	"math"
	"sort"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
)

// Weights caps each factor's contribution. They sum to 1.0.
type Weights struct {
	Brand     float64
	Category  float64
	Terms     float64
	Color     float64
	StyleTags float64
	Size      float64
}

func DefaultWeights() Weights {
	return Weights{
		Brand:     0.35,
		Category:  0.25,
		Terms:     0.20,
		Color:     0.10,
		StyleTags: 0.05,
		Size:      0.05,
	}
}

// Partial scores used when a factor only matches loosely.
const (
	brandPartial      = 0.25
	brandFromTerm     = 0.30
	brandTermInText   = 0.10
	categoryFromTerm  = 0.20
	colorFromTerm     = 0.08
	scorePrecisionPow = 1e4
)

var categorySynonyms = map[string][]string{
	"hoodie":  {"hoodie", "hooded", "pullover", "sweatshirt"},
	"jacket":  {"jacket", "coat", "blazer", "parka", "bomber"},
	"pants":   {"pants", "trousers", "jeans", "chinos"},
	"shirt":   {"shirt", "blouse", "top", "tee", "t-shirt"},
	"shoes":   {"shoes", "sneakers", "boots", "trainers", "footwear"},
	"sweater": {"sweater", "jumper", "knit", "cardigan", "pullover"},
	"dress":   {"dress", "gown"},
	"skirt":   {"skirt"},
	"shorts":  {"shorts"},
}

var colorSynonyms = map[string][]string{
	"black": {"black", "noir", "svart"},
	"white": {"white", "cream", "ivory", "vit"},
	"blue":  {"blue", "navy", "cobalt", "blå"},
	"red":   {"red", "crimson", "röd"},
	"green": {"green", "olive", "grön"},
	"gray":  {"gray", "grey", "charcoal", "grå"},
	"brown": {"brown", "tan", "camel", "brun"},
	"pink":  {"pink", "rose", "rosa"},
	"beige": {"beige", "sand", "khaki"},
}

// Scorer computes deterministic relevance scores in [0, 1].
type Scorer struct {
	w Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

var defaultScorer = NewScorer(DefaultWeights())

// Score uses the default weights.
func Score(q models.SearchQuery, p models.ProductResult) float64 {
	return defaultScorer.Score(q, p)
}

type candidate struct {
	name     string
	brand    string
	category string
	color    string
	text     string
}

func newCandidate(p models.ProductResult) candidate {
	c := candidate{
		name:     strings.ToLower(p.Name),
		brand:    strings.ToLower(p.Brand),
		category: strings.ToLower(p.Category),
		color:    strings.ToLower(p.Color),
	}
	c.text = strings.Join([]string{c.name, c.brand, strings.ToLower(p.Description), c.category}, " ")
	return c
}

func (s *Scorer) Score(q models.SearchQuery, p models.ProductResult) float64 {
	c := newCandidate(p)
	terms := q.Terms()

	score := s.brand(q, c, terms) +
		s.category(q, c, terms) +
		s.terms(c, terms) +
		s.color(q, c, terms) +
		s.styleTags(q, c) +
		s.size(q, p)

	return clamp01(math.Round(score*scorePrecisionPow) / scorePrecisionPow)
}

func (s *Scorer) brand(q models.SearchQuery, c candidate, terms []string) float64 {
	if q.Brand != "" {
		want := strings.ToLower(q.Brand)
		switch {
		case c.brand == "":
			return 0
		case want == c.brand:
			return s.w.Brand
		case strings.Contains(c.brand, want) || strings.Contains(want, c.brand):
			return math.Min(brandPartial, s.w.Brand)
		}
		return 0
	}

	best := 0.0
	for _, t := range terms {
		switch {
		case c.brand != "" && strings.Contains(c.brand, t):
			best = math.Max(best, brandFromTerm)
		case c.brand != "" && strings.Contains(c.text, t):
			best = math.Max(best, brandTermInText)
		}
	}
	return math.Min(best, s.w.Brand)
}

func (s *Scorer) category(q models.SearchQuery, c candidate, terms []string) float64 {
	if q.Category != "" {
		if anyIn(synonymsOf(categorySynonyms, q.Category), c.name, c.category) {
			return s.w.Category
		}
		return 0
	}
	for _, t := range terms {
		if anyIn(synonymsOf(categorySynonyms, t), c.name, c.category) {
			return math.Min(categoryFromTerm, s.w.Category)
		}
	}
	return 0
}

func (s *Scorer) terms(c candidate, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	matched := 0
	for _, t := range terms {
		if strings.Contains(c.text, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms)) * s.w.Terms
}

func (s *Scorer) color(q models.SearchQuery, c candidate, terms []string) float64 {
	if q.Color != "" {
		if anyIn(synonymsOf(colorSynonyms, q.Color), c.color, c.name) {
			return s.w.Color
		}
		return 0
	}
	if c.color == "" {
		return 0
	}
	for _, t := range terms {
		if strings.Contains(c.color, t) {
			return math.Min(colorFromTerm, s.w.Color)
		}
	}
	return 0
}

func (s *Scorer) styleTags(q models.SearchQuery, c candidate) float64 {
	if len(q.StyleTags) == 0 {
		return 0
	}
	matched := 0
	for _, tag := range q.StyleTags {
		if strings.Contains(c.text, strings.ToLower(tag)) {
			matched++
		}
	}
	return float64(matched) / float64(len(q.StyleTags)) * s.w.StyleTags
}

func (s *Scorer) size(q models.SearchQuery, p models.ProductResult) float64 {
	if q.Size == "" {
		return 0
	}
	for _, sz := range p.Sizes {
		if strings.EqualFold(strings.TrimSpace(sz), strings.TrimSpace(q.Size)) {
			return s.w.Size
		}
	}
	return 0
}

// Apply scores every product, sorts by descending score (stable, so ties keep source
// order) and caps the list at the query limit.
func Apply(q models.SearchQuery, products []models.ProductResult) []models.ProductResult {
	for i := range products {
		products[i].RelevanceScore = Score(q, products[i])
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].RelevanceScore > products[j].RelevanceScore
	})
	if limit := q.EffectiveLimit(); len(products) > limit {
		products = products[:limit]
	}
	return products
}

func synonymsOf(table map[string][]string, key string) []string {
	key = strings.ToLower(strings.TrimSpace(key))
	if syns, ok := table[key]; ok {
		return syns
	}
	return []string{key}
}

func anyIn(needles []string, haystacks ...string) bool {
	for _, n := range needles {
		for _, h := range haystacks {
			if h != "" && strings.Contains(h, n) {
				return true
			}
		}
	}
	return false
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
