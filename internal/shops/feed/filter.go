package feed

import (
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
)

// Matches applies the attribute filters and the term pre-filter. An attribute filter
// only applies when both the query and the product carry the attribute.
func Matches(q models.SearchQuery, p *models.ProductResult, terms []string) bool {
	if q.Gender != "" && p.Gender != "" && !strings.EqualFold(q.Gender, p.Gender) {
		return false
	}
	if !containsFold(q.Category, p.Category) || !containsFold(q.Brand, p.Brand) || !containsFold(q.Color, p.Color) {
		return false
	}
	if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if q.Size != "" && len(p.Sizes) > 0 && !hasSize(p.Sizes, q.Size) {
		return false
	}
	if len(terms) == 0 {
		return true
	}

	text := strings.ToLower(strings.Join([]string{p.Name, p.Brand, p.Description, p.Category}, " "))
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func containsFold(want, have string) bool {
	if want == "" || have == "" {
		return true
	}
	return strings.Contains(strings.ToLower(have), strings.ToLower(want))
}

func hasSize(sizes []string, size string) bool {
	for _, s := range sizes {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(size)) {
			return true
		}
	}
	return false
}
