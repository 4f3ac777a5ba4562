package relevance

import (
	"testing"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/stretchr/testify/require"
)

func nikeHoodie() models.ProductResult {
	return models.ProductResult{
		Name:     "Nike Sportswear Tech Fleece Hoodie Black",
		Brand:    "Nike",
		Category: "hoodie",
		Color:    "Black",
		Sizes:    []string{"S", "M", "L"},
	}
}

func TestScoreExactBrandCategoryAndTerms(t *testing.T) {
	q := models.SearchQuery{Query: "Nike hoodie black", Brand: "Nike", Category: "hoodie", Color: "black"}

	score := Score(q, nikeHoodie())
	require.GreaterOrEqual(t, score, 0.9)
	require.LessOrEqual(t, score, 1.0)
}

func TestScoreWithoutFiltersUsesTermHeuristics(t *testing.T) {
	q := models.SearchQuery{Query: "nike hoodie black"}

	// brand via term 0.30, category via term 0.20, terms 0.20, color via term 0.08
	require.InDelta(t, 0.78, Score(q, nikeHoodie()), 1e-9)
}

func TestScorePartialBrand(t *testing.T) {
	q := models.SearchQuery{Query: "jacket", Brand: "north face"}
	p := models.ProductResult{Name: "Nuptse Jacket", Brand: "The North Face"}

	// partial brand 0.25, category via term 0.20, terms 0.20
	require.InDelta(t, 0.65, Score(q, p), 1e-9)
}

func TestScoreCategorySynonyms(t *testing.T) {
	q := models.SearchQuery{Query: "grey", Category: "hoodie", Color: "gray"}
	p := models.ProductResult{Name: "College Sweatshirt", Color: "Charcoal"}

	// category synonym 0.25, color synonym 0.10, no term match
	require.InDelta(t, 0.35, Score(q, p), 1e-9)
}

func TestScoreStyleTagsAndSize(t *testing.T) {
	q := models.SearchQuery{Query: "x", StyleTags: []string{"oversized", "vintage"}, Size: "m"}
	p := models.ProductResult{Name: "Oversized tee", Sizes: []string{"S", "M"}}

	require.InDelta(t, 0.075, Score(q, p), 1e-9)
}

func TestScoreBounded(t *testing.T) {
	queries := []models.SearchQuery{
		{},
		{Query: "a b c"},
		{Query: "nike nike nike hoodie hoodie", Brand: "nike", Category: "hoodie", Color: "black", Size: "M", StyleTags: []string{"nike", "hoodie"}},
		{Query: "röd klänning", Color: "red"},
	}
	products := []models.ProductResult{
		{},
		nikeHoodie(),
		{Name: "Röd klänning", Color: "röd", Description: "nike hoodie black"},
	}
	for _, q := range queries {
		for _, p := range products {
			s := Score(q, p)
			require.GreaterOrEqual(t, s, 0.0)
			require.LessOrEqual(t, s, 1.0)
			require.Equal(t, s, Score(q, p))
		}
	}
}

func TestApplySortsAndCaps(t *testing.T) {
	q := models.SearchQuery{Query: "hoodie", Limit: 2}
	products := []models.ProductResult{
		{ExternalID: "a", Name: "Socks"},
		{ExternalID: "b", Name: "Hoodie"},
		{ExternalID: "c", Name: "Zip Hoodie", Brand: "Hoodie Co"},
	}

	out := Apply(q, products)
	require.Len(t, out, 2)
	require.Equal(t, "c", out[0].ExternalID)
	require.Equal(t, "b", out[1].ExternalID)
	require.Greater(t, out[0].RelevanceScore, out[1].RelevanceScore)
}
