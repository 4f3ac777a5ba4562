package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const fenced = "Here you go:\n```json\n" + `{
  "items": [
    {"item_type": "hoodie", "description": "Grey fleece hoodie", "brand_guess": "Nike",
     "color": "grey/black", "style_tags": ["sporty"], "confidence": 0.9, "search_keywords": ["nike", "tech fleece"]},
    {"item_type": "", "color": "multicolor"}
  ],
  "overall_style": "streetwear",
  "gender": "men"
}` + "\n```\nEnjoy!"

func TestParseResponseFenced(t *testing.T) {
	a, err := ParseResponse(fenced)
	require.NoError(t, err)
	require.Len(t, a.Items, 2)
	require.Equal(t, "streetwear", a.OverallStyle)
	require.Equal(t, "Nike", a.Items[0].BrandGuess)
	require.Equal(t, "unknown", a.Items[1].ItemType)
	require.Equal(t, 0.8, a.Items[1].Confidence)
}

func TestParseResponsePlainAndBroken(t *testing.T) {
	a, err := ParseResponse(`{"items": [], "overall_style": "minimal"}`)
	require.NoError(t, err)
	require.Empty(t, a.Items)

	_, err = ParseResponse("```\nnot json\n```")
	require.Error(t, err)

	_, err = ParseResponse("  ")
	require.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestSearchQueries(t *testing.T) {
	item := IdentifiedItem{ItemType: "hoodie", BrandGuess: "Nike", Color: "grey/black, white", StyleTags: []string{"sporty"}}
	require.Equal(t, "Nike hoodie grey", GenerateSearchQuery(item))

	q := ToSearchQuery(item, 5)
	require.Equal(t, "hoodie", q.Category)
	require.Equal(t, "Nike", q.Brand)
	require.Equal(t, "grey", q.Color)
	require.Equal(t, 5, q.Limit)

	require.Equal(t, "jacket", GenerateSearchQuery(IdentifiedItem{ItemType: "jacket", Color: "Multicolor"}))
	require.Empty(t, PrimaryColor("unknown"))
}

func TestNewRequiresKeyAndKnownProvider(t *testing.T) {
	_, err := New(context.Background(), "openai", "", "")
	require.Error(t, err)
	_, err = New(context.Background(), "claude", "key", "")
	require.Error(t, err)

	a, err := New(context.Background(), "openai", "key", "")
	require.NoError(t, err)
	require.IsType(t, &OpenAIAnalyzer{}, a)
}

func TestMimeType(t *testing.T) {
	require.Equal(t, "image/png", MimeType("look.PNG"))
	require.Equal(t, "image/jpeg", MimeType("look"))
}
