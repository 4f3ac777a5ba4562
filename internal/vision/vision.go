// Package vision turns an outfit photo into search queries through a multimodal
// model. Failures are returned to the caller as-is.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
)

// IdentifiedItem is one garment or accessory recognised in an image.
type IdentifiedItem struct {
	ItemType       string   `json:"item_type"`
	Description    string   `json:"description"`
	BrandGuess     string   `json:"brand_guess,omitempty"`
	Color          string   `json:"color"`
	Pattern        string   `json:"pattern,omitempty"`
	MaterialGuess  string   `json:"material_guess,omitempty"`
	StyleTags      []string `json:"style_tags"`
	Confidence     float64  `json:"confidence"`
	SearchKeywords []string `json:"search_keywords"`
}

type OutfitAnalysis struct {
	Items        []IdentifiedItem `json:"items"`
	OverallStyle string           `json:"overall_style"`
	Occasion     string           `json:"occasion,omitempty"`
	Season       string           `json:"season,omitempty"`
	Gender       string           `json:"gender,omitempty"`
	AgeGroup     string           `json:"age_group,omitempty"`
}

type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*OutfitAnalysis, error)
}

var ErrEmptyResponse = errors.New("model returned an empty response")

// New builds the analyzer of the named provider: "gemini" or "openai".
func New(ctx context.Context, provider, apiKey, model string) (Analyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key is not configured", provider)
	}
	switch strings.ToLower(provider) {
	case "gemini", "":
		return NewGemini(ctx, apiKey, model)
	case "openai":
		return NewOpenAI(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", provider)
	}
}

// ParseResponse decodes the model's JSON answer, which may arrive wrapped in a
// markdown code fence.
func ParseResponse(raw string) (*OutfitAnalysis, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil, ErrEmptyResponse
	}
	if i := strings.Index(body, "```json"); i >= 0 {
		body = body[i+len("```json"):]
	} else if i := strings.Index(body, "```"); i >= 0 {
		body = body[i+3:]
	}
	if i := strings.Index(body, "```"); i >= 0 {
		body = body[:i]
	}

	var a OutfitAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	for i := range a.Items {
		it := &a.Items[i]
		if it.ItemType == "" {
			it.ItemType = "unknown"
		}
		if it.Color == "" {
			it.Color = "unknown"
		}
		if it.Confidence == 0 {
			it.Confidence = 0.8
		}
	}
	return &a, nil
}

// PrimaryColor returns the first colour of "navy/white" style values, or "" for
// unknown and multicoloured items.
func PrimaryColor(color string) string {
	switch strings.ToLower(strings.TrimSpace(color)) {
	case "", "unknown", "multi", "multicolor":
		return ""
	}
	c, _, _ := strings.Cut(color, "/")
	c, _, _ = strings.Cut(c, ",")
	return strings.TrimSpace(c)
}

// GenerateSearchQuery joins brand, item type and primary colour.
func GenerateSearchQuery(item IdentifiedItem) string {
	var parts []string
	if item.BrandGuess != "" {
		parts = append(parts, item.BrandGuess)
	}
	if item.ItemType != "" {
		parts = append(parts, item.ItemType)
	}
	if c := PrimaryColor(item.Color); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, " ")
}

func ToSearchQuery(item IdentifiedItem, limit int) models.SearchQuery {
	return models.SearchQuery{
		Query:     GenerateSearchQuery(item),
		Category:  item.ItemType,
		Brand:     item.BrandGuess,
		Color:     PrimaryColor(item.Color),
		StyleTags: item.StyleTags,
		Limit:     limit,
	}
}

// MimeType guesses the image type from a file name, defaulting to JPEG.
func MimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

const Prompt = `Analyze this fashion image and identify all visible clothing items and accessories.

For EACH item, provide:
1. item_type: Category (jacket, coat, blazer, shirt, t-shirt, sweater, hoodie, pants, jeans, shorts, skirt, dress, shoes, sneakers, boots, bag, hat, scarf, watch, jewelry, belt, sunglasses, etc.)
2. description: Detailed description (e.g., "Oversized beige wool coat with notch lapels")
3. brand_guess: Your best guess at the brand based on style, logos, or distinctive features (null if unsure)
4. color: Primary color(s) (e.g., "navy blue", "cream/beige")
5. pattern: Pattern type (solid, striped, plaid, floral, graphic, etc.)
6. material_guess: Likely material (cotton, wool, leather, denim, etc.)
7. style_tags: List of style descriptors (e.g., ["minimalist", "scandinavian", "oversized", "casual"])
8. confidence: Your confidence in the identification (0.0-1.0)
9. search_keywords: 3-5 keywords that would help find this item online

Also provide overall_style, occasion, season, gender (men, women, unisex) and age_group (kids, teens, young adults, adults).

Return valid JSON only:
{
  "items": [{"item_type": "...", "description": "...", "brand_guess": "...", "color": "...", "pattern": "...",
             "material_guess": "...", "style_tags": ["..."], "confidence": 0.9, "search_keywords": ["..."]}],
  "overall_style": "...", "occasion": "...", "season": "...", "gender": "...", "age_group": "..."
}

Try hard to name the specific brand and model of each item from logos, tags, hardware and design signatures.
Give your best guess with a matching confidence rather than leaving the brand empty, and include partially
visible items with lower confidence.`
