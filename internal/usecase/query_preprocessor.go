package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// QueryPreprocessor strips quantities and noise from free-text food queries
// before they are sent to a structured database.
type QueryPreprocessor struct {
	logger *zap.Logger
}

var (
	// Quantities like "200g", "1.5 l", "2 cups", "3 EL", "12 oz"
	quantityPattern = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:fl\s*oz|oz|ounces?|lbs?|pounds?|kg|g|grams?|gramm|mg|ml|l|liters?|litres?|cups?|tbsp|tsp|el|tl|st(?:ü|ue)ck|pieces?|pcs|slices?|servings?|portions?)\b`)

	// Pack counts like "6 pack", "pack of 6", "6-pack", "12 ct"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+[-\s]*(?:pack|pk|count|ct|x)\b|\bpack\s*of\s*\d+\b`)

	// Leading counts like "2 eggs" or "1/2 avocado"
	leadingCountPattern = regexp.MustCompile(`^\s*\d+(?:[.,/]\d+)?\s+`)

	orphanPunctuationPattern   = regexp.MustCompile(`\s+[,\-;:]+\s+`)
	trailingPunctuationPattern = regexp.MustCompile(`[,\-;:]+\s*$`)
	leadingPunctuationPattern  = regexp.MustCompile(`^\s*[,\-;:]+`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

const maxQueryLength = 100

// queryNoiseWords are dropped from queries
var queryNoiseWords = map[string]bool{
	"value": true, "family": true, "bonus": true, "new": true, "premium": true,
	"delicious": true, "tasty": true, "homemade": true, "some": true, "about": true,
	"approx": true, "ca": true, "large": true, "medium": true, "small": true,
	"a": true, "an": true, "of": true, "bowl": true, "glass": true, "plate": true,
	"package": true, "box": true, "bag": true, "bottle": true, "can": true, "jar": true,
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(logger *zap.Logger) *QueryPreprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryPreprocessor{logger: logger}
}

// Preprocess lowercases text and removes quantities, pack counts and noise
// words. When cleaning would leave nothing, the lowercased input is
// returned instead.
func (p *QueryPreprocessor) Preprocess(text string) string {
	original := strings.ToLower(strings.TrimSpace(text))
	if original == "" {
		return ""
	}

	cleaned := quantityPattern.ReplaceAllString(original, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = leadingCountPattern.ReplaceAllString(cleaned, "")
	cleaned = removeNoiseWords(cleaned)
	cleaned = cleanOrphanedPunctuation(cleaned)
	cleaned = strings.TrimSpace(multiSpacePattern.ReplaceAllString(cleaned, " "))

	if len(cleaned) > maxQueryLength {
		cleaned = cleaned[:maxQueryLength]
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	if cleaned == "" {
		cleaned = original
	}

	p.logger.Debug("query preprocessed", zap.String("input", text), zap.String("output", cleaned))
	return cleaned
}

func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if !queryNoiseWords[strings.Trim(word, ",.!?;:-'\"")] {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

// cleanOrphanedPunctuation removes punctuation left alone after stripping
func cleanOrphanedPunctuation(s string) string {
	result := orphanPunctuationPattern.ReplaceAllString(s, " ")
	result = trailingPunctuationPattern.ReplaceAllString(result, "")
	return leadingPunctuationPattern.ReplaceAllString(result, "")
}
