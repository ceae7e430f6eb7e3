package usecase

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// Token weight categories for scoring
const (
	weightFood        = 3.0 // Core food terms (milk, chicken, bread)
	weightDescriptive = 2.0 // Descriptive terms (whole, skim, organic)
	weightDefault     = 1.0
	fuzzyWeightFactor = 0.8 // Fuzzy matches get 80% of normal weight
)

const (
	exactMatchScore     = 100.0
	substringMatchBonus = 10.0
	brandMatchBonus     = 15.0
)

var foodTerms = map[string]bool{
	"chicken": true, "beef": true, "pork": true, "fish": true, "salmon": true,
	"turkey": true, "tuna": true, "egg": true, "eggs": true, "tofu": true,
	"milk": true, "cheese": true, "yogurt": true, "quark": true, "butter": true, "cream": true,
	"bread": true, "rice": true, "pasta": true, "oats": true, "oatmeal": true, "muesli": true,
	"apple": true, "banana": true, "orange": true, "tomato": true, "potato": true,
	"avocado": true, "broccoli": true, "spinach": true, "beans": true, "lentils": true,
	"juice": true, "coffee": true, "tea": true, "shake": true, "smoothie": true,
	"chocolate": true, "chips": true, "nuts": true, "almonds": true, "peanut": true,
	"pizza": true, "burger": true, "sandwich": true, "soup": true, "salad": true,
}

var descriptiveTerms = map[string]bool{
	"whole": true, "skim": true, "low": true, "fat": true, "lean": true,
	"raw": true, "cooked": true, "grilled": true, "baked": true, "fried": true,
	"roasted": true, "boiled": true, "dried": true, "frozen": true, "fresh": true,
	"plain": true, "vanilla": true, "sweetened": true, "unsweetened": true,
	"protein": true, "light": true, "diet": true, "zero": true, "greek": true,
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "with": true, "for": true,
	"g": true, "kg": true, "ml": true, "oz": true, "lb": true,
	"gram": true, "grams": true, "cup": true, "cups": true, "tbsp": true, "tsp": true,
	"serving": true, "portion": true, "piece": true, "pack": true,
}

// MatchConfig holds configuration for the favorites matcher
type MatchConfig struct {
	MinConfidence       float64
	EnableFuzzyMatching bool
	FuzzyEditDistance   int
}

// FavoritesMatcher matches a query against a user's saved foods.
type FavoritesMatcher struct {
	minConfidence       float64
	enableFuzzyMatching bool
	fuzzyEditDistance   int
	logger              *zap.Logger
}

// NewFavoritesMatcher creates a matcher with the given configuration
func NewFavoritesMatcher(config MatchConfig, logger *zap.Logger) *FavoritesMatcher {
	threshold := config.MinConfidence
	if threshold <= 0 {
		threshold = 60.0
	}

	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &FavoritesMatcher{
		minConfidence:       threshold,
		enableFuzzyMatching: config.EnableFuzzyMatching,
		fuzzyEditDistance:   fuzzyDist,
		logger:              logger,
	}
}

// Match returns the favorites matching q, best first, each with its
// Confidence set. Barcode queries match the code exactly. Text queries
// return exact name matches when there are any, otherwise every favorite
// scoring at or above the configured confidence.
func (m *FavoritesMatcher) Match(ctx context.Context, q domain.Query, favorites []domain.Favorite) []domain.FoodReference {
	if len(favorites) == 0 {
		return nil
	}

	if q.Mode == domain.ModeBarcode {
		var out []domain.FoodReference
		for _, fav := range favorites {
			if fav.Food.Code != "" && fav.Food.Code == q.Text {
				ref := fav.Food
				ref.Confidence = exactMatchScore
				out = append(out, ref)
			}
		}
		return out
	}

	query := normalizeName(q.Text)
	if query == "" {
		return nil
	}

	var exact, fuzzy []domain.FoodReference
	for _, fav := range favorites {
		if ctx.Err() != nil {
			return nil
		}
		ref := fav.Food
		if normalizeName(ref.Name) == query {
			ref.Confidence = exactMatchScore
			exact = append(exact, ref)
			continue
		}

		score, matched := m.calculateMatchScore(q.Text, ref.Name, ref.Brand)
		m.logger.Debug("favorite scored",
			zap.String("query", q.Text),
			zap.String("favorite", ref.Name),
			zap.Float64("score", score),
			zap.Strings("matched", matched),
		)
		if score >= m.minConfidence {
			ref.Confidence = score
			fuzzy = append(fuzzy, ref)
		}
	}

	if len(exact) > 0 {
		return exact
	}
	sort.SliceStable(fuzzy, func(i, j int) bool {
		return fuzzy[i].Confidence > fuzzy[j].Confidence
	})
	return fuzzy
}

// calculateMatchScore computes similarity between a query and a favorite's
// name. The score (0-100) combines:
//   - weighted coverage of the query tokens by the name
//   - coverage of the name tokens by the query
//   - Jaccard similarity
//
// plus bonuses for a brand mention and substring containment.
func (m *FavoritesMatcher) calculateMatchScore(query, name, brand string) (float64, []string) {
	queryTokens := tokenize(query)
	nameTokens := tokenize(name)

	if len(queryTokens) == 0 || len(nameTokens) == 0 {
		return 0, nil
	}

	var totalWeight, matchedWeight float64
	var matchedTokens []string
	for _, qt := range queryTokens {
		w := getTokenWeight(qt)
		totalWeight += w
		if containsToken(nameTokens, qt) {
			matchedWeight += w
			matchedTokens = append(matchedTokens, qt)
			continue
		}
		if m.enableFuzzyMatching {
			for _, nt := range nameTokens {
				if fuzzyTokenMatch(qt, nt, m.fuzzyEditDistance) {
					matchedWeight += w * fuzzyWeightFactor
					matchedTokens = append(matchedTokens, nt)
					break
				}
			}
		}
	}
	queryCoverage := matchedWeight / totalWeight

	nameMatched, _ := findIntersection(nameTokens, queryTokens)
	nameCoverage := float64(nameMatched) / float64(len(nameTokens))

	common, _ := findIntersection(queryTokens, nameTokens)
	jaccard := float64(common) / float64(findUnion(queryTokens, nameTokens))

	score := (queryCoverage*0.60 + nameCoverage*0.20 + jaccard*0.20) * 100

	queryLower := normalizeName(query)
	nameLower := normalizeName(name)

	if brand != "" && strings.Contains(queryLower, strings.ToLower(brand)) {
		score += brandMatchBonus
	}
	if len(queryLower) > 3 && (strings.Contains(nameLower, queryLower) || strings.Contains(queryLower, nameLower)) {
		score += substringMatchBonus
	}

	// An exact name match is the only way to reach 100.
	if score >= exactMatchScore {
		score = exactMatchScore - 1
	}

	return score, matchedTokens
}

// normalizeName lowercases s and collapses punctuation and whitespace.
func normalizeName(s string) string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// tokenize splits a string into normalized lowercase tokens, dropping stop
// words, unit labels and pure numbers.
func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(normalizeName(s)) {
		if len([]rune(word)) <= 1 {
			continue
		}
		if stopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func getTokenWeight(token string) float64 {
	switch {
	case foodTerms[token]:
		return weightFood
	case descriptiveTerms[token]:
		return weightDescriptive
	default:
		return weightDefault
	}
}

func containsToken(tokens []string, t string) bool {
	for _, x := range tokens {
		if x == t {
			return true
		}
	}
	return false
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Short tokens only match exactly
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
