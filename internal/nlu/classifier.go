package nlu

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"bookbot/internal/logging"
	"bookbot/internal/types"
)

// =============================================================================
// INTENT CLASSIFIER
// =============================================================================

// Classifier evaluates the fixed intent pattern table against normalized,
// synonym-expanded text and selects the best-scoring intent. All decisions
// are deterministic given the table, priorities and bonus arithmetic.
type Classifier struct{}

// NewClassifier creates an intent classifier. The pattern table is compiled
// at package init and shared; the struct exists so callers hold an explicit
// service object rather than package state.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify scores every pattern match and returns the winning intent with
// its raw confidence, matched entities and intent-specific parameters.
// Sentiment and context are left unset at this stage.
func (c *Classifier) Classify(text string) *types.IntentResult {
	if text == "" {
		return &types.IntentResult{Intent: types.IntentUnknown, Confidence: 0, OriginalText: text}
	}

	expanded := ExpandSynonyms(Normalize(text))
	textRunes := utf8.RuneCountInString(expanded)

	bestIntent := types.IntentUnknown
	bestAdjusted := 0.0
	bestRaw := 0.0
	var entities []types.ExtractedEntity

	for _, entry := range intentTable {
		priorityBonus := float64(entry.priority) * 0.01
		for _, p := range entry.patterns {
			for _, m := range p.findAll(expanded) {
				confidence := matchConfidence(m, expanded, textRunes)
				adjusted := confidence + priorityBonus
				if adjusted > bestAdjusted {
					bestAdjusted = adjusted
					bestRaw = confidence
					bestIntent = entry.intent
					if !containsEntity(entities, m.value) {
						entities = append(entities, types.ExtractedEntity{
							Value:      m.value,
							Confidence: confidence,
							Start:      utf8.RuneCountInString(expanded[:m.start]),
							End:        utf8.RuneCountInString(expanded[:m.end]),
							Kind:       types.EntityPattern,
						})
					}
				}
			}
		}
	}

	params := extractParameters(expanded, bestIntent)

	logging.NLUDebug("classify %q -> %s (%.3f)", text, bestIntent, bestRaw)

	return &types.IntentResult{
		Intent:       bestIntent,
		Confidence:   bestRaw,
		Entities:     entities,
		Params:       params,
		OriginalText: text,
	}
}

// matchConfidence computes the additive heuristic score of one match.
// Lengths and positions are in runes; byte offsets would inflate diacritic
// text. The exact arithmetic (0.7 base cap, 0.4/0.2/0.1 bonuses) is load
// bearing: downstream thresholds assume it.
func matchConfidence(m patternMatch, text string, textRunes int) float64 {
	matchRunes := utf8.RuneCountInString(m.value)

	base := 0.5
	if textRunes > 0 {
		base = float64(matchRunes) / float64(textRunes) * 2
		if base > 0.7 {
			base = 0.7
		}
	}

	keywordBonus := 0.0
	for _, kw := range salientKeywords {
		if strings.Contains(m.value, kw) {
			keywordBonus = 0.4
			break
		}
	}

	positionBonus := 0.0
	if float64(utf8.RuneCountInString(text[:m.start])) < float64(textRunes)*0.5 {
		positionBonus = 0.2
	}

	lengthBonus := 0.0
	if matchRunes > 10 {
		lengthBonus = 0.1
	}

	confidence := base + keywordBonus + positionBonus + lengthBonus
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func containsEntity(entities []types.ExtractedEntity, value string) bool {
	for _, e := range entities {
		if e.Value == value {
			return true
		}
	}
	return false
}

// =============================================================================
// PARAMETER EXTRACTION
// =============================================================================

var (
	quantityRe     = regexp.MustCompile(`\b(\d+)\b`)
	addressPhoneRe = regexp.MustCompile(`(.+?),\s*(\d{9,11})`)

	// The six-step price ladder. Order is the contract: first hit wins.
	priceRangeQualifiedRe = regexp.MustCompile(`giá\s+từ\s*(\d+)\s*đến\s*(\d+)`)
	priceRangeBareRe      = regexp.MustCompile(`từ\s*(\d+)\s*đến\s*(\d+)`)
	priceSingleQualified  = regexp.MustCompile(`giá\s+(dưới|từ|trên|cao hơn|thấp hơn)\s*(\d+)`)
	priceSingleCurrency   = regexp.MustCompile(`(dưới|từ|trên)\s*(\d+)\s*vnd`)
	priceBareAboveRe      = regexp.MustCompile(`(trên|cao hơn)\s*(\d+)`)
	priceBareBelowRe      = regexp.MustCompile(`(dưới|thấp hơn)\s*(\d+)`)

	authorNameRe   = regexp.MustCompile(`(tác giả|sách của|viết bởi)\s+(` + ws + `+?)(?:\s+(?:có|không)(?:\s|$)|$)`)
	categoryNameRe = regexp.MustCompile(`(sách về|thể loại|loại)\s+(` + ws + `+?)(?:\s+(?:có|những|cuốn|gì)(?:\s|$)|$)`)
)

// extractParameters pulls the intent-specific parameters out of the expanded
// text. Each extraction is independent and best-effort; absence leaves the
// field at its zero value.
func extractParameters(text string, intent types.Intent) types.Parameters {
	var params types.Parameters

	switch intent {
	case types.IntentOrder:
		extractOrderParams(text, &params)
	case types.IntentQuery:
		extractQueryParams(text, &params)
	case types.IntentSearchByPrice, types.IntentRecommendByPrice:
		params.PriceRange = ParsePriceRange(text)
	case types.IntentSearchByAuthor:
		params.Author = extractAuthorName(text)
	case types.IntentSearchByCategory:
		params.Category = extractCategoryName(text)
	}

	return params
}

func extractOrderParams(text string, params *types.Parameters) {
	if m := quantityRe.FindStringSubmatch(text); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil {
			params.Quantity = &qty
		}
	}
	if m := addressPhoneRe.FindStringSubmatch(text); m != nil {
		params.Address = strings.TrimSpace(m[1])
		params.Phone = strings.TrimSpace(m[2])
	}
}

func extractQueryParams(text string, params *types.Parameters) {
	switch {
	case strings.Contains(text, "giá"):
		params.IsPriceOnly = true
	case strings.Contains(text, "có bao nhiêu sách"),
		strings.Contains(text, "có bao nhiêu cuốn"),
		strings.Contains(text, "tồn kho"),
		strings.Contains(text, "còn bao nhiêu"):
		params.IsStockOnly = true
	case strings.Contains(text, "bao nhiêu") && strings.Contains(text, "tiền"):
		params.IsPriceOnly = true
	}
}

// ParsePriceRange walks the price ladder in strict order and returns the
// first hit, or nil when no pattern applies. Nil bounds mean unbounded.
func ParsePriceRange(text string) *types.PriceRange {
	if m := priceRangeQualifiedRe.FindStringSubmatch(text); m != nil {
		return boundedRange(m[1], m[2])
	}
	if m := priceRangeBareRe.FindStringSubmatch(text); m != nil {
		return boundedRange(m[1], m[2])
	}
	if m := priceSingleQualified.FindStringSubmatch(text); m != nil {
		n := mustAtoi(m[2])
		switch m[1] {
		case "dưới", "thấp hơn":
			return &types.PriceRange{Max: &n}
		default: // từ, trên, cao hơn
			return &types.PriceRange{Min: &n}
		}
	}
	if m := priceSingleCurrency.FindStringSubmatch(text); m != nil {
		n := mustAtoi(m[2])
		if m[1] == "dưới" {
			return &types.PriceRange{Max: &n}
		}
		return &types.PriceRange{Min: &n}
	}
	if m := priceBareAboveRe.FindStringSubmatch(text); m != nil {
		n := mustAtoi(m[2])
		return &types.PriceRange{Min: &n}
	}
	if m := priceBareBelowRe.FindStringSubmatch(text); m != nil {
		n := mustAtoi(m[2])
		return &types.PriceRange{Max: &n}
	}
	return nil
}

func boundedRange(minStr, maxStr string) *types.PriceRange {
	lo, hi := mustAtoi(minStr), mustAtoi(maxStr)
	return &types.PriceRange{Min: &lo, Max: &hi}
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// extractAuthorName finds the name after an author keyword, bounded by a
// following stop word or end of text. Without a keyword it falls back to the
// tokenized tail, trimming a leading generic noun. The fallback can misfire
// on short input; that behavior is intentional and observable.
func extractAuthorName(text string) string {
	if m := authorNameRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[2])
	}

	words := strings.Fields(text)
	if len(words) <= 1 {
		return ""
	}
	switch words[0] {
	case "sách", "cuốn", "quyển":
		words = words[1:]
	}
	if len(words) >= 1 {
		return strings.Join(words, " ")
	}
	return ""
}

// extractCategoryName is the category analogue: keyword-bounded regex with a
// last-two-tokens fallback.
func extractCategoryName(text string) string {
	if m := categoryNameRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[2])
	}

	words := strings.Fields(text)
	if len(words) > 1 {
		return strings.Join(words[len(words)-2:], " ")
	}
	return ""
}
