package nlu

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"bookbot/internal/logging"
	"bookbot/internal/types"
)

// =============================================================================
// CONVERSATION CONTEXT
// =============================================================================

const (
	historyCapacity   = 10
	sentimentCapacity = 5
	maxSuggestions    = 5

	// disambiguationFloor gates context-based intent refinement: confident
	// classifications are never second-guessed.
	disambiguationFloor = 0.7
)

// turnRecord is one remembered conversational turn.
type turnRecord struct {
	UserInput string
	Intent    types.Intent
	Sentiment types.Sentiment
	Timestamp time.Time
}

// sessionContext is the bounded per-session conversational memory.
type sessionContext struct {
	sessionID string

	history    *types.Ring[turnRecord]
	sentiments *types.Ring[types.Sentiment]

	preferredCategories []string
	preferredAuthors    []string
	preferredPriceRange *types.PriceRange

	currentTopic string
	lastIntent   types.Intent
}

func newSessionContext(sessionID string) *sessionContext {
	return &sessionContext{
		sessionID:  sessionID,
		history:    types.NewRing[turnRecord](historyCapacity),
		sentiments: types.NewRing[types.Sentiment](sentimentCapacity),
	}
}

// ContextManager owns per-session conversational memory, created lazily on
// first reference and discarded with the session.
type ContextManager struct {
	mu       sync.Mutex
	contexts map[string]*sessionContext
}

// NewContextManager creates an empty context manager.
func NewContextManager() *ContextManager {
	return &ContextManager{contexts: make(map[string]*sessionContext)}
}

func (cm *ContextManager) get(sessionID string) *sessionContext {
	ctx, ok := cm.contexts[sessionID]
	if !ok {
		ctx = newSessionContext(sessionID)
		cm.contexts[sessionID] = ctx
	}
	return ctx
}

// Update records a processed turn: history, sentiment, last intent, current
// topic and inferred preferences.
func (cm *ContextManager) Update(sessionID, userInput string, result *types.IntentResult) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	ctx := cm.get(sessionID)
	ctx.history.Push(turnRecord{
		UserInput: userInput,
		Intent:    result.Intent,
		Sentiment: result.Sentiment,
		Timestamp: time.Now(),
	})
	ctx.lastIntent = result.Intent

	if result.Sentiment != "" {
		ctx.sentiments.Push(result.Sentiment)
	}

	switch result.Intent {
	case types.IntentSearchByCategory, types.IntentSearchByAuthor:
		if result.Params.Category != "" {
			ctx.currentTopic = result.Params.Category
		} else {
			ctx.currentTopic = result.Params.Author
		}
	}

	switch result.Intent {
	case types.IntentSearchByCategory:
		if c := result.Params.Category; c != "" {
			ctx.preferredCategories = appendUnique(ctx.preferredCategories, c)
		}
	case types.IntentSearchByAuthor:
		if a := result.Params.Author; a != "" {
			ctx.preferredAuthors = appendUnique(ctx.preferredAuthors, a)
		}
	case types.IntentSearchByPrice:
		if result.Params.PriceRange != nil {
			ctx.preferredPriceRange = result.Params.PriceRange
		}
	}
}

// affirmative / negative confirmation tokens recognized as order-flow
// follow-ups before the state machine routes by session state.
var (
	affirmTokens = []string{"có", "đồng ý", "ok"}
	negateTokens = []string{"không", "hủy", "cancel"}
)

// Disambiguate refines a low-confidence result using remembered context.
// Applied at most once per utterance, only below the confidence floor and
// only when a previous intent exists.
func (cm *ContextManager) Disambiguate(sessionID string, result *types.IntentResult) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	ctx, ok := cm.contexts[sessionID]
	if !ok || ctx.lastIntent == "" || result.Confidence >= disambiguationFloor {
		return
	}

	lower := strings.ToLower(result.OriginalText)

	switch ctx.lastIntent {
	case types.IntentOrder:
		if containsAny(lower, affirmTokens) || containsAny(lower, negateTokens) {
			logging.NLUDebug("disambiguate %s: %q -> order follow-up", sessionID, result.OriginalText)
			result.Intent = types.IntentOrder
			result.Confidence = 0.9
		}
	case types.IntentSearchByCategory:
		if ctx.currentTopic != "" {
			result.Params.Category = ctx.currentTopic
			result.Confidence = minF(1.0, result.Confidence+0.2)
		}
	}
}

// Suggestions composes up to five follow-up strings from preferences, the
// current intent and the most recent sentiment, in that order.
func (cm *ContextManager) Suggestions(sessionID string, currentIntent types.Intent) []string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	ctx := cm.get(sessionID)
	var out []string

	for i, c := range ctx.preferredCategories {
		if i == 2 {
			break
		}
		out = append(out, fmt.Sprintf("Sách về %s", c))
	}
	for i, a := range ctx.preferredAuthors {
		if i == 2 {
			break
		}
		out = append(out, fmt.Sprintf("Sách của %s", a))
	}

	switch currentIntent {
	case types.IntentSearchByCategory:
		out = append(out, "Gợi ý sách hay", "Giá dưới 100000")
	case types.IntentSearchByAuthor:
		out = append(out, "Thể loại Fiction", "Sách bán chạy")
	case types.IntentQuery:
		out = append(out, "Đặt mua sách này", "Sách tương tự")
	}

	if last, ok := ctx.sentiments.Last(); ok {
		switch last {
		case types.SentimentFrustrated:
			out = append(out, "Hướng dẫn sử dụng", "Liên hệ hỗ trợ")
		case types.SentimentExcited:
			out = append(out, "Đặt mua ngay", "Sách tương tự")
		}
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// Snapshot returns a read-only view of a session's memory for attaching to
// an IntentResult.
func (cm *ContextManager) Snapshot(sessionID string) *types.ContextSnapshot {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	ctx := cm.get(sessionID)
	return &types.ContextSnapshot{
		SessionID:           sessionID,
		PreferredCategories: append([]string(nil), ctx.preferredCategories...),
		PreferredAuthors:    append([]string(nil), ctx.preferredAuthors...),
		CurrentTopic:        ctx.currentTopic,
		LastIntent:          ctx.lastIntent,
	}
}

// Preferences returns the preferred categories and authors for a session.
func (cm *ContextManager) Preferences(sessionID string) (categories, authors []string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	ctx := cm.get(sessionID)
	return append([]string(nil), ctx.preferredCategories...),
		append([]string(nil), ctx.preferredAuthors...)
}

// Clear discards a session's memory.
func (cm *ContextManager) Clear(sessionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.contexts, sessionID)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func containsAny(text string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
