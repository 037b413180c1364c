package nlu

import (
	"strconv"
	"unicode/utf8"

	"bookbot/internal/logging"
	"bookbot/internal/types"
)

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor is the full understanding pipeline for one utterance: sentiment
// tagging, intent classification, context-based disambiguation, catalog
// entity extraction and parameter merge. One instance serves all sessions.
type Processor struct {
	classifier *Classifier
	extractor  *Extractor
	contexts   *ContextManager
}

// NewProcessor builds the pipeline over a catalog snapshot. Thresholds at or
// below zero use the defaults.
func NewProcessor(books []types.Book, fuzzyThreshold, titleThreshold int) *Processor {
	return &Processor{
		classifier: NewClassifier(),
		extractor:  NewExtractor(books, fuzzyThreshold, titleThreshold),
		contexts:   NewContextManager(),
	}
}

// UpdateBooks rebuilds the extractor indices from a fresh catalog snapshot.
// Safe to call while utterances are being processed.
func (p *Processor) UpdateBooks(books []types.Book) {
	p.extractor.Rebuild(books)
}

// Process runs the pipeline for one utterance. An empty session id skips all
// context handling; the result then carries no context snapshot.
func (p *Processor) Process(text, sessionID string) *types.IntentResult {
	if text == "" {
		return &types.IntentResult{Intent: types.IntentUnknown, Confidence: 0, OriginalText: text}
	}

	timer := logging.StartTimer(logging.CategoryNLU, "process")
	defer timer.Stop()

	sentiment := ClassifySentiment(text)

	result := p.classifier.Classify(text)
	result.Sentiment = sentiment

	if sessionID != "" {
		p.contexts.Disambiguate(sessionID, result)
	}

	p.attachCatalogEntities(text, result)
	p.mergeEntityParams(result)

	if sessionID != "" {
		p.contexts.Update(sessionID, text, result)
		snapshot := p.contexts.Snapshot(sessionID)
		snapshot.Suggestions = p.contexts.Suggestions(sessionID, result.Intent)
		result.Context = snapshot
	}

	return result
}

// Suggestions exposes context-driven follow-up strings for a session.
func (p *Processor) Suggestions(sessionID string, intent types.Intent) []string {
	return p.contexts.Suggestions(sessionID, intent)
}

// Preferences exposes a session's accumulated preferences.
func (p *Processor) Preferences(sessionID string) (categories, authors []string) {
	return p.contexts.Preferences(sessionID)
}

// ClearContext discards a session's conversational memory.
func (p *Processor) ClearContext(sessionID string) {
	p.contexts.Clear(sessionID)
}

// Extractor exposes the catalog extractor for flow-internal turns that need
// quantity/phone/address parsing without full classification.
func (p *Processor) Extractor() *Extractor {
	return p.extractor
}

// attachCatalogEntities adds intent-conditioned fuzzy extractions on top of
// the classifier's pattern entities. Raw text is used here: normalization
// would strip the punctuation some titles carry.
func (p *Processor) attachCatalogEntities(text string, result *types.IntentResult) {
	add := func(kind types.EntityKind, value string, confidence float64) {
		result.Entities = append(result.Entities, types.ExtractedEntity{
			Value:      value,
			Confidence: confidence,
			Start:      0,
			End:        utf8.RuneCountInString(value),
			Kind:       kind,
		})
	}

	switch result.Intent {
	case types.IntentOrder, types.IntentQuery, types.IntentSearchByTitle:
		if title, ok := p.extractor.ExtractTitle(text); ok {
			add(types.EntityBookTitle, title, 0.9)
		}
	}

	switch result.Intent {
	case types.IntentSearchByAuthor:
		if author, ok := p.extractor.ExtractAuthor(text); ok {
			add(types.EntityAuthor, author, 0.9)
		}
	case types.IntentSearchByCategory:
		if category, ok := p.extractor.ExtractCategory(text); ok {
			add(types.EntityCategory, category, 0.9)
		}
	case types.IntentOrder:
		if qty, ok := p.extractor.ExtractQuantity(text); ok {
			add(types.EntityQuantity, strconv.Itoa(qty), 0.8)
		}
		if phone, ok := p.extractor.ExtractPhone(text); ok {
			add(types.EntityPhone, phone, 0.9)
		}
		if address, ok := p.extractor.ExtractAddress(text); ok {
			add(types.EntityAddress, address, 0.7)
		}
	}
}

// mergeEntityParams folds extracted entities into the result parameters.
// Entity-derived values win over pattern-derived ones.
func (p *Processor) mergeEntityParams(result *types.IntentResult) {
	for _, e := range result.Entities {
		switch e.Kind {
		case types.EntityBookTitle:
			result.Params.BookTitle = e.Value
		case types.EntityQuantity:
			if qty, err := strconv.Atoi(e.Value); err == nil {
				result.Params.Quantity = &qty
			}
		case types.EntityPhone:
			result.Params.Phone = e.Value
		case types.EntityAddress:
			result.Params.Address = e.Value
		}
	}
}
