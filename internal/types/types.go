// Package types provides shared type definitions used across bookbot packages.
// This package exists to break import cycles between nlu, session, store and
// chatbot. Types in this package are foundational data structures with no
// complex dependencies.
package types

import "time"

// =============================================================================
// INTENT
// =============================================================================

// Intent is the closed-set classification of a user turn's purpose.
type Intent string

const (
	IntentOrder            Intent = "order"
	IntentQuery            Intent = "query"
	IntentSearchByTitle    Intent = "search_by_title"
	IntentSearchByAuthor   Intent = "search_by_author"
	IntentSearchByCategory Intent = "search_by_category"
	IntentSearchByPrice    Intent = "search_by_price"
	IntentRecommend        Intent = "recommend"
	IntentRecommendByPrice Intent = "recommend_by_price"
	IntentListCategories   Intent = "list_categories"
	IntentCheckStock       Intent = "check_stock"
	IntentGreeting         Intent = "greeting"
	IntentGoodbye          Intent = "goodbye"
	IntentHelp             Intent = "help"
	IntentUnknown          Intent = "unknown"
)

// String implements fmt.Stringer.
func (i Intent) String() string { return string(i) }

// =============================================================================
// SENTIMENT
// =============================================================================

// Sentiment is the per-utterance emotional tag.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNegative   Sentiment = "negative"
	SentimentNeutral    Sentiment = "neutral"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentExcited    Sentiment = "excited"
)

// String implements fmt.Stringer.
func (s Sentiment) String() string { return string(s) }

// =============================================================================
// ORDER STATE
// =============================================================================

// OrderState enumerates the purchase dialogue state machine.
// NONE is both the initial state and the resting state between transactions;
// ORDER_COMPLETED / ORDER_CANCELLED are terminal for a single transaction.
type OrderState string

const (
	OrderStateNone             OrderState = "none"
	OrderStateWaitingQuantity  OrderState = "waiting_quantity"
	OrderStateWaitingAddrPhone OrderState = "waiting_address_phone"
	OrderStateConfirming       OrderState = "confirming_order"
	OrderStateProcessing       OrderState = "processing_order"
	OrderStateCompleted        OrderState = "order_completed"
	OrderStateCancelled        OrderState = "order_cancelled"
)

// String implements fmt.Stringer.
func (s OrderState) String() string { return string(s) }

// InFlow reports whether the state expects flow-internal input.
// Terminal and resting states route through the normal pipeline instead.
func (s OrderState) InFlow() bool {
	switch s {
	case OrderStateWaitingQuantity, OrderStateWaitingAddrPhone, OrderStateConfirming, OrderStateProcessing:
		return true
	default:
		return false
	}
}

// =============================================================================
// CATALOG RECORDS
// =============================================================================

// Book is a single catalog record as returned by the store collaborator.
type Book struct {
	ID            string
	Title         string
	Author        string
	Category      string
	Price         int
	Stock         int
	ISBN          string
	Description   string
	Rating        float64
	PublishedYear int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Order is a persisted purchase record.
type Order struct {
	ID           string
	CustomerName string
	Phone        string
	Address      string
	BookID       string
	Quantity     int
	Status       string
	TotalPrice   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderDraft is the mutable in-progress record of a purchase being
// negotiated across turns. It exists only while the session's order
// state is not NONE. Invariant: TotalPrice == UnitPrice * Quantity
// immediately after any quantity or price mutation.
type OrderDraft struct {
	BookID       string
	BookTitle    string
	UnitPrice    int
	Quantity     int
	CustomerName string
	Phone        string
	Address      string
	TotalPrice   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// UNDERSTANDING RESULTS
// =============================================================================

// EntityKind tags what an extracted substring denotes.
type EntityKind string

const (
	EntityBookTitle EntityKind = "book_title"
	EntityAuthor    EntityKind = "author"
	EntityCategory  EntityKind = "category"
	EntityQuantity  EntityKind = "quantity"
	EntityPhone     EntityKind = "phone"
	EntityAddress   EntityKind = "address"
	EntityPattern   EntityKind = "pattern"
)

// ExtractedEntity is a substring of the utterance tagged with a semantic
// kind and a 0-1 confidence. Immutable after creation.
type ExtractedEntity struct {
	Value      string
	Confidence float64
	Start      int
	End        int
	Kind       EntityKind
}

// PriceRange is a half-open price filter. A nil bound means unbounded
// on that side.
type PriceRange struct {
	Min *int
	Max *int
}

// Parameters is the closed set of per-intent extraction results.
// Absent values stay at their zero value (or nil for pointers); handlers
// check presence explicitly instead of probing an untyped map.
type Parameters struct {
	BookTitle   string
	Author      string
	Category    string
	Quantity    *int
	Phone       string
	Address     string
	PriceRange  *PriceRange
	IsPriceOnly bool
	IsStockOnly bool
}

// ContextSnapshot is the read-only view of conversational memory attached
// to an IntentResult after context update.
type ContextSnapshot struct {
	SessionID           string
	PreferredCategories []string
	PreferredAuthors    []string
	CurrentTopic        string
	LastIntent          Intent
	Suggestions         []string
}

// IntentResult is the outcome of classifying one utterance. It is created
// once per utterance and may be adjusted exactly once by the context
// manager's disambiguation step before handlers see it.
type IntentResult struct {
	Intent       Intent
	Confidence   float64
	Entities     []ExtractedEntity
	Params       Parameters
	OriginalText string
	Sentiment    Sentiment
	Context      *ContextSnapshot
}

// =============================================================================
// RESPONSE
// =============================================================================

// Response is the contract exposed to the presentation layer for one turn.
// Data carries handler-specific payload rows (books, categories, order info)
// for callers that render richer views than plain text.
type Response struct {
	SessionID   string
	Message     string
	Intent      string
	Data        map[string]interface{}
	Suggestions []string
}
