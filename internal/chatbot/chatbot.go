// Package chatbot orchestrates one conversation turn: it routes input either
// into the in-progress order flow or through the understanding pipeline, and
// renders the Vietnamese response for the presentation layer.
package chatbot

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"bookbot/internal/logging"
	"bookbot/internal/nlu"
	"bookbot/internal/session"
	"bookbot/internal/types"
)

// Store is the catalog/order persistence the bot depends on.
type Store interface {
	AllBooks() ([]types.Book, error)
	SearchBooks(query string) ([]types.Book, error)
	BooksByAuthor(author string) ([]types.Book, error)
	BooksByCategory(category string) ([]types.Book, error)
	BooksByPriceRange(min, max *int) ([]types.Book, error)
	AllCategories() ([]string, error)
	CreateOrder(order types.Order) error
}

// Bot wires the store, the understanding pipeline and the session layer into
// the turn loop.
type Bot struct {
	store     Store
	processor *nlu.Processor
	sessions  *session.Manager
	flow      *session.Flow

	// Injection points for deterministic tests.
	randInt func(n int) int
	perm    func(n int) []int
}

// New creates a bot over its collaborators and primes the extraction
// indices from the current catalog.
func New(store Store, processor *nlu.Processor, sessions *session.Manager) *Bot {
	b := &Bot{
		store:     store,
		processor: processor,
		sessions:  sessions,
		flow:      session.NewFlow(sessions),
		randInt:   rand.Intn,
		perm:      rand.Perm,
	}
	if err := b.RefreshCatalog(); err != nil {
		logging.Dialog("initial catalog refresh failed: %v", err)
	}
	return b
}

// RefreshCatalog rebuilds the fuzzy extraction indices from the store.
func (b *Bot) RefreshCatalog() error {
	books, err := b.store.AllBooks()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	b.processor.UpdateBooks(books)
	return nil
}

// reply is the handler-internal response shape before session envelope.
type reply struct {
	message     string
	intent      string
	data        map[string]interface{}
	suggestions []string
}

// ProcessMessage handles one user turn. An empty session id starts a new
// session; a dead one returns session.ErrSessionNotFound.
func (b *Bot) ProcessMessage(input, sessionID string) (*types.Response, error) {
	if sessionID == "" {
		sessionID = b.sessions.Create("")
	}
	if !b.sessions.Exists(sessionID) {
		return nil, fmt.Errorf("process message: %w", session.ErrSessionNotFound)
	}

	if err := b.sessions.AddMessage(sessionID, "user", input, nil); err != nil {
		return nil, err
	}

	state, err := b.sessions.OrderState(sessionID)
	if err != nil {
		return nil, err
	}

	var r reply
	if state.InFlow() {
		r = b.handleOrderFlow(input, sessionID, state)
	} else {
		r = b.handleConversation(input, sessionID)
	}
	if r.message == "" {
		logging.Dialog("empty handler message for intent %s", r.intent)
		r.message = "Xin lỗi, có lỗi xảy ra trong quá trình xử lý."
	}

	if err := b.sessions.AddMessage(sessionID, "assistant", r.message, nil); err != nil {
		return nil, err
	}

	return &types.Response{
		SessionID:   sessionID,
		Message:     r.message,
		Intent:      r.intent,
		Data:        r.data,
		Suggestions: r.suggestions,
	}, nil
}

// =============================================================================
// ORDER FLOW ROUTING
// =============================================================================

var (
	confirmWords = []string{"có", "yes", "đồng ý", "ok", "xác nhận"}
	cancelWords  = []string{"không", "no", "huỷ", "hủy", "cancel"}
)

func (b *Bot) handleOrderFlow(input, sessionID string, state types.OrderState) reply {
	switch state {
	case types.OrderStateWaitingQuantity:
		return b.handleQuantityInput(input, sessionID)
	case types.OrderStateWaitingAddrPhone:
		return b.handleAddressPhoneInput(input, sessionID)
	case types.OrderStateConfirming:
		return b.handleOrderConfirmation(input, sessionID)
	default:
		// Stuck mid-processing; reset and treat the turn normally.
		if err := b.sessions.ClearDraft(sessionID); err != nil {
			return b.failure(err)
		}
		return b.handleConversation(input, sessionID)
	}
}

func (b *Bot) handleQuantityInput(input, sessionID string) reply {
	qty, ok := b.processor.Extractor().ExtractQuantity(input)
	if !ok || qty <= 0 {
		return reply{
			message: "Vui lòng nhập số lượng hợp lệ (ví dụ: '2').",
			intent:  "order_quantity_error",
		}
	}

	res, err := b.flow.ProcessQuantity(sessionID, qty)
	if err != nil {
		return b.failure(err)
	}
	return reply{message: res.Message, intent: "order_quantity", data: draftData(res.Draft)}
}

func (b *Bot) handleAddressPhoneInput(input, sessionID string) reply {
	phone, phoneOK := b.processor.Extractor().ExtractPhone(input)
	address, addrOK := b.processor.Extractor().ExtractAddress(input)
	if !phoneOK || !addrOK {
		return reply{
			message: "Vui lòng nhập địa chỉ và số điện thoại hợp lệ (ví dụ: '123 Hà Nội, 0987654321').",
			intent:  "order_address_phone_error",
		}
	}

	res, err := b.flow.ProcessAddressPhone(sessionID, address, phone)
	if err != nil {
		return b.failure(err)
	}
	if !res.OK {
		return reply{message: res.Message, intent: "order_address_phone_error"}
	}
	return reply{message: res.Message, intent: "order_address_phone", data: draftData(res.Draft)}
}

func (b *Bot) handleOrderConfirmation(input, sessionID string) reply {
	lower := strings.ToLower(input)

	switch {
	case containsAny(lower, confirmWords):
		res, err := b.flow.Confirm(sessionID, true)
		if err != nil {
			return b.failure(err)
		}
		if res.Action == session.ActionCommit {
			return b.commitOrder(sessionID)
		}
		return reply{message: res.Message, intent: "order_confirmed"}

	case containsAny(lower, cancelWords):
		res, err := b.flow.Confirm(sessionID, false)
		if err != nil {
			return b.failure(err)
		}
		return reply{message: res.Message, intent: "order_cancelled"}

	default:
		return reply{
			message: "Vui lòng trả lời 'có' để xác nhận hoặc 'không' để hủy.",
			intent:  "order_confirmation_error",
		}
	}
}

// commitOrder persists the confirmed draft and completes the flow either
// way, so the session never sticks in the processing state.
func (b *Bot) commitOrder(sessionID string) reply {
	draft, err := b.sessions.Draft(sessionID)
	if err != nil {
		return b.failure(err)
	}
	if draft == nil {
		res, _ := b.flow.Complete(sessionID, false, "Không tìm thấy thông tin đơn hàng.")
		return reply{message: res.Message, intent: "order_failed"}
	}

	order := types.Order{
		ID:           b.newOrderID(),
		CustomerName: draft.CustomerName,
		Phone:        draft.Phone,
		Address:      draft.Address,
		BookID:       draft.BookID,
		Quantity:     draft.Quantity,
		Status:       "Pending",
		TotalPrice:   draft.TotalPrice,
	}

	if err := b.store.CreateOrder(order); err != nil {
		logging.Dialog("order commit failed: %v", err)
		res, ferr := b.flow.Complete(sessionID, false, "Không thể tạo đơn hàng. Vui lòng kiểm tra lại thông tin.")
		if ferr != nil {
			return b.failure(ferr)
		}
		return reply{message: res.Message, intent: "order_failed"}
	}

	msg := fmt.Sprintf("Đơn hàng %s đã được tạo thành công! Tổng tiền: %s",
		order.ID, session.FormatCurrency(order.TotalPrice))
	res, err := b.flow.Complete(sessionID, true, msg)
	if err != nil {
		return b.failure(err)
	}
	return reply{
		message: res.Message,
		intent:  "order_completed",
		data: map[string]interface{}{
			"order_id":    order.ID,
			"total_price": order.TotalPrice,
			"status":      order.Status,
		},
	}
}

func (b *Bot) newOrderID() string {
	return fmt.Sprintf("ORD_%s_%d", time.Now().Format("20060102_150405"), 1000+b.randInt(9000))
}

// =============================================================================
// CONVERSATION ROUTING
// =============================================================================

func (b *Bot) handleConversation(input, sessionID string) reply {
	result := b.processor.Process(input, sessionID)
	logging.Dialog("intent=%s confidence=%.2f session=%s", result.Intent, result.Confidence, sessionID)

	switch result.Intent {
	case types.IntentOrder:
		return b.handleOrderIntent(result, sessionID)
	case types.IntentQuery:
		return b.handleQuery(result)
	case types.IntentSearchByTitle:
		return b.handleSearchByTitle(result)
	case types.IntentSearchByAuthor:
		return b.handleSearchByAuthor(result)
	case types.IntentSearchByCategory:
		return b.handleSearchByCategory(result)
	case types.IntentSearchByPrice:
		return b.handleSearchByPrice(result)
	case types.IntentRecommend:
		return b.handleRecommend(result)
	case types.IntentRecommendByPrice:
		return b.handleRecommendByPrice(result)
	case types.IntentListCategories:
		return b.handleListCategories(result)
	case types.IntentCheckStock:
		return b.handleCheckStock(result)
	case types.IntentGreeting:
		return b.handleGreeting(result)
	case types.IntentGoodbye:
		return b.handleGoodbye(result)
	case types.IntentHelp:
		return b.handleHelp(result)
	default:
		return b.handleUnknown(result)
	}
}

// =============================================================================
// SESSION INTROSPECTION
// =============================================================================

// SessionInfo exposes a session snapshot for the presentation layer.
func (b *Bot) SessionInfo(sessionID string) (session.Info, error) {
	return b.sessions.Get(sessionID)
}

// failure converts an internal error into the generic apology turn.
func (b *Bot) failure(err error) reply {
	logging.Dialog("turn failed: %v", err)
	return reply{
		message: "Xin lỗi, có lỗi xảy ra. Vui lòng thử lại.",
		intent:  "error",
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func draftData(d *types.OrderDraft) map[string]interface{} {
	if d == nil {
		return nil
	}
	return map[string]interface{}{
		"book_id":     d.BookID,
		"book_title":  d.BookTitle,
		"quantity":    d.Quantity,
		"total_price": d.TotalPrice,
	}
}
