package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bookbot/internal/logging"
	"bookbot/internal/types"
)

// ErrInvalidState is returned when a flow step is invoked from a state that
// does not accept it. The orchestrator routes by state, so hitting this
// indicates a programming error rather than bad user input.
var ErrInvalidState = errors.New("invalid order flow state")

// =============================================================================
// ORDER FLOW
// =============================================================================

// FlowAction tells the orchestrator what to do after a flow step.
type FlowAction string

const (
	ActionNone       FlowAction = ""
	ActionCommit     FlowAction = "commit_order" // persist the draft to the store
	ActionCancelled  FlowAction = "order_cancelled"
	ActionCompleted  FlowAction = "order_completed"
	ActionFailed     FlowAction = "order_failed"
	ActionRetryInput FlowAction = "retry_input"
)

// FlowResult is the outcome of one flow step: a user-facing message, an
// optional orchestrator action, and the draft as it stands.
type FlowResult struct {
	OK      bool
	Message string
	Action  FlowAction
	Draft   *types.OrderDraft
}

// Flow drives the multi-turn purchase dialogue:
//
//	NONE -> WAITING_QUANTITY -> WAITING_ADDRESS_PHONE -> CONFIRMING_ORDER
//	     -> PROCESSING_ORDER -> ORDER_COMPLETED | ORDER_CANCELLED
//
// Invalid input re-prompts without mutating state or draft; the flow never
// advances on malformed input.
type Flow struct {
	sessions *Manager
}

// NewFlow creates an order flow over the given session manager.
func NewFlow(sessions *Manager) *Flow {
	return &Flow{sessions: sessions}
}

// Start begins a purchase for a book. Valid from the resting and terminal
// states; a new order resets any finished one.
func (f *Flow) Start(sessionID string, book types.Book) (FlowResult, error) {
	state, err := f.sessions.OrderState(sessionID)
	if err != nil {
		return FlowResult{}, err
	}
	if state.InFlow() {
		return FlowResult{}, fmt.Errorf("%w: start from %s", ErrInvalidState, state)
	}

	now := time.Now()
	draft := &types.OrderDraft{
		BookID:       book.ID,
		BookTitle:    book.Title,
		UnitPrice:    book.Price,
		Quantity:     1,
		CustomerName: "Khách hàng",
		TotalPrice:   book.Price,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.sessions.SetDraft(sessionID, draft); err != nil {
		return FlowResult{}, err
	}
	if err := f.sessions.SetOrderState(sessionID, types.OrderStateWaitingQuantity); err != nil {
		return FlowResult{}, err
	}

	logging.Session("order flow started: session=%s book=%s", sessionID, book.ID)
	return FlowResult{
		OK: true,
		Message: fmt.Sprintf("Sách '%s' giá %s. Vui lòng nhập số lượng.",
			book.Title, FormatCurrency(book.Price)),
		Draft: draft,
	}, nil
}

// ProcessQuantity sets the draft quantity and recomputes the total. A
// non-positive quantity re-prompts without any transition.
func (f *Flow) ProcessQuantity(sessionID string, quantity int) (FlowResult, error) {
	if err := f.requireState(sessionID, types.OrderStateWaitingQuantity); err != nil {
		return FlowResult{}, err
	}

	if quantity <= 0 {
		return FlowResult{
			Message: "Số lượng không hợp lệ. Vui lòng nhập một số lớn hơn 0 (ví dụ: 2).",
			Action:  ActionRetryInput,
		}, nil
	}

	ok, err := f.sessions.UpdateDraft(sessionID, func(d *types.OrderDraft) {
		d.Quantity = quantity
		d.TotalPrice = d.UnitPrice * quantity
	})
	if err != nil {
		return FlowResult{}, err
	}
	if !ok {
		return FlowResult{}, fmt.Errorf("%w: no draft in quantity step", ErrInvalidState)
	}
	if err := f.sessions.SetOrderState(sessionID, types.OrderStateWaitingAddrPhone); err != nil {
		return FlowResult{}, err
	}

	draft, _ := f.sessions.Draft(sessionID)
	return FlowResult{
		OK: true,
		Message: fmt.Sprintf("Số lượng: %d. Tổng tiền: %s. Vui lòng nhập địa chỉ giao hàng và số điện thoại (ví dụ: '123 Hà Nội, 0987654321').",
			quantity, FormatCurrency(draft.TotalPrice)),
		Draft: draft,
	}, nil
}

// ProcessAddressPhone stores delivery details. Both fields are required;
// missing either re-prompts without any transition.
func (f *Flow) ProcessAddressPhone(sessionID, address, phone string) (FlowResult, error) {
	if err := f.requireState(sessionID, types.OrderStateWaitingAddrPhone); err != nil {
		return FlowResult{}, err
	}

	address = strings.TrimSpace(address)
	phone = strings.TrimSpace(phone)
	if address == "" || phone == "" {
		return FlowResult{
			Message: "Vui lòng nhập cả địa chỉ và số điện thoại (ví dụ: '123 Hà Nội, 0987654321').",
			Action:  ActionRetryInput,
		}, nil
	}

	ok, err := f.sessions.UpdateDraft(sessionID, func(d *types.OrderDraft) {
		d.Address = address
		d.Phone = phone
	})
	if err != nil {
		return FlowResult{}, err
	}
	if !ok {
		return FlowResult{}, fmt.Errorf("%w: no draft in address step", ErrInvalidState)
	}
	if err := f.sessions.SetOrderState(sessionID, types.OrderStateConfirming); err != nil {
		return FlowResult{}, err
	}

	draft, _ := f.sessions.Draft(sessionID)
	return FlowResult{
		OK: true,
		Message: fmt.Sprintf("Xác nhận đặt: '%s', SL: %d, Địa chỉ: %s, SĐT: %s. Tổng: %s. Trả lời 'có' để xác nhận hoặc 'không' để hủy.",
			draft.BookTitle, draft.Quantity, draft.Address, draft.Phone, FormatCurrency(draft.TotalPrice)),
		Draft: draft,
	}, nil
}

// Confirm either advances to processing (the orchestrator must then commit
// the draft to the store) or cancels, clearing the draft.
func (f *Flow) Confirm(sessionID string, confirmed bool) (FlowResult, error) {
	if err := f.requireState(sessionID, types.OrderStateConfirming); err != nil {
		return FlowResult{}, err
	}

	if !confirmed {
		if err := f.sessions.ClearDraft(sessionID); err != nil {
			return FlowResult{}, err
		}
		logging.Session("order cancelled: session=%s", sessionID)
		return FlowResult{OK: true, Message: "Đã hủy đơn hàng.", Action: ActionCancelled}, nil
	}

	if err := f.sessions.SetOrderState(sessionID, types.OrderStateProcessing); err != nil {
		return FlowResult{}, err
	}
	draft, _ := f.sessions.Draft(sessionID)
	return FlowResult{
		OK:      true,
		Message: "Đơn hàng đã được xác nhận. Đang xử lý...",
		Action:  ActionCommit,
		Draft:   draft,
	}, nil
}

// Complete finishes the transaction after the store commit. The draft is
// retained for the response message, but the state no longer accepts flow
// input.
func (f *Flow) Complete(sessionID string, success bool, message string) (FlowResult, error) {
	if err := f.requireState(sessionID, types.OrderStateProcessing); err != nil {
		return FlowResult{}, err
	}

	draft, _ := f.sessions.Draft(sessionID)
	if success {
		if err := f.sessions.SetOrderState(sessionID, types.OrderStateCompleted); err != nil {
			return FlowResult{}, err
		}
		if message == "" {
			message = "Đơn hàng đã được tạo thành công."
		}
		logging.Session("order completed: session=%s", sessionID)
		return FlowResult{OK: true, Message: message, Action: ActionCompleted, Draft: draft}, nil
	}

	if err := f.sessions.SetOrderState(sessionID, types.OrderStateCancelled); err != nil {
		return FlowResult{}, err
	}
	if message == "" {
		message = "Có lỗi xảy ra khi tạo đơn hàng."
	}
	logging.Session("order failed: session=%s", sessionID)
	return FlowResult{Message: message, Action: ActionFailed, Draft: draft}, nil
}

// Summary returns the current draft with its flow state, or nil when no
// order is in progress.
func (f *Flow) Summary(sessionID string) (*types.OrderDraft, types.OrderState, error) {
	state, err := f.sessions.OrderState(sessionID)
	if err != nil {
		return nil, types.OrderStateNone, err
	}
	draft, err := f.sessions.Draft(sessionID)
	if err != nil {
		return nil, types.OrderStateNone, err
	}
	return draft, state, nil
}

func (f *Flow) requireState(sessionID string, want types.OrderState) error {
	state, err := f.sessions.OrderState(sessionID)
	if err != nil {
		return err
	}
	if state != want {
		return fmt.Errorf("%w: need %s, have %s", ErrInvalidState, want, state)
	}
	return nil
}

// FormatCurrency renders an amount in VND with dot thousand separators,
// e.g. 150000 -> "150.000 VND".
func FormatCurrency(amount int) string {
	s := strconv.Itoa(amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}

	out := b.String()
	if neg {
		out = "-" + out
	}
	return out + " VND"
}
