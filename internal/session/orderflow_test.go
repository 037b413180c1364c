package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbot/internal/types"
)

func testBook() types.Book {
	return types.Book{ID: "b1", Title: "Harry Potter", Author: "J.K. Rowling", Price: 150000, Stock: 10}
}

func newTestFlow() (*Flow, *Manager, string) {
	m := newTestManager()
	return NewFlow(m), m, m.Create("u1")
}

func TestFlowStart(t *testing.T) {
	flow, m, id := newTestFlow()

	res, err := flow.Start(id, testBook())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Contains(t, res.Message, "Harry Potter")
	assert.Contains(t, res.Message, "150.000 VND")

	state, _ := m.OrderState(id)
	assert.Equal(t, types.OrderStateWaitingQuantity, state)

	draft, _ := m.Draft(id)
	require.NotNil(t, draft)
	assert.Equal(t, 1, draft.Quantity)
	assert.Equal(t, 150000, draft.TotalPrice)
}

func TestFlowStartRejectedMidFlow(t *testing.T) {
	flow, _, id := newTestFlow()

	_, err := flow.Start(id, testBook())
	require.NoError(t, err)

	_, err = flow.Start(id, testBook())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFlowQuantityRecomputesTotal(t *testing.T) {
	flow, m, id := newTestFlow()

	_, err := flow.Start(id, testBook())
	require.NoError(t, err)

	res, err := flow.ProcessQuantity(id, 3)
	require.NoError(t, err)
	assert.True(t, res.OK)

	draft, _ := m.Draft(id)
	assert.Equal(t, 3, draft.Quantity)
	assert.Equal(t, 450000, draft.TotalPrice)

	state, _ := m.OrderState(id)
	assert.Equal(t, types.OrderStateWaitingAddrPhone, state)
}

func TestFlowInvalidQuantityDoesNotAdvance(t *testing.T) {
	flow, m, id := newTestFlow()

	_, err := flow.Start(id, testBook())
	require.NoError(t, err)

	res, err := flow.ProcessQuantity(id, 0)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, ActionRetryInput, res.Action)

	// State and draft untouched.
	state, _ := m.OrderState(id)
	assert.Equal(t, types.OrderStateWaitingQuantity, state)
	draft, _ := m.Draft(id)
	assert.Equal(t, 1, draft.Quantity)
	assert.Equal(t, 150000, draft.TotalPrice)
}

func TestFlowAddressPhoneRequiresBoth(t *testing.T) {
	flow, m, id := newTestFlow()

	_, err := flow.Start(id, testBook())
	require.NoError(t, err)
	_, err = flow.ProcessQuantity(id, 2)
	require.NoError(t, err)

	res, err := flow.ProcessAddressPhone(id, "123 Main St", "")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, ActionRetryInput, res.Action)

	state, _ := m.OrderState(id)
	assert.Equal(t, types.OrderStateWaitingAddrPhone, state)
}

func TestFlowHappyPath(t *testing.T) {
	flow, m, id := newTestFlow()

	_, err := flow.Start(id, testBook())
	require.NoError(t, err)

	res, err := flow.ProcessQuantity(id, 2)
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, 300000, res.Draft.TotalPrice)

	res, err = flow.ProcessAddressPhone(id, "123 Main St", "0987654321")
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Contains(t, res.Message, "123 Main St")
	assert.Contains(t, res.Message, "0987654321")
	assert.Contains(t, res.Message, "300.000 VND")

	res, err = flow.Confirm(id, true)
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, ActionCommit, res.Action)

	state, _ := m.OrderState(id)
	assert.Equal(t, types.OrderStateProcessing, state)

	res, err = flow.Complete(id, true, "")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, ActionCompleted, res.Action)

	state, _ = m.OrderState(id)
	assert.Equal(t, types.OrderStateCompleted, state)

	// Draft retained for the response; total still consistent.
	draft, _ := m.Draft(id)
	require.NotNil(t, draft)
	assert.Equal(t, draft.UnitPrice*draft.Quantity, draft.TotalPrice)
}

func TestFlowCancelClearsDraft(t *testing.T) {
	flow, m, id := newTestFlow()

	_, err := flow.Start(id, testBook())
	require.NoError(t, err)
	_, err = flow.ProcessQuantity(id, 2)
	require.NoError(t, err)
	_, err = flow.ProcessAddressPhone(id, "123 Main St", "0987654321")
	require.NoError(t, err)

	res, err := flow.Confirm(id, false)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, ActionCancelled, res.Action)
	assert.Equal(t, "Đã hủy đơn hàng.", res.Message)

	state, _ := m.OrderState(id)
	assert.Equal(t, types.OrderStateNone, state)

	draft, _ := m.Draft(id)
	assert.Nil(t, draft)
}

func TestFlowCompleteFailure(t *testing.T) {
	flow, m, id := newTestFlow()

	_, err := flow.Start(id, testBook())
	require.NoError(t, err)
	_, err = flow.ProcessQuantity(id, 1)
	require.NoError(t, err)
	_, err = flow.ProcessAddressPhone(id, "a", "0987654321")
	require.NoError(t, err)
	_, err = flow.Confirm(id, true)
	require.NoError(t, err)

	res, err := flow.Complete(id, false, "")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, ActionFailed, res.Action)

	state, _ := m.OrderState(id)
	assert.Equal(t, types.OrderStateCancelled, state)
}

func TestFlowStepsRejectWrongState(t *testing.T) {
	flow, _, id := newTestFlow()

	_, err := flow.ProcessQuantity(id, 2)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = flow.ProcessAddressPhone(id, "a", "b")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = flow.Confirm(id, true)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = flow.Complete(id, true, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFlowRestartsAfterCompletion(t *testing.T) {
	flow, m, id := newTestFlow()

	_, err := flow.Start(id, testBook())
	require.NoError(t, err)
	_, err = flow.ProcessQuantity(id, 1)
	require.NoError(t, err)
	_, err = flow.ProcessAddressPhone(id, "a", "0987654321")
	require.NoError(t, err)
	_, err = flow.Confirm(id, true)
	require.NoError(t, err)
	_, err = flow.Complete(id, true, "")
	require.NoError(t, err)

	// A finished transaction rests; a new order starts cleanly.
	res, err := flow.Start(id, types.Book{ID: "b2", Title: "Conan", Price: 30000})
	require.NoError(t, err)
	assert.True(t, res.OK)

	state, _ := m.OrderState(id)
	assert.Equal(t, types.OrderStateWaitingQuantity, state)
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0 VND"},
		{500, "500 VND"},
		{30000, "30.000 VND"},
		{150000, "150.000 VND"},
		{1234567, "1.234.567 VND"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCurrency(tt.in))
	}
}
