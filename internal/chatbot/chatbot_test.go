package chatbot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbot/internal/nlu"
	"bookbot/internal/session"
	"bookbot/internal/types"
)

// fakeStore serves canned catalog data and records created orders.
type fakeStore struct {
	books      []types.Book
	categories []string
	orders     []types.Order
	orderErr   error
}

func (f *fakeStore) AllBooks() ([]types.Book, error) { return f.books, nil }

func (f *fakeStore) SearchBooks(query string) ([]types.Book, error) {
	var out []types.Book
	for _, b := range f.books {
		if containsFold(b.Title, query) || containsFold(b.Author, query) || containsFold(b.Category, query) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) BooksByAuthor(author string) ([]types.Book, error) {
	var out []types.Book
	for _, b := range f.books {
		if containsFold(b.Author, author) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) BooksByCategory(category string) ([]types.Book, error) {
	var out []types.Book
	for _, b := range f.books {
		if containsFold(b.Category, category) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) BooksByPriceRange(min, max *int) ([]types.Book, error) {
	var out []types.Book
	for _, b := range f.books {
		if min != nil && b.Price < *min {
			continue
		}
		if max != nil && b.Price > *max {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) AllCategories() ([]string, error) { return f.categories, nil }

func (f *fakeStore) CreateOrder(order types.Order) error {
	if f.orderErr != nil {
		return f.orderErr
	}
	f.orders = append(f.orders, order)
	return nil
}

func containsFold(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func testCatalog() []types.Book {
	return []types.Book{
		{ID: "b1", Title: "Conan", Author: "Gosho Aoyama", Category: "Trinh thám", Price: 30000, Stock: 50},
		{ID: "b2", Title: "Harry Potter", Author: "J.K. Rowling", Category: "Giả tưởng", Price: 150000, Stock: 10},
	}
}

func newTestBot(store *fakeStore) (*Bot, *session.Manager) {
	sessions := session.NewManager(session.Config{Timeout: time.Hour, CleanupInterval: time.Minute, HistoryLimit: 50})
	processor := nlu.NewProcessor(nil, 0, 0)
	b := New(store, processor, sessions)
	b.randInt = func(n int) int { return 0 }
	b.perm = func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return b, sessions
}

func TestProcessMessageCreatesSession(t *testing.T) {
	b, _ := newTestBot(&fakeStore{books: testCatalog(), categories: []string{"Trinh thám"}})

	resp, err := b.ProcessMessage("xin chào", "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "greeting_success", resp.Intent)
	assert.Equal(t, greetings[0], resp.Message)
}

func TestProcessMessageRejectsDeadSession(t *testing.T) {
	b, _ := newTestBot(&fakeStore{})

	_, err := b.ProcessMessage("xin chào", "no-such-session")
	assert.True(t, errors.Is(err, session.ErrSessionNotFound))
}

func TestOrderEndToEnd(t *testing.T) {
	store := &fakeStore{books: testCatalog()}
	b, sessions := newTestBot(store)
	id := sessions.Create("u1")

	resp, err := b.ProcessMessage("tôi muốn mua conan", id)
	require.NoError(t, err)
	assert.Equal(t, "order_started", resp.Intent)
	assert.Contains(t, resp.Message, "Conan")
	assert.Contains(t, resp.Message, "30.000 VND")

	resp, err = b.ProcessMessage("2", id)
	require.NoError(t, err)
	assert.Equal(t, "order_quantity", resp.Intent)
	assert.Contains(t, resp.Message, "60.000 VND")

	resp, err = b.ProcessMessage("123 Hà Nội, 0987654321", id)
	require.NoError(t, err)
	assert.Equal(t, "order_address_phone", resp.Intent)
	assert.Contains(t, resp.Message, "0987654321")

	resp, err = b.ProcessMessage("có", id)
	require.NoError(t, err)
	assert.Equal(t, "order_completed", resp.Intent)
	assert.Contains(t, resp.Message, "đã được tạo thành công")
	assert.Contains(t, resp.Message, "60.000 VND")

	require.Len(t, store.orders, 1)
	order := store.orders[0]
	assert.Equal(t, "b1", order.BookID)
	assert.Equal(t, 2, order.Quantity)
	assert.Equal(t, 60000, order.TotalPrice)
	assert.Equal(t, "Pending", order.Status)
	assert.Equal(t, "0987654321", order.Phone)

	state, err := sessions.OrderState(id)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStateCompleted, state)
}

func TestOrderInvalidQuantityReprompts(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{books: testCatalog()})
	id := sessions.Create("u1")

	_, err := b.ProcessMessage("tôi muốn mua conan", id)
	require.NoError(t, err)

	resp, err := b.ProcessMessage("nhiều lắm", id)
	require.NoError(t, err)
	assert.Equal(t, "order_quantity_error", resp.Intent)

	state, _ := sessions.OrderState(id)
	assert.Equal(t, types.OrderStateWaitingQuantity, state)
}

func TestOrderCancelledAtConfirmation(t *testing.T) {
	store := &fakeStore{books: testCatalog()}
	b, sessions := newTestBot(store)
	id := sessions.Create("u1")

	_, err := b.ProcessMessage("tôi muốn mua conan", id)
	require.NoError(t, err)
	_, err = b.ProcessMessage("1", id)
	require.NoError(t, err)
	_, err = b.ProcessMessage("123 Hà Nội, 0987654321", id)
	require.NoError(t, err)

	resp, err := b.ProcessMessage("không", id)
	require.NoError(t, err)
	assert.Equal(t, "order_cancelled", resp.Intent)
	assert.Equal(t, "Đã hủy đơn hàng.", resp.Message)
	assert.Empty(t, store.orders)

	state, _ := sessions.OrderState(id)
	assert.Equal(t, types.OrderStateNone, state)
}

func TestOrderConfirmationUnclearAnswerReprompts(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{books: testCatalog()})
	id := sessions.Create("u1")

	_, err := b.ProcessMessage("tôi muốn mua conan", id)
	require.NoError(t, err)
	_, err = b.ProcessMessage("1", id)
	require.NoError(t, err)
	_, err = b.ProcessMessage("123 Hà Nội, 0987654321", id)
	require.NoError(t, err)

	resp, err := b.ProcessMessage("ừm để xem đã", id)
	require.NoError(t, err)
	assert.Equal(t, "order_confirmation_error", resp.Intent)

	state, _ := sessions.OrderState(id)
	assert.Equal(t, types.OrderStateConfirming, state)
}

func TestOrderCommitFailure(t *testing.T) {
	store := &fakeStore{books: testCatalog(), orderErr: errors.New("db down")}
	b, sessions := newTestBot(store)
	id := sessions.Create("u1")

	_, err := b.ProcessMessage("tôi muốn mua conan", id)
	require.NoError(t, err)
	_, err = b.ProcessMessage("1", id)
	require.NoError(t, err)
	_, err = b.ProcessMessage("123 Hà Nội, 0987654321", id)
	require.NoError(t, err)

	resp, err := b.ProcessMessage("có", id)
	require.NoError(t, err)
	assert.Equal(t, "order_failed", resp.Intent)
	assert.Contains(t, resp.Message, "Không thể tạo đơn hàng")

	state, _ := sessions.OrderState(id)
	assert.Equal(t, types.OrderStateCancelled, state)
}

func TestOrderOutOfStock(t *testing.T) {
	store := &fakeStore{books: []types.Book{
		{ID: "b1", Title: "Conan", Author: "Gosho Aoyama", Category: "Trinh thám", Price: 30000, Stock: 0},
	}}
	b, sessions := newTestBot(store)
	id := sessions.Create("u1")

	resp, err := b.ProcessMessage("tôi muốn mua conan", id)
	require.NoError(t, err)
	assert.Equal(t, "order_error", resp.Intent)
	assert.Contains(t, resp.Message, "hết hàng")
}

func TestOrderUnknownTitle(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{books: testCatalog()})
	id := sessions.Create("u1")

	// Catalog extraction misses, search finds nothing.
	resp, err := b.ProcessMessage("tôi muốn mua chiếc thuyền ngoài xa", id)
	require.NoError(t, err)
	assert.Equal(t, "order_error", resp.Intent)
}

func TestSearchByCategory(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{books: testCatalog()})
	id := sessions.Create("u1")

	resp, err := b.ProcessMessage("tìm sách về trinh thám", id)
	require.NoError(t, err)
	assert.Equal(t, "search_success", resp.Intent)
	assert.Contains(t, resp.Message, "Sách thuộc thể loại 'trinh thám'")
	assert.Contains(t, resp.Message, "Conan")
	assert.Contains(t, resp.Suggestions, "Đặt mua Conan")
}

func TestGenericCategoryListsAll(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{
		books:      testCatalog(),
		categories: []string{"Giả tưởng", "Trinh thám"},
	})
	id := sessions.Create("u1")

	resp, err := b.ProcessMessage("cửa hàng có những loại sách gì", id)
	require.NoError(t, err)
	assert.Equal(t, "list_categories_success", resp.Intent)
	assert.Contains(t, resp.Message, "📂 Cửa hàng có các loại sách sau:")
	assert.Contains(t, resp.Message, "Trinh thám")
	assert.Contains(t, resp.Suggestions, "Sách về Giả tưởng")
}

func TestRecommend(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{books: testCatalog()})
	id := sessions.Create("u1")

	resp, err := b.ProcessMessage("gợi ý sách hay", id)
	require.NoError(t, err)
	assert.Equal(t, "recommend_success", resp.Intent)
	assert.Contains(t, resp.Message, "📚 Gợi ý sách hay:")
	assert.Contains(t, resp.Message, "Conan")
	assert.Contains(t, resp.Message, "Harry Potter")
}

func TestHelp(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{books: testCatalog()})
	id := sessions.Create("u1")

	resp, err := b.ProcessMessage("help", id)
	require.NoError(t, err)
	assert.Equal(t, "help_success", resp.Intent)
	assert.Contains(t, resp.Message, "🤖 Tôi có thể giúp bạn")
	assert.Len(t, resp.Suggestions, 4)
}

func TestUnknownWithNegativeSentiment(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{books: testCatalog()})
	id := sessions.Create("u1")

	resp, err := b.ProcessMessage("chán quá chẳng đọc nổi", id)
	require.NoError(t, err)
	assert.Equal(t, "unknown", resp.Intent)
	assert.Contains(t, resp.Message, "Xin lỗi vì sự bất tiện")
}

func TestHistoryRecordedBothSides(t *testing.T) {
	b, sessions := newTestBot(&fakeStore{books: testCatalog()})
	id := sessions.Create("u1")

	_, err := b.ProcessMessage("xin chào", id)
	require.NoError(t, err)

	msgs, err := sessions.History(id, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "xin chào", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
}
