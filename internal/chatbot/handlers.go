package chatbot

import (
	"fmt"
	"strings"

	"bookbot/internal/session"
	"bookbot/internal/types"
)

// maxListResults caps every book/category listing; the remainder is
// summarized in a trailing line.
const maxListResults = 5

// genericCategoryWords are category values too vague to search on; the
// handler lists all categories instead.
var genericCategoryWords = map[string]struct{}{
	"sach": {}, "sách": {}, "the loai": {}, "thể loại": {}, "loai": {}, "loại": {},
}

// =============================================================================
// ORDER
// =============================================================================

func (b *Bot) handleOrderIntent(result *types.IntentResult, sessionID string) reply {
	title := result.Params.BookTitle
	if title == "" {
		return reply{
			message: "Không tìm thấy tên sách. Vui lòng thử lại (ví dụ: 'Đặt mua Nhà Giả Kim').",
			intent:  "order_error",
		}
	}

	books, err := b.store.SearchBooks(title)
	if err != nil {
		return b.failure(err)
	}
	if len(books) == 0 {
		return reply{
			message: fmt.Sprintf("Không tìm thấy sách '%s'. Vui lòng kiểm tra lại tên sách.", title),
			intent:  "order_error",
		}
	}

	book := books[0]
	if book.Stock <= 0 {
		return reply{
			message: fmt.Sprintf("Sách '%s' hiện đã hết hàng.", book.Title),
			intent:  "order_error",
		}
	}

	res, err := b.flow.Start(sessionID, book)
	if err != nil {
		return b.failure(err)
	}
	return reply{message: res.Message, intent: "order_started", data: draftData(res.Draft)}
}

// =============================================================================
// QUERY
// =============================================================================

func (b *Bot) handleQuery(result *types.IntentResult) reply {
	title := result.Params.BookTitle
	if title == "" {
		return reply{
			message: "Không tìm thấy tên sách trong câu hỏi. Vui lòng thử lại (ví dụ: 'Giá sách Nhà Giả Kim').",
			intent:  "query_error",
		}
	}

	books, err := b.store.SearchBooks(title)
	if err != nil {
		return b.failure(err)
	}
	if len(books) == 0 {
		return reply{
			message: fmt.Sprintf("Không tìm thấy sách '%s'.", title),
			intent:  "query_error",
		}
	}

	book := books[0]
	var message string
	switch {
	case result.Params.IsPriceOnly:
		message = fmt.Sprintf("Giá sách '%s': %s", book.Title, session.FormatCurrency(book.Price))
	case result.Params.IsStockOnly:
		message = fmt.Sprintf("Sách '%s' còn %d cuốn trong kho.", book.Title, book.Stock)
	default:
		message = fmt.Sprintf("Thông tin sách '%s':\n• Tác giả: %s\n• Giá: %s\n• Tồn kho: %d cuốn\n• Thể loại: %s",
			book.Title, book.Author, session.FormatCurrency(book.Price), book.Stock, book.Category)
		if book.Rating > 0 {
			message += fmt.Sprintf("\n• Đánh giá: %g/5", book.Rating)
		}
	}

	return reply{
		message:     message,
		intent:      "query_success",
		data:        map[string]interface{}{"book": book},
		suggestions: contextSuggestions(result),
	}
}

// =============================================================================
// SEARCH
// =============================================================================

func (b *Bot) handleSearchByTitle(result *types.IntentResult) reply {
	title := result.Params.BookTitle
	if title == "" {
		return reply{message: "Vui lòng chỉ định tên sách cần tìm.", intent: "search_error"}
	}

	books, err := b.store.SearchBooks(title)
	if err != nil {
		return b.failure(err)
	}
	if len(books) == 0 {
		return reply{
			message: fmt.Sprintf("Không tìm thấy sách nào có tên chứa '%s'.", title),
			intent:  "search_error",
		}
	}

	shown := books
	if len(shown) > maxListResults {
		shown = shown[:maxListResults]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tìm thấy %d sách có tên chứa '%s':\n\n", len(books), title)
	writeBookLines(&sb, shown)
	writeRemaining(&sb, len(books)-len(shown))

	return reply{
		message:     sb.String(),
		intent:      "search_success",
		data:        map[string]interface{}{"books": shown},
		suggestions: contextSuggestions(result),
	}
}

func (b *Bot) handleSearchByAuthor(result *types.IntentResult) reply {
	author := result.Params.Author
	if author == "" {
		return reply{
			message: "Vui lòng chỉ định tác giả (ví dụ: 'Nguyễn Nhật Ánh').",
			intent:  "search_error",
		}
	}

	books, err := b.store.BooksByAuthor(author)
	if err != nil {
		return b.failure(err)
	}
	if len(books) == 0 {
		return reply{
			message: fmt.Sprintf("Không tìm thấy sách nào của tác giả '%s'.", author),
			intent:  "search_error",
		}
	}

	shown := books
	if len(shown) > maxListResults {
		shown = shown[:maxListResults]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sách của tác giả '%s':\n\n", author)
	for i, book := range shown {
		fmt.Fprintf(&sb, "%d. %s (%s) - %s\n", i+1, book.Title, session.FormatCurrency(book.Price), book.Category)
	}
	writeRemaining(&sb, len(books)-len(shown))

	return reply{
		message:     sb.String(),
		intent:      "search_success",
		data:        map[string]interface{}{"books": shown},
		suggestions: orderSuggestions(shown, 3),
	}
}

func (b *Bot) handleSearchByCategory(result *types.IntentResult) reply {
	category := strings.TrimSpace(result.Params.Category)
	if _, generic := genericCategoryWords[strings.ToLower(category)]; category == "" || generic {
		return b.handleListCategories(result)
	}

	books, err := b.store.BooksByCategory(category)
	if err != nil {
		return b.failure(err)
	}
	if len(books) == 0 {
		return reply{
			message: fmt.Sprintf("Không tìm thấy sách nào thuộc thể loại '%s'.", category),
			intent:  "search_error",
		}
	}

	shown := books
	if len(shown) > maxListResults {
		shown = shown[:maxListResults]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sách thuộc thể loại '%s':\n\n", category)
	writeBookLines(&sb, shown)
	writeRemaining(&sb, len(books)-len(shown))

	return reply{
		message:     sb.String(),
		intent:      "search_success",
		data:        map[string]interface{}{"books": shown},
		suggestions: orderSuggestions(shown, 3),
	}
}

func (b *Bot) handleSearchByPrice(result *types.IntentResult) reply {
	pr := result.Params.PriceRange
	if pr == nil {
		return reply{
			message: "Vui lòng chỉ định khoảng giá (ví dụ: 'giá trên 200000', 'giá dưới 150000').",
			intent:  "search_error",
		}
	}

	books, err := b.store.BooksByPriceRange(pr.Min, pr.Max)
	if err != nil {
		return b.failure(err)
	}
	rangeStr := priceRangeLabel(pr)
	if len(books) == 0 {
		return reply{
			message: fmt.Sprintf("Không tìm thấy sách nào trong khoảng giá %s.", rangeStr),
			intent:  "search_error",
		}
	}

	shown := books
	if len(shown) > maxListResults {
		shown = shown[:maxListResults]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sách có giá %s:\n\n", rangeStr)
	writeBookLines(&sb, shown)
	writeRemaining(&sb, len(books)-len(shown))

	return reply{
		message:     sb.String(),
		intent:      "search_success",
		data:        map[string]interface{}{"books": shown},
		suggestions: orderSuggestions(shown, 3),
	}
}

// =============================================================================
// RECOMMENDATIONS
// =============================================================================

func (b *Bot) handleRecommend(result *types.IntentResult) reply {
	books, err := b.store.AllBooks()
	if err != nil {
		return b.failure(err)
	}
	if len(books) == 0 {
		return reply{message: "Không có sách để gợi ý.", intent: "recommend_error"}
	}

	picks := b.sampleBooks(books, 3)

	var sb strings.Builder
	sb.WriteString("📚 Gợi ý sách hay:\n\n")
	writeRecommendLines(&sb, picks)

	return reply{
		message:     sb.String(),
		intent:      "recommend_success",
		data:        map[string]interface{}{"books": picks},
		suggestions: orderSuggestions(picks, len(picks)),
	}
}

func (b *Bot) handleRecommendByPrice(result *types.IntentResult) reply {
	pr := result.Params.PriceRange
	if pr == nil {
		return reply{
			message: "Vui lòng chỉ định khoảng giá (ví dụ: 'sách nào hay dưới 150000').",
			intent:  "recommend_error",
		}
	}

	books, err := b.store.BooksByPriceRange(pr.Min, pr.Max)
	if err != nil {
		return b.failure(err)
	}
	rangeStr := priceRangeLabel(pr)
	if len(books) == 0 {
		return reply{
			message: fmt.Sprintf("Không tìm thấy sách nào trong khoảng giá %s.", rangeStr),
			intent:  "recommend_error",
		}
	}

	picks := b.sampleBooks(books, 3)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 Gợi ý sách hay trong khoảng giá %s:\n\n", rangeStr)
	writeRecommendLines(&sb, picks)
	if len(books) > 3 {
		fmt.Fprintf(&sb, "💡 Còn %d cuốn sách khác trong khoảng giá này!", len(books)-3)
	}

	return reply{
		message:     sb.String(),
		intent:      "recommend_success",
		data:        map[string]interface{}{"books": picks},
		suggestions: orderSuggestions(picks, len(picks)),
	}
}

// =============================================================================
// CATEGORIES / STOCK
// =============================================================================

func (b *Bot) handleListCategories(result *types.IntentResult) reply {
	categories, err := b.store.AllCategories()
	if err != nil {
		return b.failure(err)
	}
	if len(categories) == 0 {
		return reply{message: "Không có thể loại sách nào.", intent: "list_categories_error"}
	}

	const maxCategories = 10
	shown := categories
	if len(shown) > maxCategories {
		shown = shown[:maxCategories]
	}

	var sb strings.Builder
	sb.WriteString("📂 Cửa hàng có các loại sách sau:\n\n")
	for i, c := range shown {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c)
	}
	if remaining := len(categories) - len(shown); remaining > 0 {
		fmt.Fprintf(&sb, "\n... và còn %d loại nữa.", remaining)
	}

	var suggestions []string
	for _, c := range shown {
		if len(suggestions) == 5 {
			break
		}
		suggestions = append(suggestions, "Sách về "+c)
	}

	return reply{
		message:     sb.String(),
		intent:      "list_categories_success",
		data:        map[string]interface{}{"categories": shown},
		suggestions: suggestions,
	}
}

func (b *Bot) handleCheckStock(result *types.IntentResult) reply {
	title := result.Params.BookTitle
	if title == "" {
		return reply{
			message: "Vui lòng chỉ định tên sách (ví dụ: 'Nhà Giả Kim').",
			intent:  "check_stock_error",
		}
	}

	books, err := b.store.SearchBooks(title)
	if err != nil {
		return b.failure(err)
	}
	if len(books) == 0 {
		return reply{
			message: fmt.Sprintf("Không tìm thấy sách '%s'.", title),
			intent:  "check_stock_error",
		}
	}

	book := books[0]
	var message string
	var suggestions []string
	if book.Stock > 0 {
		message = fmt.Sprintf("Sách '%s' còn %d cuốn trong kho.", book.Title, book.Stock)
		suggestions = []string{"Đặt mua " + book.Title}
	} else {
		message = fmt.Sprintf("Sách '%s' đã hết hàng.", book.Title)
	}

	return reply{
		message:     message,
		intent:      "check_stock_success",
		data:        map[string]interface{}{"book": book},
		suggestions: suggestions,
	}
}

// =============================================================================
// SMALL TALK
// =============================================================================

var greetings = []string{
	"Xin chào! Tôi là chatbot của cửa hàng sách. Tôi có thể giúp bạn tìm kiếm sách, tra cứu thông tin và đặt hàng. Bạn cần hỗ trợ gì?",
	"Chào bạn! Tôi có thể giúp bạn tìm sách, hỏi giá, đặt hàng hoặc gợi ý sách hay. Bạn muốn làm gì?",
	"Hello! Tôi là trợ lý ảo của cửa hàng sách. Tôi có thể hỗ trợ bạn tra cứu thông tin sách và đặt hàng. Có gì tôi có thể giúp bạn?",
}

var goodbyes = []string{
	"Tạm biệt! Cảm ơn bạn đã sử dụng dịch vụ của chúng tôi. Hẹn gặp lại!",
	"Chào tạm biệt! Nếu cần hỗ trợ gì thêm, bạn có thể quay lại bất cứ lúc nào.",
	"Goodbye! Cảm ơn bạn đã ghé thăm cửa hàng sách của chúng tôi.",
}

func (b *Bot) handleGreeting(result *types.IntentResult) reply {
	var message string
	switch {
	case result.Context != nil && len(result.Context.PreferredCategories) > 0:
		message = fmt.Sprintf(
			"Xin chào! Tôi thấy bạn quan tâm đến sách về %s. Tôi có thể giúp bạn tìm kiếm sách, tra cứu thông tin và đặt hàng. Bạn cần hỗ trợ gì?",
			joinFirst(result.Context.PreferredCategories, 2))
	case result.Context != nil && len(result.Context.PreferredAuthors) > 0:
		message = fmt.Sprintf(
			"Xin chào! Tôi thấy bạn thích sách của %s. Tôi có thể giúp bạn tìm kiếm sách, tra cứu thông tin và đặt hàng. Bạn cần hỗ trợ gì?",
			joinFirst(result.Context.PreferredAuthors, 2))
	default:
		message = greetings[b.randInt(len(greetings))]
	}

	return reply{
		message:     message,
		intent:      "greeting_success",
		suggestions: contextSuggestions(result),
	}
}

func (b *Bot) handleGoodbye(result *types.IntentResult) reply {
	return reply{
		message: goodbyes[b.randInt(len(goodbyes))],
		intent:  "goodbye_success",
	}
}

func (b *Bot) handleHelp(result *types.IntentResult) reply {
	message := `🤖 Tôi có thể giúp bạn:

📚 **Tìm kiếm sách:**
• "Tìm sách Nhà Giả Kim"
• "Sách của Nguyễn Nhật Ánh"
• "Sách về trinh thám"

💰 **Tra cứu giá:**
• "Giá sách Nhà Giả Kim"
• "Sách dưới 100000"
• "Giá từ 50000 đến 150000"

🛒 **Đặt hàng:**
• "Đặt mua Nhà Giả Kim"
• "Mua sách Đắc Nhân Tâm"

💡 **Gợi ý:**
• "Gợi ý sách hay"
• "Sách nào hay dưới 150000"

📂 **Thể loại:**
• "Cửa hàng có những loại sách gì?"

Bạn muốn thử tính năng nào?`

	return reply{
		message: message,
		intent:  "help_success",
		suggestions: []string{
			"Gợi ý sách hay",
			"Cửa hàng có những loại sách gì?",
			"Sách về trinh thám",
			"Giá dưới 100000",
		},
	}
}

func (b *Bot) handleUnknown(result *types.IntentResult) reply {
	const tryList = "\n\n• 'Gợi ý sách hay'\n• 'Giá sách Nhà Giả Kim'\n• 'Đặt mua Nhà Giả Kim'\n• 'Cửa hàng có những loại sách gì?'\n\nHoặc gõ 'help' để xem hướng dẫn chi tiết."

	var message string
	switch result.Sentiment {
	case types.SentimentFrustrated:
		message = "Tôi hiểu bạn đang gặp khó khăn. Đừng lo, tôi sẽ giúp bạn! Bạn có thể thử:" + tryList
	case types.SentimentNegative:
		message = "Xin lỗi vì sự bất tiện. Tôi sẽ cố gắng hiểu rõ hơn yêu cầu của bạn. Bạn có thể thử:" + tryList
	default:
		message = "Xin lỗi, tôi không hiểu yêu cầu của bạn. Bạn có thể thử:" + tryList
	}

	return reply{
		message:     message,
		intent:      "unknown",
		suggestions: contextSuggestions(result),
	}
}

// =============================================================================
// RENDERING HELPERS
// =============================================================================

func writeBookLines(sb *strings.Builder, books []types.Book) {
	for i, book := range books {
		fmt.Fprintf(sb, "%d. %s - %s (%s)\n", i+1, book.Title, book.Author, session.FormatCurrency(book.Price))
	}
}

func writeRecommendLines(sb *strings.Builder, books []types.Book) {
	for i, book := range books {
		fmt.Fprintf(sb, "%d. %s - %s\n   Giá: %s | Thể loại: %s\n\n",
			i+1, book.Title, book.Author, session.FormatCurrency(book.Price), book.Category)
	}
}

func writeRemaining(sb *strings.Builder, remaining int) {
	if remaining > 0 {
		fmt.Fprintf(sb, "\n... và còn %d sách khác.", remaining)
	}
}

// priceRangeLabel renders a filter for messages: both bounds, a floor, or
// a ceiling.
func priceRangeLabel(pr *types.PriceRange) string {
	switch {
	case pr.Min != nil && pr.Max != nil:
		return session.FormatCurrency(*pr.Min) + " - " + session.FormatCurrency(*pr.Max)
	case pr.Min != nil:
		return "từ " + session.FormatCurrency(*pr.Min) + " trở lên"
	default:
		return "dưới " + session.FormatCurrency(*pr.Max)
	}
}

// sampleBooks picks up to n distinct books at random.
func (b *Bot) sampleBooks(books []types.Book, n int) []types.Book {
	if len(books) <= n {
		out := make([]types.Book, len(books))
		copy(out, books)
		return out
	}
	picks := make([]types.Book, 0, n)
	for _, idx := range b.perm(len(books))[:n] {
		picks = append(picks, books[idx])
	}
	return picks
}

func orderSuggestions(books []types.Book, limit int) []string {
	var out []string
	for _, book := range books {
		if len(out) == limit {
			break
		}
		out = append(out, "Đặt mua "+book.Title)
	}
	return out
}

func contextSuggestions(result *types.IntentResult) []string {
	if result.Context == nil {
		return nil
	}
	return result.Context.Suggestions
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}
