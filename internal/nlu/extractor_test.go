package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbot/internal/types"
)

func testCatalog() []types.Book {
	return []types.Book{
		{ID: "b1", Title: "Harry Potter", Author: "J.K. Rowling", Category: "Fantasy", Price: 150000, Stock: 10},
		{ID: "b2", Title: "Conan", Author: "Gosho Aoyama", Category: "Trinh thám", Price: 30000, Stock: 25},
		{ID: "b3", Title: "Đắc Nhân Tâm", Author: "Dale Carnegie", Category: "Kỹ năng sống", Price: 90000, Stock: 7},
	}
}

func TestExtractTitleWholeWord(t *testing.T) {
	e := NewExtractor(testCatalog(), 0, 0)

	title, ok := e.ExtractTitle("tôi muốn mua harry potter tập 1")
	require.True(t, ok)
	assert.Equal(t, "Harry Potter", title)
}

func TestExtractTitleLongestFirst(t *testing.T) {
	books := append(testCatalog(), types.Book{ID: "b4", Title: "Harry", Author: "x", Category: "y"})
	e := NewExtractor(books, 0, 0)

	// "Harry Potter" must shadow the shorter "Harry".
	title, ok := e.ExtractTitle("cho tôi cuốn harry potter")
	require.True(t, ok)
	assert.Equal(t, "Harry Potter", title)
}

func TestExtractTitleFuzzyFallback(t *testing.T) {
	e := NewExtractor(testCatalog(), 0, 0)

	title, ok := e.ExtractTitle("tôi muốn mua harry poter")
	require.True(t, ok)
	assert.Equal(t, "Harry Potter", title)
}

func TestExtractTitleEmptyCatalog(t *testing.T) {
	e := NewExtractor(nil, 0, 0)
	_, ok := e.ExtractTitle("harry potter")
	assert.False(t, ok)
}

func TestExtractAuthorExactContainment(t *testing.T) {
	e := NewExtractor(testCatalog(), 0, 0)

	author, ok := e.ExtractAuthor("sách của gosho aoyama còn không")
	require.True(t, ok)
	assert.Equal(t, "Gosho Aoyama", author)
}

func TestExtractCategoryExactContainment(t *testing.T) {
	e := NewExtractor(testCatalog(), 0, 0)

	category, ok := e.ExtractCategory("tôi thích trinh thám")
	require.True(t, ok)
	assert.Equal(t, "Trinh thám", category)
}

func TestFuzzyThresholdBoundary(t *testing.T) {
	// A score of exactly the threshold is accepted; one above the score
	// (i.e. the score falling one point short) is rejected.
	text := "sách của gosho aoyam"
	score := PartialRatio(text, "Gosho Aoyama")
	require.Greater(t, score, 0)
	require.Less(t, score, 100)

	atThreshold := NewExtractor(testCatalog(), score, 0)
	author, ok := atThreshold.ExtractAuthor(text)
	require.True(t, ok)
	assert.Equal(t, "Gosho Aoyama", author)

	aboveScore := NewExtractor(testCatalog(), score+1, 0)
	_, ok = aboveScore.ExtractAuthor(text)
	assert.False(t, ok)
}

func TestExtractQuantity(t *testing.T) {
	e := NewExtractor(nil, 0, 0)

	qty, ok := e.ExtractQuantity("cho tôi 3 cuốn")
	require.True(t, ok)
	assert.Equal(t, 3, qty)

	_, ok = e.ExtractQuantity("cho tôi vài cuốn")
	assert.False(t, ok)
}

func TestExtractPhone(t *testing.T) {
	e := NewExtractor(nil, 0, 0)

	tests := []struct {
		in   string
		want string
	}{
		{"gọi 0987654321 nhé", "0987654321"},
		{"số của tôi là 84901234567", "84901234567"},
	}
	for _, tt := range tests {
		phone, ok := e.ExtractPhone(tt.in)
		require.True(t, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, phone)
	}

	_, ok := e.ExtractPhone("không có số đâu")
	assert.False(t, ok)
}

func TestExtractAddress(t *testing.T) {
	e := NewExtractor(nil, 0, 0)

	addr, ok := e.ExtractAddress("giao đến số 12 đường lê lợi, 0987654321")
	require.True(t, ok)
	assert.Equal(t, "12 đường lê lợi", addr)

	// No keyword: whole phone-stripped text comes back.
	addr, ok = e.ExtractAddress("12 le loi 0987654321")
	require.True(t, ok)
	assert.Equal(t, "12 le loi", addr)
}

func TestRebuildSwapsCatalog(t *testing.T) {
	e := NewExtractor(testCatalog(), 0, 0)

	e.Rebuild([]types.Book{{ID: "n1", Title: "Norwegian Wood", Author: "Haruki Murakami", Category: "Fiction"}})

	_, ok := e.ExtractTitle("tôi muốn mua harry potter tập 1")
	assert.False(t, ok)

	title, ok := e.ExtractTitle("tìm norwegian wood")
	require.True(t, ok)
	assert.Equal(t, "Norwegian Wood", title)
}
