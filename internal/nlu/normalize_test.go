package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercases", "Tôi Muốn MUA Sách", "tôi muốn mua sách"},
		{"strips punctuation keeps diacritics", "giá bao nhiêu?!", "giá bao nhiêu"},
		{"collapses whitespace", "tìm   sách \t hay", "tìm sách hay"},
		{"trims", "  chào bạn  ", "chào bạn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Tôi muốn mua sách Conan!",
		"giá từ 50.000 đến 150.000 VND",
		"  SÁCH   hay,   tốt  ",
		"xin chào",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestExpandSynonymsWholeWordOnly(t *testing.T) {
	// "cost" is a synonym of "giá"; inside "costume" it must survive.
	assert.Equal(t, "giá costume", ExpandSynonyms("cost costume"))

	// Multi-word variants are replaced too.
	assert.Equal(t, "sách hay", ExpandSynonyms("sách đáng đọc"))

	// Canonical replacement of a leading noun variant.
	assert.Equal(t, "sách conan", ExpandSynonyms("cuốn conan"))

	// Diacritic boundaries: "mua" must not fire inside another word.
	assert.Equal(t, "đặt sách", ExpandSynonyms("mua sách"))
}

func TestRemoveStopwords(t *testing.T) {
	assert.Equal(t, "sách nam cao", RemoveStopwords("sách của nam cao"))
	assert.Equal(t, "tìm sách", RemoveStopwords("tìm sách nhé"))
}

func TestReplaceWholeWord(t *testing.T) {
	tests := []struct {
		text, word, repl, want string
	}{
		{"mua mua", "mua", "đặt", "đặt đặt"},
		{"muamua", "mua", "đặt", "muamua"},
		{"tiền", "tiền", "giá", "giá"},
		{"book", "book", "sách", "sách"},
		{"bookcase", "book", "sách", "bookcase"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, replaceWholeWord(tt.text, tt.word, tt.repl))
	}
}

func TestContainsWholeWord(t *testing.T) {
	assert.True(t, containsWholeWord("tìm sách conan ngay", "conan"))
	assert.False(t, containsWholeWord("conanxyz", "conan"))
	assert.True(t, containsWholeWord("harry potter tập 1", "harry potter"))
}
