// Package nlu implements the rule-based understanding pipeline for bookbot:
// text normalization, sentiment tagging, priority-ranked intent
// classification, fuzzy entity extraction against the catalog, and
// per-session conversational context.
package nlu

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// =============================================================================
// TEXT NORMALIZATION
// =============================================================================

var (
	// Anything outside letters, digits, underscore and whitespace is noise.
	// \p{L} covers the full Vietnamese alphabet including diacritics.
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// synonymEntry maps variant spellings to one canonical form. Entries are
// applied in order; each variant is replaced on whole-word occurrences only.
type synonymEntry struct {
	canonical string
	variants  []string
}

// synonymTable drives ExpandSynonyms. Order matters: replacement is a single
// left-to-right pass per variant, so results are deterministic.
var synonymTable = []synonymEntry{
	{"sách", []string{"cuốn", "quyển", "tập", "book"}},
	{"giá", []string{"tiền", "cost", "price"}},
	{"tác giả", []string{"writer", "author"}},
	{"thể loại", []string{"category", "genre", "loại"}},
	{"đặt", []string{"mua", "order", "purchase"}},
	{"hay", []string{"tốt", "đáng đọc", "interesting", "good"}},
}

// stopwords dropped by RemoveStopwords.
var stopwords = map[string]struct{}{
	"của": {}, "và": {}, "hoặc": {}, "nhưng": {}, "mà": {}, "để": {},
	"với": {}, "từ": {}, "đến": {}, "trong": {}, "ngoài": {}, "trên": {},
	"dưới": {}, "giữa": {}, "bên": {}, "cạnh": {}, "gần": {}, "xa": {},
	"này": {}, "đó": {}, "kia": {}, "đây": {}, "nào": {}, "gì": {},
	"sao": {}, "thế": {}, "vậy": {}, "à": {}, "ạ": {}, "nhé": {},
	"nhỉ": {}, "đấy": {}, "thôi": {}, "thì": {},
}

// Normalize canonicalizes an utterance: lower-case, strip punctuation while
// preserving Vietnamese letters, collapse whitespace. Idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(strings.TrimSpace(text))
	text = nonWordRe.ReplaceAllString(text, " ")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ExpandSynonyms rewrites every whole-word occurrence of a known variant to
// its canonical form. Only whole words are touched; "cost" inside "costume"
// is left alone.
func ExpandSynonyms(text string) string {
	for _, entry := range synonymTable {
		for _, variant := range entry.variants {
			text = replaceWholeWord(text, variant, entry.canonical)
		}
	}
	return text
}

// RemoveStopwords drops common Vietnamese filler words.
func RemoveStopwords(text string) string {
	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, ok := stopwords[w]; !ok {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// isWordRune mirrors the word-character class used for boundary checks:
// any letter, digit, or underscore.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// replaceWholeWord replaces occurrences of word in text with repl, but only
// where the occurrence is delimited by non-word runes or the text edges.
// One left-to-right pass; the replacement itself is not rescanned. Go's
// regexp \b is ASCII-only, so diacritic words need this manual check.
func replaceWholeWord(text, word, repl string) string {
	if word == "" {
		return text
	}
	var b strings.Builder
	pos := 0
	for pos < len(text) {
		idx := strings.Index(text[pos:], word)
		if idx < 0 {
			break
		}
		start := pos + idx
		end := start + len(word)

		leftOK := start == 0
		if !leftOK {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			leftOK = !isWordRune(r)
		}
		rightOK := end == len(text)
		if !rightOK {
			r, _ := utf8.DecodeRuneInString(text[end:])
			rightOK = !isWordRune(r)
		}

		if leftOK && rightOK {
			b.WriteString(text[pos:start])
			b.WriteString(repl)
		} else {
			b.WriteString(text[pos:end])
		}
		pos = end
	}
	b.WriteString(text[pos:])
	return b.String()
}

// containsWholeWord reports whether word occurs in text delimited by
// non-word runes or the text edges.
func containsWholeWord(text, word string) bool {
	if word == "" {
		return false
	}
	pos := 0
	for pos < len(text) {
		idx := strings.Index(text[pos:], word)
		if idx < 0 {
			return false
		}
		start := pos + idx
		end := start + len(word)

		leftOK := start == 0
		if !leftOK {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			leftOK = !isWordRune(r)
		}
		rightOK := end == len(text)
		if !rightOK {
			r, _ := utf8.DecodeRuneInString(text[end:])
			rightOK = !isWordRune(r)
		}
		if leftOK && rightOK {
			return true
		}
		pos = end
	}
	return false
}
