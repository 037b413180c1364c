package nlu

import (
	"regexp"

	"bookbot/internal/types"
)

// =============================================================================
// INTENT PATTERN TABLE
// =============================================================================
//
// Go's regexp \b only understands ASCII word characters, so a boundary next
// to a diacritic letter ("đặt", "giá") silently never matches. Every pattern
// is therefore wrapped as (^|\s)(core) and, when a trailing boundary is
// needed, (\s|$); matching reads the core capture group so spans and lengths
// stay boundary-free. Normalized text contains only letters, digits and
// single spaces, which makes whitespace the only boundary that can occur.

// wc matches one word character including Vietnamese letters.
const wc = `[\p{L}\p{N}_]`

// ws matches a run of word characters and spaces (multi-word names).
const ws = `[\p{L}\p{N}_\s]`

type compiledPattern struct {
	re *regexp.Regexp

	// tailVeto rejects a match when the capture after the keyword starts
	// with one of the excluded continuations. Matching resumes past the
	// keyword, the way a lookahead-capable engine would.
	tailVeto *regexp.Regexp
}

// pat wraps core with a leading word boundary.
func pat(core string) compiledPattern {
	return compiledPattern{re: regexp.MustCompile(`(^|\s)(` + core + `)`)}
}

// patB wraps core with leading and trailing word boundaries.
func patB(core string) compiledPattern {
	return compiledPattern{re: regexp.MustCompile(`(^|\s)(` + core + `)(\s|$)`)}
}

// intentEntry binds one intent to its ordered pattern list and fixed
// priority. Higher priority wins near-ties via a small ranking epsilon.
type intentEntry struct {
	intent   types.Intent
	priority int
	patterns []compiledPattern
}

// intentTable is evaluated in order: descending priority, ties resolved by
// position. The order itself is part of the contract; only strictly greater
// adjusted confidence replaces the current best.
var intentTable = []intentEntry{
	{types.IntentOrder, 10, []compiledPattern{
		pat(`(đặt|mua|order)\s+(sách|cuốn|quyển)`),
		pat(`(mua|đặt)\s+` + wc + `+`),
		pat(`đặt\s+mua`),
		pat(`order\s+` + wc + `+`),
		pat(`mua\s+` + wc + `+`),
	}},
	{types.IntentSearchByPrice, 9, []compiledPattern{
		pat(`(giá|sách)\s+(dưới|từ|trên|cao hơn|thấp hơn)\s*\d+`),
		pat(`(dưới|từ|trên)\s*\d+\s*(vnd|đồng|tiền)?`),
		pat(`giá\s+từ\s*\d+\s*đến\s*\d+`),
		pat(`từ\s*\d+\s*đến\s*\d+`),
	}},
	{types.IntentQuery, 8, []compiledPattern{
		pat(`(giá|bao nhiêu|thông tin|tra cứu)\s+(của|về)?\s*` + wc + `+`),
		pat(`(giá|bao nhiêu)\s+` + wc + `+`),
		pat(`thông tin\s+(về|của)\s+` + wc + `+`),
		pat(`tra cứu\s+` + wc + `+`),
		pat(wc + `+\s+(có|tồn tại|hiện có)\s+(bao nhiêu|giá|thông tin)`),
		pat(wc + `+\s+(bao nhiêu|giá|thông tin)`),
		pat(`(có bao nhiêu|giá bao nhiêu|thông tin gì)\s+(của|về)?\s*` + wc + `+`),
	}},
	{types.IntentRecommend, 7, []compiledPattern{
		pat(`(gợi ý|hay|tốt|đáng đọc|nên đọc)`),
		pat(`(sách|cuốn)\s+(hay|tốt|đáng đọc)`),
		pat(`gợi ý\s+(sách|cuốn)`),
		pat(`(hay nhất|bán chạy)`),
	}},
	{types.IntentSearchByCategory, 6, []compiledPattern{
		pat(`(thể loại|loại sách|sách về)\s+` + ws + `+`),
		pat(wc + `+\s+(thể loại|loại)`),
		pat(`sách\s+(về|thuộc loại)\s+` + ws + `+`),
	}},
	{types.IntentSearchByAuthor, 5, []compiledPattern{
		pat(`(tác giả|sách của|viết bởi)\s+` + ws + `+`),
		pat(ws + `+\s+(viết|tác giả)`),
		pat(`sách\s+(của|bởi)\s+` + ws + `+`),
		{
			// "sách <name>" but not "sách về ...", "sách hay", etc.
			re:       regexp.MustCompile(`(^|\s)(sách\s+(` + ws + `+))`),
			tailVeto: regexp.MustCompile(`^(?:về\s|hay(?:\s|$)|tốt(?:\s|$)|đáng đọc(?:\s|$))`),
		},
	}},
	{types.IntentSearchByTitle, 4, []compiledPattern{
		pat(`(tìm|tìm kiếm|có)\s+(sách|cuốn)\s+` + wc + `+`),
		pat(wc + `+\s+(có|tồn tại|hiện có)`),
		pat(`(sách|cuốn)\s+` + wc + `+`),
	}},
	{types.IntentRecommendByPrice, 3, []compiledPattern{
		pat(`(sách|cuốn)\s+(hay|tốt|đáng đọc)\s+(dưới|từ|trên)\s*\d+`),
		pat(`(hay|tốt|đáng đọc)\s+(dưới|từ|trên)\s*\d+`),
		pat(`gợi ý\s+(sách|cuốn)\s+(dưới|từ|trên)\s*\d+`),
	}},
	{types.IntentListCategories, 2, []compiledPattern{
		pat(`(cửa hàng|shop)\s+(có|những)\s+(loại sách|thể loại)`),
		pat(`(danh sách|có những)\s+(loại sách|thể loại)`),
		pat(`(loại sách|thể loại)\s+(gì|nào)`),
	}},
	{types.IntentCheckStock, 1, []compiledPattern{
		pat(`(tồn kho|còn hàng|có sẵn)\s+(của|về)?\s*` + wc + `+`),
		pat(wc + `+\s+(còn|có)\s+(bao nhiêu|mấy)`),
		pat(`(tồn kho|còn hàng)\s+` + wc + `+`),
	}},
	{types.IntentGreeting, 0, []compiledPattern{
		patB(`xin chào|chào|hello|hi`),
		pat(`chào\s+(bạn|anh|chị|em)`),
		pat(`hello\s+` + wc + `+`),
	}},
	{types.IntentGoodbye, 0, []compiledPattern{
		patB(`tạm biệt|bye|goodbye`),
		pat(`hẹn\s+gặp\s+lại`),
		pat(`bye\s+` + wc + `+`),
	}},
	{types.IntentHelp, 0, []compiledPattern{
		patB(`giúp|help|hướng dẫn`),
		pat(`(làm sao|như thế nào)\s+để`),
		pat(`help\s+` + wc + `+`),
	}},
}

// salientKeywords grant the 0.4 confidence bonus when contained anywhere in
// the matched span.
var salientKeywords = []string{
	"đặt", "mua", "giá", "tìm", "gợi ý", "cửa hàng", "sách", "của", "tác giả", "viết bởi",
}

// patternMatch is one core-group hit with byte offsets into the text.
type patternMatch struct {
	value string
	start int
	end   int
}

// findAll returns the non-overlapping core matches of p in text.
func (p compiledPattern) findAll(text string) []patternMatch {
	if p.tailVeto == nil {
		var out []patternMatch
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			out = append(out, patternMatch{value: text[m[4]:m[5]], start: m[4], end: m[5]})
		}
		return out
	}
	return p.findAllVetoed(text)
}

// findAllVetoed scans with the tail veto applied, resuming past the rejected
// keyword so later occurrences still get a chance.
func (p compiledPattern) findAllVetoed(text string) []patternMatch {
	var out []patternMatch
	offset := 0
	for offset < len(text) {
		m := p.re.FindStringSubmatchIndex(text[offset:])
		if m == nil {
			break
		}
		coreStart, coreEnd := offset+m[4], offset+m[5]
		tailStart := offset + m[6]
		if p.tailVeto.MatchString(text[tailStart:coreEnd]) {
			// Skip just past the keyword, not the whole greedy match.
			offset = tailStart
			continue
		}
		out = append(out, patternMatch{value: text[coreStart:coreEnd], start: coreStart, end: coreEnd})
		offset = coreEnd
	}
	return out
}
