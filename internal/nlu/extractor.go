package nlu

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"bookbot/internal/logging"
	"bookbot/internal/types"
)

// =============================================================================
// ENTITY EXTRACTOR
// =============================================================================

// DefaultFuzzyThreshold is the partial-similarity floor for authors and
// categories; DefaultTitleThreshold the lower floor for book titles.
const (
	DefaultFuzzyThreshold = 80
	DefaultTitleThreshold = 60
)

// indexed pairs a lower-cased lookup key with the original catalog value.
type indexed struct {
	key      string
	original string
}

// Extractor resolves book titles, authors and categories out of free text
// against a catalog snapshot, plus quantity/phone/address pattern
// extraction. Indices are rebuilt whole on catalog change; reads take a
// shared lock so extraction never observes a half-built index.
type Extractor struct {
	mu sync.RWMutex

	// titlesByLength is sorted longest-first so a contained shorter title
	// never shadows a longer one.
	titlesByLength []string
	authors        []indexed
	categories     []indexed

	fuzzyThreshold int
	titleThreshold int
}

// NewExtractor builds an extractor over the given catalog snapshot.
// Non-positive thresholds fall back to the defaults.
func NewExtractor(books []types.Book, fuzzyThreshold, titleThreshold int) *Extractor {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	if titleThreshold <= 0 {
		titleThreshold = DefaultTitleThreshold
	}
	e := &Extractor{fuzzyThreshold: fuzzyThreshold, titleThreshold: titleThreshold}
	e.Rebuild(books)
	return e
}

// Rebuild replaces the lookup indices from a fresh catalog snapshot. The
// three indices are independent, so they build in parallel.
func (e *Extractor) Rebuild(books []types.Book) {
	var (
		titles     []string
		authors    []indexed
		categories []indexed
	)

	var g errgroup.Group
	g.Go(func() error {
		seen := make(map[string]struct{}, len(books))
		for _, b := range books {
			title := strings.TrimSpace(b.Title)
			if title == "" {
				continue
			}
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			titles = append(titles, title)
		}
		sort.SliceStable(titles, func(i, j int) bool {
			return utf8.RuneCountInString(titles[i]) > utf8.RuneCountInString(titles[j])
		})
		return nil
	})
	g.Go(func() error {
		authors = buildIndex(books, func(b types.Book) string { return b.Author })
		return nil
	})
	g.Go(func() error {
		categories = buildIndex(books, func(b types.Book) string { return b.Category })
		return nil
	})
	_ = g.Wait()

	e.mu.Lock()
	e.titlesByLength = titles
	e.authors = authors
	e.categories = categories
	e.mu.Unlock()

	logging.NLU("extractor rebuilt: %d titles, %d authors, %d categories",
		len(titles), len(authors), len(categories))
}

func buildIndex(books []types.Book, field func(types.Book) string) []indexed {
	var out []indexed
	seen := make(map[string]struct{}, len(books))
	for _, b := range books {
		v := strings.TrimSpace(field(b))
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, indexed{key: key, original: v})
	}
	return out
}

// ExtractTitle resolves a catalog title mentioned in text. Candidates are
// tried longest-first: whole-word containment wins, then raw substring
// containment, then the best partial-similarity score at or above the title
// threshold.
func (e *Extractor) ExtractTitle(text string) (string, bool) {
	e.mu.RLock()
	titles := e.titlesByLength
	threshold := e.titleThreshold
	e.mu.RUnlock()

	if len(titles) == 0 {
		return "", false
	}
	textLower := strings.ToLower(text)

	for _, title := range titles {
		if containsWholeWord(textLower, strings.ToLower(title)) {
			return title, true
		}
	}
	for _, title := range titles {
		if strings.Contains(textLower, strings.ToLower(title)) {
			return title, true
		}
	}

	best, score := bestPartialMatch(text, titles)
	if best != "" && score >= threshold {
		return best, true
	}
	return "", false
}

// ExtractAuthor resolves an author name: exact containment against the
// index first, then partial similarity at or above the configured
// threshold. A score of exactly the threshold is accepted.
func (e *Extractor) ExtractAuthor(text string) (string, bool) {
	e.mu.RLock()
	authors := e.authors
	threshold := e.fuzzyThreshold
	e.mu.RUnlock()
	return matchIndexed(text, authors, threshold)
}

// ExtractCategory is the category analogue of ExtractAuthor.
func (e *Extractor) ExtractCategory(text string) (string, bool) {
	e.mu.RLock()
	categories := e.categories
	threshold := e.fuzzyThreshold
	e.mu.RUnlock()
	return matchIndexed(text, categories, threshold)
}

func matchIndexed(text string, index []indexed, threshold int) (string, bool) {
	if len(index) == 0 {
		return "", false
	}
	normalized := Normalize(text)

	for _, entry := range index {
		if strings.Contains(normalized, entry.key) {
			return entry.original, true
		}
	}

	candidates := make([]string, len(index))
	for i, entry := range index {
		candidates[i] = entry.original
	}
	best, score := bestPartialMatch(normalized, candidates)
	if best != "" && score >= threshold {
		return best, true
	}
	return "", false
}

// =============================================================================
// PATTERN EXTRACTION
// =============================================================================

var (
	standaloneIntRe = regexp.MustCompile(`\b(\d+)\b`)

	// Ordered Vietnamese phone shapes; first hit wins.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{10,11})`),
		regexp.MustCompile(`(\+84\d{9,10})`),
		regexp.MustCompile(`(0\d{9,10})`),
	}

	phoneDigitsRe = regexp.MustCompile(`\d{9,11}`)
)

// addressKeywords mark where an address likely starts in free text.
var addressKeywords = []string{
	"địa chỉ", "address", "tại", "ở", "số", "đường", "phố",
	"quận", "huyện", "tỉnh", "thành phố",
}

// ExtractQuantity returns the first standalone integer in text.
func (e *Extractor) ExtractQuantity(text string) (int, bool) {
	m := standaloneIntRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractPhone returns the first phone-shaped digit run in text.
func (e *Extractor) ExtractPhone(text string) (string, bool) {
	for _, p := range phonePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractAddress strips phone-like digit runs, then returns the text after
// the first address-indicator keyword. Falls back to the whole stripped
// text when no keyword is present.
func (e *Extractor) ExtractAddress(text string) (string, bool) {
	withoutPhone := phoneDigitsRe.ReplaceAllString(text, "")
	lower := strings.ToLower(withoutPhone)

	for _, kw := range addressKeywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(kw):]
		rest = strings.TrimSpace(nonWordRe.ReplaceAllString(rest, " "))
		if rest != "" {
			return rest, true
		}
	}

	fallback := strings.TrimSpace(withoutPhone)
	if fallback == "" {
		return "", false
	}
	return fallback, true
}
