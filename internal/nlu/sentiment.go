package nlu

import (
	"strings"

	"bookbot/internal/types"
)

// =============================================================================
// SENTIMENT
// =============================================================================

// Keyword sets intersected against the utterance's distinct words.
// Multi-word entries only count when the utterance preserves them as a
// single token, matching set-intersection semantics.
var (
	positiveKeywords = wordSet(
		"tốt", "hay", "tuyệt", "xuất sắc", "đẹp", "thích", "yêu", "hài lòng",
		"vui", "hạnh phúc", "thú vị", "hấp dẫn", "cuốn hút", "ấn tượng",
		"cảm ơn", "thanks", "thank you", "cảm ơn bạn", "tuyệt vời",
		"hoàn hảo", "chất lượng", "đáng giá", "nên mua", "khuyên",
	)
	negativeKeywords = wordSet(
		"tệ", "xấu", "không thích", "ghét", "chán", "nhàm chán", "thất vọng",
		"buồn", "tức giận", "khó chịu", "phiền", "không hài lòng",
		"đắt", "mắc", "không đáng", "lừa đảo", "giả", "kém chất lượng",
		"hết hàng", "không có", "thất bại", "lỗi", "sai",
	)
	frustratedKeywords = wordSet(
		"tại sao", "sao lại", "không hiểu", "khó hiểu", "phức tạp",
		"rối rắm", "không biết", "làm sao", "như thế nào", "help",
		"giúp", "hướng dẫn", "không tìm thấy", "không có",
	)
	excitedKeywords = wordSet(
		"wow", "tuyệt quá", "amazing", "incredible", "fantastic",
		"tuyệt vời", "quá hay", "quá tốt", "thích quá", "mê quá",
		"đặt ngay", "mua ngay", "cần ngay", "gấp", "urgent",
	)
)

func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// ClassifySentiment tags one utterance with a sentiment. Tokenizes on
// whitespace into a set of distinct words and counts intersections with
// the four keyword sets. Resolution order is fixed so results are
// reproducible regardless of word order in the input.
func ClassifySentiment(text string) types.Sentiment {
	if text == "" {
		return types.SentimentNeutral
	}

	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[w] = struct{}{}
	}

	positive := intersectCount(words, positiveKeywords)
	negative := intersectCount(words, negativeKeywords)
	frustrated := intersectCount(words, frustratedKeywords)
	excited := intersectCount(words, excitedKeywords)

	switch {
	case excited > 0 && excited >= positive:
		return types.SentimentExcited
	case frustrated > 0 && frustrated >= negative:
		return types.SentimentFrustrated
	case positive > negative:
		return types.SentimentPositive
	case negative > positive:
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}

func intersectCount(words, keywords map[string]struct{}) int {
	n := 0
	for w := range words {
		if _, ok := keywords[w]; ok {
			n++
		}
	}
	return n
}
