package nlu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbot/internal/types"
)

func TestDisambiguateOrderFollowUp(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "tôi muốn mua sách", &types.IntentResult{Intent: types.IntentOrder})

	result := &types.IntentResult{
		Intent:       types.IntentUnknown,
		Confidence:   0.2,
		OriginalText: "có",
	}
	cm.Disambiguate("s1", result)

	assert.Equal(t, types.IntentOrder, result.Intent)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestDisambiguateOrderNegation(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "đặt sách", &types.IntentResult{Intent: types.IntentOrder})

	result := &types.IntentResult{
		Intent:       types.IntentUnknown,
		Confidence:   0.1,
		OriginalText: "không, hủy đi",
	}
	cm.Disambiguate("s1", result)

	// Negative follow-ups still route to the order flow; the flow itself
	// interprets them as cancellation.
	assert.Equal(t, types.IntentOrder, result.Intent)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestDisambiguateSkipsConfidentResults(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "đặt sách", &types.IntentResult{Intent: types.IntentOrder})

	result := &types.IntentResult{
		Intent:       types.IntentGreeting,
		Confidence:   0.9,
		OriginalText: "có",
	}
	cm.Disambiguate("s1", result)

	assert.Equal(t, types.IntentGreeting, result.Intent)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestDisambiguateInjectsCategoryTopic(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "sách về trinh thám", &types.IntentResult{
		Intent: types.IntentSearchByCategory,
		Params: types.Parameters{Category: "trinh thám"},
	})

	result := &types.IntentResult{
		Intent:       types.IntentSearchByCategory,
		Confidence:   0.5,
		OriginalText: "còn cuốn nào nữa",
	}
	cm.Disambiguate("s1", result)

	assert.Equal(t, "trinh thám", result.Params.Category)
	assert.InDelta(t, 0.7, result.Confidence, 1e-9)
}

func TestDisambiguateCategoryConfidenceCapped(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "sách về trinh thám", &types.IntentResult{
		Intent: types.IntentSearchByCategory,
		Params: types.Parameters{Category: "trinh thám"},
	})

	result := &types.IntentResult{Confidence: 0.69, OriginalText: "nữa", Intent: types.IntentSearchByCategory}
	cm.Disambiguate("s1", result)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestDisambiguateNoHistory(t *testing.T) {
	cm := NewContextManager()
	result := &types.IntentResult{Intent: types.IntentUnknown, Confidence: 0.1, OriginalText: "có"}
	cm.Disambiguate("fresh", result)
	assert.Equal(t, types.IntentUnknown, result.Intent)
}

func TestSuggestionsComposition(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "sách về trinh thám", &types.IntentResult{
		Intent: types.IntentSearchByCategory,
		Params: types.Parameters{Category: "trinh thám"},
	})
	cm.Update("s1", "sách của nam cao", &types.IntentResult{
		Intent: types.IntentSearchByAuthor,
		Params: types.Parameters{Author: "nam cao"},
	})

	got := cm.Suggestions("s1", types.IntentSearchByCategory)
	assert.Equal(t, []string{
		"Sách về trinh thám",
		"Sách của nam cao",
		"Gợi ý sách hay",
		"Giá dưới 100000",
	}, got)
}

func TestSuggestionsCappedAtFive(t *testing.T) {
	cm := NewContextManager()
	for i := 0; i < 3; i++ {
		cm.Update("s1", "x", &types.IntentResult{
			Intent: types.IntentSearchByCategory,
			Params: types.Parameters{Category: fmt.Sprintf("cat%d", i)},
		})
		cm.Update("s1", "y", &types.IntentResult{
			Intent: types.IntentSearchByAuthor,
			Params: types.Parameters{Author: fmt.Sprintf("author%d", i)},
		})
	}

	got := cm.Suggestions("s1", types.IntentQuery)
	require.Len(t, got, 5)
	// Two categories, two authors, then the first intent suggestion.
	assert.Equal(t, "Sách về cat0", got[0])
	assert.Equal(t, "Sách về cat1", got[1])
	assert.Equal(t, "Sách của author0", got[2])
	assert.Equal(t, "Sách của author1", got[3])
	assert.Equal(t, "Đặt mua sách này", got[4])
}

func TestSuggestionsSentimentBased(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "giúp tôi", &types.IntentResult{
		Intent:    types.IntentHelp,
		Sentiment: types.SentimentFrustrated,
	})

	got := cm.Suggestions("s1", types.IntentHelp)
	assert.Equal(t, []string{"Hướng dẫn sử dụng", "Liên hệ hỗ trợ"}, got)
}

func TestPreferencesDeduplicated(t *testing.T) {
	cm := NewContextManager()
	for i := 0; i < 3; i++ {
		cm.Update("s1", "sách về trinh thám", &types.IntentResult{
			Intent: types.IntentSearchByCategory,
			Params: types.Parameters{Category: "trinh thám"},
		})
	}

	categories, _ := cm.Preferences("s1")
	assert.Equal(t, []string{"trinh thám"}, categories)
}

func TestSnapshotTracksTopicAndLastIntent(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "sách của nam cao", &types.IntentResult{
		Intent: types.IntentSearchByAuthor,
		Params: types.Parameters{Author: "nam cao"},
	})

	snap := cm.Snapshot("s1")
	assert.Equal(t, "nam cao", snap.CurrentTopic)
	assert.Equal(t, types.IntentSearchByAuthor, snap.LastIntent)
	assert.Equal(t, []string{"nam cao"}, snap.PreferredAuthors)
}

func TestClearDropsMemory(t *testing.T) {
	cm := NewContextManager()
	cm.Update("s1", "sách về trinh thám", &types.IntentResult{
		Intent: types.IntentSearchByCategory,
		Params: types.Parameters{Category: "trinh thám"},
	})
	cm.Clear("s1")

	snap := cm.Snapshot("s1")
	assert.Empty(t, snap.PreferredCategories)
	assert.Equal(t, types.Intent(""), snap.LastIntent)
}
