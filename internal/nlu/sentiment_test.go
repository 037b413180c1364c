package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bookbot/internal/types"
)

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want types.Sentiment
	}{
		{"empty is neutral", "", types.SentimentNeutral},
		{"plain request is neutral", "cho tôi xem danh sách", types.SentimentNeutral},
		{"positive keyword", "truyện này hay", types.SentimentPositive},
		{"negative keyword", "truyện này chán", types.SentimentNegative},
		{"excited beats positive", "wow truyện này hay", types.SentimentExcited},
		{"frustrated", "giúp tôi với", types.SentimentFrustrated},
		{"tie is neutral", "hay nhưng chán", types.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySentiment(tt.in))
		})
	}
}

func TestClassifySentimentWordOrderIndependent(t *testing.T) {
	// Scoring is set-intersection based, so permuting words cannot change
	// the tag.
	a := ClassifySentiment("truyện hay tuyệt đẹp")
	b := ClassifySentiment("đẹp tuyệt hay truyện")
	assert.Equal(t, a, b)
	assert.Equal(t, types.SentimentPositive, a)
}

func TestClassifySentimentDistinctWords(t *testing.T) {
	// Repeating a keyword does not inflate its count; words form a set.
	assert.Equal(t, types.SentimentNeutral, ClassifySentiment("hay hay chán"))
}
