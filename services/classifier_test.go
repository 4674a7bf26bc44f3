package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want Intent
	}{
		{"What is the current rate for Basmati?", IntentPrice},
		{"PRICES are too high", IntentPrice},
		{"बासमती का भाव क्या है?", IntentPrice},
		{"సోనా మసూరి ధర ఎంత?", IntentPrice},
		{"How is the market looking this week?", IntentMarket},
		{"बाजार में मांग कैसी है", IntentMarket},
		{"Which grade should I buy?", IntentQuality},
		{"బియ్యం నాణ్యత ఎలా ఉంది", IntentQuality},
		{"How do I keep pests out of my warehouse?", IntentStorage},
		{"गोदाम में कैसे रखें", IntentStorage},
		{"Hello there", IntentGeneral},
		{"", IntentGeneral},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.msg), tc.msg)
	}
}

func TestClassify_Precedence(t *testing.T) {
	assert.Equal(t, IntentPrice, Classify("market price and storage tips"))
	assert.Equal(t, IntentMarket, Classify("quality trends in the market"))
	assert.Equal(t, IntentQuality, Classify("grade for storage"))
}

func TestClassify_MatchesWordPrefixesOnly(t *testing.T) {
	assert.Equal(t, IntentGeneral, Classify("my operator called"))
}

func TestMentionedRiceType(t *testing.T) {
	rt, ok := mentionedRiceType("price of sona masoori today")
	assert.True(t, ok)
	assert.Equal(t, "Sona Masoori", rt)

	_, ok = mentionedRiceType("price today")
	assert.False(t, ok)
}
