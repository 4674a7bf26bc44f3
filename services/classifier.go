package services

import (
	"strings"
	"unicode"
)

// Intent is the category of a chat message.
type Intent string

const (
	IntentPrice   Intent = "price_inquiry"
	IntentMarket  Intent = "market_analysis"
	IntentQuality Intent = "quality_inquiry"
	IntentStorage Intent = "storage_advice"
	IntentGeneral Intent = "general"
)

// intentKeywords is checked in order; the first category with a hit wins.
// Keywords match as word prefixes so inflections ("prices", "ధరలు") count.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPrice, []string{
		"price", "cost", "rate", "expensive", "cheap",
		"कीमत", "किमत", "दाम", "भाव", "रेट",
		"ధర", "రేటు", "ఖరీదు",
	}},
	{IntentMarket, []string{
		"market", "trend", "demand", "supply", "analysis",
		"बाजार", "बाज़ार", "मांग", "रुझान",
		"మార్కెట్", "డిమాండ్", "ధోరణి",
	}},
	{IntentQuality, []string{
		"quality", "grade", "grading", "variety",
		"गुणवत्ता", "ग्रेड", "किस्म",
		"నాణ్యత", "గ్రేడ్", "రకం",
	}},
	{IntentStorage, []string{
		"storage", "store", "preserve", "warehouse", "moisture", "pest",
		"भंडारण", "गोदाम", "रखरखाव",
		"నిల్వ", "గిడ్డంగి",
	}},
}

// Classify assigns a message to one intent using case-insensitive keyword
// matching, with precedence price > market > quality > storage > general.
func Classify(message string) Intent {
	words := tokenize(message)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return group.intent
				}
			}
		}
	}
	return IntentGeneral
}

// tokenize lowercases text and splits it into words. Combining marks stay
// attached so Devanagari and Telugu words survive intact.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r)
	})
}

// mentionedRiceType returns the first known rice type named in the message.
func mentionedRiceType(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, rt := range RiceTypes {
		if strings.Contains(lower, strings.ToLower(rt)) {
			return rt, true
		}
	}
	return "", false
}
