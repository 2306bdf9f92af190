package search

import "strings"

// recommendationKeywords are the Indonesian terms that signal the user is
// asking about livestock, feed or products rather than making small talk.
var recommendationKeywords = []string{
	"sapi",
	"kambing",
	"ayam",
	"ternak",
	"pakan",
	"kompos",
	"biogas",
	"beli",
	"jual",
	"produk",
	"rekomendasi",
	"limbah",
	"sekam",
	"ampas",
	"kulit singkong",
	"padi",
}

// WantsRecommendations reports whether the chat message should trigger
// product retrieval. A plain substring match keeps this cheap enough to run
// on every message.
func WantsRecommendations(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range recommendationKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
