package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWantsRecommendations(t *testing.T) {
	positive := []string{
		"rekomendasi pakan untuk sapi dong",
		"Ada LIMBAH apa saja?",
		"saya mau beli sekam",
		"cocok ga kulit singkong buat kambing",
		"produk apa yang bagus untuk kompos?",
	}
	for _, msg := range positive {
		assert.True(t, WantsRecommendations(msg), msg)
	}

	negative := []string{
		"halo",
		"apa kabar?",
		"terima kasih banyak",
		"",
	}
	for _, msg := range negative {
		assert.False(t, WantsRecommendations(msg), msg)
	}
}
