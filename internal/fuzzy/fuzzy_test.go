package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"abc", "", 3},
		{"", "abcd", 4},
		{"flaw", "lawn", 2},
		{"scholarship", "scholarship", 0},
		{"scholership", "scholarship", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("kitten", "kitten"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 4.0/7.0, Similarity("kitten", "sitting"), 1e-9)
	assert.InDelta(t, 10.0/11.0, Similarity("scholership", "scholarship"), 1e-9)
}

func TestSimilarity_Range(t *testing.T) {
	pairs := [][2]string{
		{"a", "zzzzzz"}, {"hackathon", "hack"}, {"internship", "intern"}, {"xyz", "abc"},
	}
	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestScore(t *testing.T) {
	t.Run("short terms and tokens are ignored", func(t *testing.T) {
		assert.Equal(t, 0.0, Score([]string{"nsp"}, []string{"nsp"}))
		assert.Equal(t, 0.0, Score([]string{"grant"}, []string{"gra"}))
	})

	t.Run("below threshold contributes nothing", func(t *testing.T) {
		assert.Equal(t, 0.0, Score([]string{"kitten"}, []string{"sitting"}))
	})

	t.Run("exact token counts full weight", func(t *testing.T) {
		assert.InDelta(t, 5.0, Score([]string{"grant"}, []string{"grant"}), 1e-9)
	})

	t.Run("compounds across tokens", func(t *testing.T) {
		got := Score([]string{"portal"}, []string{"portal", "portals", "other"})
		assert.InDelta(t, 5.0+5.0*6.0/7.0, got, 1e-9)
	})
}
