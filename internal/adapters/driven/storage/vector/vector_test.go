package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEncodeDecode(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e-7}
	assert.Equal(t, v, Decode(Encode(v)))
	assert.Nil(t, Encode(nil))
	assert.Nil(t, Decode(nil))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestRank(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},     // 0.0
		{1, 1},     // 0.707
		{1, 0},     // 1.0
		{2, 0},     // 1.0, tie keeps order
		{1, 0.1},   // 0.995
		{-1, 0},    // -1
		{1, 2, 3},  // dimension mismatch
		{0.5, 0.5}, // 0.707
	}

	got := Rank(query, candidates, 0.5, 3)

	assert.Equal(t, []int{2, 3, 4}, indexes(got))
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)

	all := Rank(query, candidates, 0.5, 0)
	assert.Equal(t, []int{2, 3, 4, 1, 7}, indexes(all))
}

func TestRank_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dim := rapid.IntRange(1, 4).Draw(t, "dim")
		gen := rapid.SliceOfN(rapid.Float32Range(-1, 1), dim, dim)
		query := gen.Draw(t, "query")
		candidates := rapid.SliceOfN(gen, 0, 20).Draw(t, "candidates")
		threshold := rapid.Float64Range(-1, 1).Draw(t, "threshold")
		topK := rapid.IntRange(1, 10).Draw(t, "topK")

		got := Rank(query, candidates, threshold, topK)

		if len(got) > topK {
			t.Fatalf("got %d results, topK %d", len(got), topK)
		}
		for i, s := range got {
			if s.Score < threshold {
				t.Fatalf("score %f below threshold %f", s.Score, threshold)
			}
			if i > 0 && got[i-1].Score < s.Score {
				t.Fatalf("not sorted at %d", i)
			}
		}
	})
}

func indexes(s []Scored) []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = v.Index
	}
	return out
}
