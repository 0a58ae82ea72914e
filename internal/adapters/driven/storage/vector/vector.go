// Package vector holds the embedding encoding and math shared by the stores
// that rank candidates in process and by the embedding cache.
package vector

import (
	"encoding/binary"
	"math"
	"sort"
)

// Encode converts an embedding to little-endian float32 bytes for storage.
func Encode(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode converts stored bytes back to an embedding.
func Decode(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Scored is a candidate index with its similarity.
type Scored struct {
	Index int
	Score float64
}

// Rank scores every candidate against query and returns the best topK whose
// score is at least threshold, best first. Ties keep candidate order.
// A non-positive topK returns every match.
func Rank(query []float32, candidates [][]float32, threshold float64, topK int) []Scored {
	out := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		s := Cosine(query, c)
		if s < threshold {
			continue
		}
		out = append(out, Scored{Index: i, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
