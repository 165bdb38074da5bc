// Hashed bag-of-tokens embeddings for episodic similarity search.
// Cheap, deterministic, and dependency-free: each token hashes into one of
// EmbedDim buckets and the vector is L2-normalized.
package memory

import (
	"hash/fnv"
	"math"
	"strings"
)

// EmbedDim is the embedding dimensionality.
const EmbedDim = 64

// Embed maps text to a normalized bucket-count vector. Identical text always
// produces identical vectors.
func Embed(text string) []float32 {
	v := make([]float32, EmbedDim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%EmbedDim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// Cosine returns the cosine similarity of two vectors. Mismatched lengths or
// zero-magnitude inputs score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// tokenize splits text into lowercase word tokens (letters, digits,
// underscores).
func tokenize(s string) []string {
	words := make([]string, 0, 8)
	var current strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}
