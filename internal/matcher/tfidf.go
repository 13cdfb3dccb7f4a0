package matcher

import (
	"math"
)

// TFIDF is a lexical embedding backend: it vectorizes a batch of texts
// with term-frequency / inverse-document-frequency weights over the
// batch vocabulary. It stands in when no semantic model is configured
// and keeps the semantic factor purely lexical.
type TFIDF struct{}

// NewTFIDF creates the lexical embedder.
func NewTFIDF() *TFIDF { return &TFIDF{} }

// Embed vectorizes all texts against a shared vocabulary. Vectors are
// L2-normalized so cosine similarity reduces to a dot product.
func (TFIDF) Embed(texts []string) ([][]float64, error) {
	docs := make([][]string, len(texts))
	vocab := make(map[string]int)
	df := make(map[string]int)
	for i, text := range texts {
		docs[i] = tokenize(text)
		seen := make(map[string]struct{})
		for _, tok := range docs[i] {
			if _, ok := vocab[tok]; !ok {
				vocab[tok] = len(vocab)
			}
			seen[tok] = struct{}{}
		}
		for tok := range seen {
			df[tok]++
		}
	}

	n := float64(len(texts))
	idf := make(map[string]float64, len(vocab))
	for tok := range vocab {
		idf[tok] = math.Log((n+1)/(float64(df[tok])+1)) + 1
	}

	vectors := make([][]float64, len(texts))
	for i, toks := range docs {
		vec := make([]float64, len(vocab))
		if len(toks) > 0 {
			for _, tok := range toks {
				vec[vocab[tok]] += 1 / float64(len(toks))
			}
			for tok, idx := range vocab {
				vec[idx] *= idf[tok]
			}
			normalize(vec)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// cosine computes similarity between equal-length vectors, clamped to
// [0,1] so backends with signed components stay inside score bounds.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
