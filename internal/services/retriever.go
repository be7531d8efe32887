package services

import (
	"math"
	"sort"

	"docchat/internal/models"
)

// Retriever picks the chunks most useful for answering a query using
// maximal marginal relevance: candidates are the FetchK chunks closest to the
// query, and from those K are chosen trading relevance against redundancy.
// Lambda 1 is pure relevance, 0 is pure diversity.
type Retriever struct {
	K      int
	FetchK int
	Lambda float64
}

func NewRetriever(k, fetchK int, lambda float64) *Retriever {
	if fetchK < k {
		fetchK = k
	}
	return &Retriever{K: k, FetchK: fetchK, Lambda: lambda}
}

type scoredChunk struct {
	chunk models.Chunk
	score float64
}

func (r *Retriever) Select(query []float32, chunks []models.Chunk) []models.Chunk {
	if len(chunks) == 0 || r.K <= 0 {
		return nil
	}

	candidates := make([]scoredChunk, 0, len(chunks))
	for _, c := range chunks {
		candidates = append(candidates, scoredChunk{chunk: c, score: cosineSimilarity(query, c.Embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > r.FetchK {
		candidates = candidates[:r.FetchK]
	}

	k := r.K
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := []int{0}
	used := map[int]bool{0: true}
	for len(selected) < k {
		best, bestScore := -1, math.Inf(-1)
		for i, c := range candidates {
			if used[i] {
				continue
			}
			redundancy := math.Inf(-1)
			for _, j := range selected {
				if sim := cosineSimilarity(c.chunk.Embedding, candidates[j].chunk.Embedding); sim > redundancy {
					redundancy = sim
				}
			}
			score := r.Lambda*c.score - (1-r.Lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		selected = append(selected, best)
		used[best] = true
	}

	out := make([]models.Chunk, 0, len(selected))
	for _, i := range selected {
		out = append(out, candidates[i].chunk)
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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
