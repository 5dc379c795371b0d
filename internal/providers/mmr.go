package providers

import "math"

// cosineSimilarity is used by MMR rerank to penalize near-duplicate vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// mmrRerank applies Maximal Marginal Relevance to results with vectors,
// balancing relevance (score) against diversity (1 - max similarity to
// already-selected items) per lambda. Results without a vector keep their
// original relative order appended after the ones MMR can compare.
func mmrRerank(results []SearchResult, lambda float64, limit int) []SearchResult {
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}

	var withVec, withoutVec []SearchResult
	for _, r := range results {
		if len(r.Vector) > 0 {
			withVec = append(withVec, r)
		} else {
			withoutVec = append(withoutVec, r)
		}
	}

	selected := make([]SearchResult, 0, limit)
	remaining := append([]SearchResult{}, withVec...)

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(cand.Vector, s.Vector); sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := lambda*cand.Score - (1-lambda)*maxSim
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	for _, r := range withoutVec {
		if len(selected) >= limit {
			break
		}
		selected = append(selected, r)
	}
	return selected
}
