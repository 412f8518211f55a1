// ABOUTME: Retrieval result types returned by the Retriever
// ABOUTME: Ordered (chunk, score) pairs, descending by relevance, without duplicates
package models

// ScoredChunk pairs a chunk with its relevance to a query
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is an ordered, duplicate-free list of scored chunks
type RetrievalResult []ScoredChunk

// IDs returns the chunk ids in rank order
func (r RetrievalResult) IDs() []string {
	ids := make([]string, len(r))
	for i, sc := range r {
		ids[i] = sc.Chunk.ID
	}
	return ids
}

// AboveFloor returns the prefix of results whose score is at least floor
func (r RetrievalResult) AboveFloor(floor float64) RetrievalResult {
	var out RetrievalResult
	for _, sc := range r {
		if sc.Score >= floor {
			out = append(out, sc)
		}
	}
	return out
}
