// ABOUTME: CitedAnswer is a grounded response with the chunks it relied on
// ABOUTME: An empty citation list always carries the insufficient-context marker
package models

// InsufficientContext is the canonical answer when the materials cannot ground a response
const InsufficientContext = "I couldn't find information about that in the uploaded study materials."

// Citation points a reader at the passage behind an answer
type Citation struct {
	ChunkID  string `json:"chunk_id"`
	Document string `json:"source_document"`
	// Span is the cited chunk's UTF-8 byte range in the normalized text
	Span  Span    `json:"char_span"`
	Score float64 `json:"score"`
}

// CitedAnswer is the Answerer's output
type CitedAnswer struct {
	Text          string     `json:"answer_text"`
	CitedChunkIDs []string   `json:"cited_chunk_ids"`
	Citations     []Citation `json:"citations,omitempty"`
	Insufficient  bool       `json:"insufficient_context"`
}

// InsufficientAnswer returns the marker answer
func InsufficientAnswer() CitedAnswer {
	return CitedAnswer{
		Text:          InsufficientContext,
		CitedChunkIDs: []string{},
		Insufficient:  true,
	}
}
