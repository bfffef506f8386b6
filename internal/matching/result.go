package matching

import "orbit/internal/library"

// Result is the outcome of one title lookup. It is not persisted on its own.
type Result struct {
	Matched       bool         `json:"matched"`
	Confidence    float64      `json:"confidence"`
	ExternalID    int64        `json:"external_id,omitempty"`
	ExternalSlug  string       `json:"external_slug,omitempty"`
	Enriched      library.Game `json:"enriched"`
	OriginalTitle string       `json:"original_title"`
}

func (r Result) clone() Result {
	r.Enriched = r.Enriched.Clone()
	return r
}
