package domain

// TargetWord is a bookmarked vocabulary entry selected as generation input.
type TargetWord struct {
	ID      int64  `json:"id"`
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
}

// WordIDs returns the ids of words in order.
func WordIDs(words []TargetWord) []int64 {
	ids := make([]int64, 0, len(words))
	for _, w := range words {
		ids = append(ids, w.ID)
	}
	return ids
}
