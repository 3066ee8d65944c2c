package extract

// Item is a single candidate BOQ line item produced by the model.
// Optional numeric fields are pointers so "absent" is distinguishable
// from zero; the assembler's backfill rules depend on that.
type Item struct {
	ItemNumber     string   `json:"item_number"`
	Description    string   `json:"description"`
	Quantity       *float64 `json:"quantity,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	Rate           *float64 `json:"rate,omitempty"`
	Amount         *float64 `json:"amount,omitempty"`
	Section        string   `json:"section,omitempty"`
	Specifications string   `json:"specifications,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Confidence     float64  `json:"confidence"`
	SourcePage     int      `json:"source_page,omitempty"`
	SourceChunk    int      `json:"source_chunk,omitempty"`
}

// LineTotal resolves the item's monetary contribution: explicit amount
// first, quantity*rate when both are present, zero otherwise.
func (it *Item) LineTotal() float64 {
	if it.Amount != nil {
		return *it.Amount
	}
	if it.Quantity != nil && it.Rate != nil {
		return *it.Quantity * *it.Rate
	}
	return 0
}

// Result aggregates extraction over a batch of chunks and tables.
// Per-chunk failures are recorded in Errors and never abort the batch.
type Result struct {
	Items             []Item   `json:"items"`
	TotalChunks       int      `json:"total_chunks"`
	SuccessfulChunks  int      `json:"successful_chunks"`
	FailedChunks      int      `json:"failed_chunks"`
	AverageConfidence float64  `json:"average_confidence"`
	Errors            []string `json:"errors,omitempty"`
}

// Merge folds another result into this one, recomputing the confidence
// average over both sets of successful chunks.
func (r *Result) Merge(other Result) {
	succBefore := r.SuccessfulChunks
	r.Items = append(r.Items, other.Items...)
	r.TotalChunks += other.TotalChunks
	r.SuccessfulChunks += other.SuccessfulChunks
	r.FailedChunks += other.FailedChunks
	r.Errors = append(r.Errors, other.Errors...)
	if r.SuccessfulChunks > 0 {
		r.AverageConfidence = (r.AverageConfidence*float64(succBefore) +
			other.AverageConfidence*float64(other.SuccessfulChunks)) / float64(r.SuccessfulChunks)
	}
}
