package chunker

import (
	"regexp"
	"strings"
)

// Segment is a token-bounded slice of source text ready for extraction.
type Segment struct {
	Text          string `json:"text"`
	Index         int    `json:"index"`
	TotalSegments int    `json:"total_segments"`
	TokenCount    int    `json:"token_count"`
	SourcePage    int    `json:"source_page,omitempty"`
	SourceSection string `json:"source_section,omitempty"`
}

// Document is one text body queued for chunking, with source metadata
// carried onto every segment it produces.
type Document struct {
	Text    string
	Page    int
	Section string
}

// Chunker splits text into segments that fit a model's input budget while
// preserving paragraph and sentence boundaries where possible.
type Chunker struct {
	maxTokens     int
	overlapTokens int
	counter       TokenCounter
}

// New creates a Chunker. A nil counter gets the word heuristic.
func New(maxTokens, overlapTokens int, counter TokenCounter) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if counter == nil {
		counter = HeuristicCounter{}
	}
	return &Chunker{
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
		counter:       counter,
	}
}

// CountTokens exposes the chunker's token counter.
func (c *Chunker) CountTokens(text string) int {
	return c.counter.Count(text)
}

var paragraphRe = regexp.MustCompile(`\n\s*\n`)

// ChunkText splits one text body into ordered segments. Whitespace-only
// input yields no segments; input within the token budget yields exactly
// one segment carrying its exact token count.
func (c *Chunker) ChunkText(text string, page int, section string) []Segment {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	total := c.counter.Count(text)
	if total <= c.maxTokens {
		return []Segment{{
			Text:          trimmed,
			Index:         0,
			TotalSegments: 1,
			TokenCount:    total,
			SourcePage:    page,
			SourceSection: section,
		}}
	}

	paragraphs := splitParagraphs(text)

	var chunks []string
	var parts []string
	partTokens := 0

	flush := func() {
		if len(parts) > 0 {
			chunks = append(chunks, strings.Join(parts, "\n\n"))
		}
	}

	for _, para := range paragraphs {
		paraTokens := c.counter.Count(para)

		// A paragraph that alone exceeds the budget is split on
		// sentence boundaries, and words as a last resort.
		if paraTokens > c.maxTokens {
			flush()
			parts = nil
			partTokens = 0
			chunks = append(chunks, c.splitLargeParagraph(para)...)
			continue
		}

		if partTokens+paraTokens > c.maxTokens-c.overlapTokens {
			if len(parts) > 0 {
				flush()
				// Carry the closing paragraph forward as overlap
				// when it fits the overlap budget.
				last := parts[len(parts)-1]
				if lastTokens := c.counter.Count(last); lastTokens <= c.overlapTokens {
					parts = []string{last, para}
					partTokens = lastTokens + paraTokens
				} else {
					parts = []string{para}
					partTokens = paraTokens
				}
			} else {
				parts = []string{para}
				partTokens = paraTokens
			}
		} else {
			parts = append(parts, para)
			partTokens += paraTokens
		}
	}
	flush()

	segments := make([]Segment, len(chunks))
	for i, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		segments[i] = Segment{
			Text:          chunk,
			Index:         i,
			TotalSegments: len(chunks),
			TokenCount:    c.counter.Count(chunk),
			SourcePage:    page,
			SourceSection: section,
		}
	}
	return segments
}

// ChunkDocuments chunks a batch of documents and renumbers the segments
// globally so index/total reflect the whole batch, in document order.
func (c *Chunker) ChunkDocuments(docs []Document) []Segment {
	var all []Segment
	for _, doc := range docs {
		all = append(all, c.ChunkText(doc.Text, doc.Page, doc.Section)...)
	}
	for i := range all {
		all[i].Index = i
		all[i].TotalSegments = len(all)
	}
	return all
}

func splitParagraphs(text string) []string {
	raw := paragraphRe.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitLargeParagraph packs sentences greedily; a sentence that alone
// exceeds the budget drops down to word packing.
func (c *Chunker) splitLargeParagraph(text string) []string {
	sentences := splitSentences(text)

	var chunks []string
	var parts []string
	partTokens := 0

	for _, sent := range sentences {
		sentTokens := c.counter.Count(sent)

		if sentTokens > c.maxTokens {
			if len(parts) > 0 {
				chunks = append(chunks, strings.Join(parts, " "))
				parts = nil
				partTokens = 0
			}
			chunks = append(chunks, c.splitByWords(sent)...)
			continue
		}

		if partTokens+sentTokens > c.maxTokens {
			if len(parts) > 0 {
				chunks = append(chunks, strings.Join(parts, " "))
			}
			parts = []string{sent}
			partTokens = sentTokens
		} else {
			parts = append(parts, sent)
			partTokens += sentTokens
		}
	}
	if len(parts) > 0 {
		chunks = append(chunks, strings.Join(parts, " "))
	}
	return chunks
}

func (c *Chunker) splitByWords(text string) []string {
	words := strings.Fields(text)

	var chunks []string
	var parts []string
	partTokens := 0

	for _, word := range words {
		wordTokens := c.counter.Count(word + " ")
		if partTokens+wordTokens > c.maxTokens {
			if len(parts) > 0 {
				chunks = append(chunks, strings.Join(parts, " "))
			}
			parts = []string{word}
			partTokens = wordTokens
		} else {
			parts = append(parts, word)
			partTokens += wordTokens
		}
	}
	if len(parts) > 0 {
		chunks = append(chunks, strings.Join(parts, " "))
	}
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
