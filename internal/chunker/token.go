package chunker

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens the way the downstream model will.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a real BPE vocabulary.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for the given model, falling
// back to cl100k_base for models tiktoken does not know.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// HeuristicCounter approximates tokens from word count (~1.33 tokens per
// English word). Used when the BPE vocabulary cannot be loaded; whichever
// counter is chosen must be used for the whole run.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// NewCounter returns the exact tokenizer when available, otherwise the
// word heuristic.
func NewCounter(model string) TokenCounter {
	if c, err := NewTiktokenCounter(model); err == nil {
		return c
	}
	return HeuristicCounter{}
}
