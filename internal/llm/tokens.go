package llm

import (
	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding works for GPT-3.5/GPT-4 and most OpenAI-compatible models
const fallbackEncoding = "cl100k_base"

// TokenCounter counts tokens in model output.
type TokenCounter interface {
	CountTokens(text string) int
}

// TokenCounterFunc adapts a function to TokenCounter.
type TokenCounterFunc func(text string) int

// CountTokens implements TokenCounter.
func (f TokenCounterFunc) CountTokens(text string) int { return f(text) }

// Tokenizer tiktoken-backed TokenCounter. A nil encoder counts zero.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the encoding for model, falling back to cl100k_base.
// The returned Tokenizer is always usable; err reports that counting is disabled.
func NewTokenizer(model string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return &Tokenizer{enc: enc}, nil
	}
	enc, err = tiktoken.GetEncoding(fallbackEncoding)
	if err != nil {
		return &Tokenizer{}, err
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens counts tokens in text
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}
