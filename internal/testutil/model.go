// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// StubModel is an llms.Model that answers from a script and records prompts.
type StubModel struct {
	mu sync.Mutex

	// Respond computes the answer for a prompt. When nil, Responses are
	// returned in order with the last one repeated.
	Respond   func(prompt string) string
	Responses []string
	Err       error

	Prompts []string
}

// NewStubModel returns a model answering with responses in order.
func NewStubModel(responses ...string) *StubModel {
	return &StubModel{Responses: responses}
}

// GenerateContent implements llms.Model.
func (m *StubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var sb strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				sb.WriteString(text.Text)
			}
		}
	}
	prompt := sb.String()

	m.mu.Lock()
	defer m.mu.Unlock()
	call := len(m.Prompts)
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return nil, m.Err
	}

	var answer string
	switch {
	case m.Respond != nil:
		answer = m.Respond(prompt)
	case len(m.Responses) > 0:
		answer = m.Responses[min(call, len(m.Responses)-1)]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: answer}},
	}, nil
}

// Call implements llms.Model.
func (m *StubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns how many prompts the model received.
func (m *StubModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// LastPrompt returns the most recent prompt.
func (m *StubModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}
