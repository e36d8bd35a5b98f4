// Package oracle talks to the text-generation service that performs all
// relevance judgment. The engine owns prompt construction and response
// parsing; this package only moves text and classifies failures.
package oracle

import "context"

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// Request is a single completion request.
type Request struct {
	// Operation labels the call for logs and metrics, e.g. "analyze".
	Operation string
	System    string
	Prompt    string
	// History precedes Prompt when set (chat).
	History   []Message
	MaxTokens int
	// SchemaHint names the expected reply shape; it is appended to the
	// system prompt so the oracle answers with bare JSON.
	SchemaHint string
}

// Oracle completes prompts.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func (r Request) messages() []Message {
	msgs := make([]Message, 0, len(r.History)+1)
	msgs = append(msgs, r.History...)
	if r.Prompt != "" {
		msgs = append(msgs, Message{Role: "user", Content: r.Prompt})
	}
	return msgs
}

func (r Request) system() string {
	if r.SchemaHint == "" {
		return r.System
	}
	return r.System + "\n\nRespond ONLY in valid JSON with this exact structure:\n" + r.SchemaHint
}
