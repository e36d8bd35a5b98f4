package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sowmatch/internal/errs"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q, want /messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("x-api-key header = %q", r.Header.Get("x-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"first"},{"type":"tool_use"},{"type":"text","text":"second"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{Endpoint: srv.URL, APIKey: "secret", Model: "test-model"})
	text, err := c.Complete(context.Background(), Request{
		System:     "system",
		Prompt:     "hello",
		History:    []Message{{Role: "user", Content: "earlier"}, {Role: "assistant", Content: "reply"}},
		SchemaHint: `{"summary": "..."}`,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "first\nsecond" {
		t.Errorf("Complete() = %q, want %q", text, "first\nsecond")
	}
	if got.Model != "test-model" || got.MaxTokens != 4000 {
		t.Errorf("request model/max_tokens = %q/%d", got.Model, got.MaxTokens)
	}
	if len(got.Messages) != 3 || got.Messages[2].Content != "hello" {
		t.Errorf("request messages = %+v", got.Messages)
	}
	if got.System == "system" {
		t.Error("schema hint was not appended to the system prompt")
	}
}

func TestAnthropicClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantKind      errs.Kind
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, errs.OracleUnavailable, true},
		{"overloaded", 529, `{}`, errs.OracleUnavailable, true},
		{"server error", http.StatusInternalServerError, `{}`, errs.OracleUnavailable, true},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`, errs.OracleUnavailable, false},
		{"truncated", http.StatusOK, `{"content":[{"type":"text","text":"{\"a\":"}],"stop_reason":"max_tokens"}`, errs.OracleParseFailure, false},
		{"bad envelope", http.StatusOK, `not json`, errs.OracleParseFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewAnthropicClient(AnthropicConfig{Endpoint: srv.URL, APIKey: "k"})
			_, err := c.Complete(context.Background(), Request{Prompt: "x"})
			if errs.KindOf(err) != tt.wantKind {
				t.Fatalf("Complete() error kind = %q, want %q (err=%v)", errs.KindOf(err), tt.wantKind, err)
			}
			if errs.IsTransient(err) != tt.wantTransient {
				t.Errorf("IsTransient() = %v, want %v", errs.IsTransient(err), tt.wantTransient)
			}
		})
	}
}

func TestAnthropicClient_MissingKey(t *testing.T) {
	c := NewAnthropicClient(AnthropicConfig{})
	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, errs.ErrOracleUnavailable) {
		t.Errorf("Complete() error = %v, want OracleUnavailable", err)
	}
}

type recordingObserver struct {
	calls atomic.Int32
}

func (o *recordingObserver) ObserveOracleCall(string, errs.Kind, time.Duration) {
	o.calls.Add(1)
}

func TestGuarded_RetriesTransientOnce(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(ctx context.Context, req Request) (string, error) {
		calls.Add(1)
		return "", &errs.Error{Kind: errs.OracleUnavailable, Msg: "connection reset", Transient: true}
	})
	obs := &recordingObserver{}
	g := NewGuarded(inner, Policy{Timeout: time.Second, Retries: 1, RetryWait: time.Millisecond}, quietLogger(), obs)

	_, err := g.Complete(context.Background(), Request{Operation: "analyze"})
	if !errors.Is(err, errs.ErrOracleUnavailable) {
		t.Fatalf("Complete() error = %v, want OracleUnavailable", err)
	}
	if calls.Load() != 2 {
		t.Errorf("oracle called %d times, want 2", calls.Load())
	}
	if obs.calls.Load() != 2 {
		t.Errorf("observer saw %d calls, want 2", obs.calls.Load())
	}
}

func TestGuarded_RecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(ctx context.Context, req Request) (string, error) {
		if calls.Add(1) == 1 {
			return "", &errs.Error{Kind: errs.OracleUnavailable, Transient: true}
		}
		return "ok", nil
	})
	g := NewGuarded(inner, Policy{Timeout: time.Second, Retries: 1, RetryWait: time.Millisecond}, quietLogger(), nil)

	text, err := g.Complete(context.Background(), Request{})
	if err != nil || text != "ok" {
		t.Fatalf("Complete() = (%q, %v), want (ok, nil)", text, err)
	}
}

func TestGuarded_NoRetryOnPermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *errs.Error
	}{
		{"timeout", &errs.Error{Kind: errs.OracleTimeout, Transient: true}, errs.ErrOracleTimeout},
		{"parse failure", &errs.Error{Kind: errs.OracleParseFailure}, errs.ErrOracleParseFailure},
		{"bad request", &errs.Error{Kind: errs.OracleUnavailable}, errs.ErrOracleUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			inner := Func(func(ctx context.Context, req Request) (string, error) {
				calls.Add(1)
				return "", tt.err
			})
			g := NewGuarded(inner, Policy{Timeout: time.Second, Retries: 1, RetryWait: time.Millisecond}, quietLogger(), nil)

			_, err := g.Complete(context.Background(), Request{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Complete() error = %v, want kind %q", err, tt.want.Kind)
			}
			if calls.Load() != 1 {
				t.Errorf("oracle called %d times, want 1", calls.Load())
			}
		})
	}
}

func TestGuarded_TimeoutIsClassified(t *testing.T) {
	inner := Func(func(ctx context.Context, req Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := NewGuarded(inner, Policy{Timeout: 10 * time.Millisecond, Retries: 1, RetryWait: time.Millisecond}, quietLogger(), nil)

	_, err := g.Complete(context.Background(), Request{})
	if !errors.Is(err, errs.ErrOracleTimeout) {
		t.Errorf("Complete() error = %v, want OracleTimeout", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type reply struct {
		Summary string `json:"summary"`
	}

	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"bare object", `{"summary":"ok"}`, "ok", false},
		{"fenced", "```json\n{\"summary\":\"fenced\"}\n```", "fenced", false},
		{"with prose", "Here is the analysis:\n{\"summary\":\"prose\"}\nLet me know.", "prose", false},
		{"braces inside strings", `{"summary":"a } b { c"}`, "a } b { c", false},
		{"truncated", `{"summary":"cut`, "", true},
		{"no object", "I cannot help with that.", "", true},
		{"wrong shape", `{"summary": 12}`, "", true},
		{"fence inside a string", "```json\n{\"summary\":\"run ```go test``` first\"}\n```", "run ```go test``` first", false},
		{"braces in prose before the object", "Fields use {name} placeholders.\n{\"summary\":\"after prose\"}", "after prose", false},
		{"truncated after prose braces", "See {x}.\n{\"summary\":\"cut", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r reply
			err := DecodeJSON("test", tt.text, &r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrOracleParseFailure) {
				t.Errorf("DecodeJSON() error kind = %q, want OracleParseFailure", errs.KindOf(err))
			}
			if r.Summary != tt.want {
				t.Errorf("Summary = %q, want %q", r.Summary, tt.want)
			}
		})
	}
}
