package llmextract_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/broistadev/broista/internal/extract/llmextract"
	"github.com/broistadev/broista/pkg/provider/llm"
	"github.com/broistadev/broista/pkg/provider/llm/mock"
)

func TestExtractor_ParsesCandidateArray(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[
  {"product":"golden eagle","size":"medium","temp":"iced","mods":[],"qty":1},
  {"product":"rebel","size":"small","temp":null,"mods":["boba"],"qty":2}
]`,
		},
	}
	e := llmextract.New(provider)

	got, err := e.Extract(context.Background(), "medium iced golden eagle and two small rebels with boba")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(got), got)
	}
	if got[0].Product != "golden eagle" || got[0].Size != "medium" || got[0].Temperature != "iced" {
		t.Errorf("candidates[0]=%+v, want golden eagle/medium/iced", got[0])
	}
	if got[1].Product != "rebel" || got[1].Quantity != 2 {
		t.Errorf("candidates[1]=%+v, want rebel qty 2", got[1])
	}
}

func TestExtractor_SendsTranscriptAndPrompt(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `[]`},
	}
	e := llmextract.New(provider)

	_, err := e.Extract(context.Background(), "kids not so hot with whip")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(provider.CompleteCalls) != 1 {
		t.Fatalf("expected 1 Complete call, got %d", len(provider.CompleteCalls))
	}
	req := provider.CompleteCalls[0].Req

	if req.SystemPrompt == "" {
		t.Error("request has no system prompt")
	}
	if !strings.Contains(req.SystemPrompt, "JSON array") {
		t.Error("system prompt does not pin the output format")
	}
	if len(req.Messages) == 0 || !strings.Contains(req.Messages[0].Content, "kids not so hot") {
		t.Errorf("user message missing transcript, got: %+v", req.Messages)
	}
	if req.Temperature != 0 {
		t.Errorf("Temperature=%v, want 0", req.Temperature)
	}
}

func TestExtractor_EmptyTextSkipsLLM(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{}
	e := llmextract.New(provider)

	got, err := e.Extract(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if len(provider.CompleteCalls) != 0 {
		t.Errorf("expected 0 Complete calls, got %d", len(provider.CompleteCalls))
	}
}

func TestExtractor_ProviderErrorIsReturned(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("backend down")
	provider := &mock.Provider{CompleteErr: wantErr}
	e := llmextract.New(provider)

	_, err := e.Extract(context.Background(), "a mocha")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Extract error=%v, want wrapped %v", err, wantErr)
	}
}

func TestParseCandidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want int
	}{
		{
			name: "markdown fenced array",
			in:   "```json\n[{\"product\":\"mocha\",\"qty\":1}]\n```",
			want: 1,
		},
		{
			name: "array embedded in prose",
			in:   `Sure! Here are the items: [{"product":"latte","qty":1}] Hope that helps.`,
			want: 1,
		},
		{
			name: "object salvage from malformed array",
			in:   `[{"product":"mocha","qty":1}, {"product":"latte","qty":`,
			want: 1,
		},
		{
			name: "candidates without product are dropped",
			in:   `[{"product":"mocha"},{"size":"large"}]`,
			want: 1,
		},
		{
			name: "garbage yields nothing",
			in:   "I could not find any items.",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := llmextract.ParseCandidates(tt.in)
			if len(got) != tt.want {
				t.Errorf("got %d candidates, want %d: %+v", len(got), tt.want, got)
			}
		})
	}
}
