package narrative

import (
	"context"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/paritylens/paritylens/internal/fairness"
	"github.com/paritylens/paritylens/internal/models"
)

// mockCompletionAPI replays canned responses.
type mockCompletionAPI struct {
	responses []openai.ChatCompletionResponse
	requests  []openai.ChatCompletionRequest
	err       error
}

func (m *mockCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func sampleResult() *models.RunResult {
	run := models.AnalysisRun{
		ID:          "run-1",
		Variant:     "general",
		Classifier:  "decile>=5",
		GroupField:  "race",
		RecordsRead: 90,
		RecordsKept: 83,
		TP:          15, FP: 20, TN: 33, FN: 15,
	}
	return &models.RunResult{
		Run: run,
		Groups: []models.GroupMetrics{
			models.NewGroupMetrics(run.ID, "African-American", fairness.ConfusionMatrix{TP: 5, FP: 15, TN: 10, FN: 10}),
			models.NewGroupMetrics(run.ID, "Hispanic", fairness.ConfusionMatrix{TN: 3}),
		},
		GroupStats: []models.GroupStat{
			{Group: "African-American", Count: 40, Share: 0.93, BaseRate: 0.375, MeanDecile: 5.4},
		},
	}
}

func TestSummarizeReturnsMessage(t *testing.T) {
	mock := &mockCompletionAPI{
		responses: []openai.ChatCompletionResponse{{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: "  The false positive rate differs between groups.\n",
				},
			}},
		}},
	}
	c := &Client{api: mock, model: "gpt-4o-mini"}

	got, err := c.Summarize(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "The false positive rate differs between groups." {
		t.Errorf("unexpected summary: %q", got)
	}

	if len(mock.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(mock.requests))
	}
	req := mock.requests[0]
	if req.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("expected system+user messages, got %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "Do not judge") {
		t.Errorf("system prompt missing the no-verdict instruction")
	}
}

func TestSummarizeNoChoices(t *testing.T) {
	mock := &mockCompletionAPI{responses: []openai.ChatCompletionResponse{{}}}
	c := &Client{api: mock, model: "gpt-4o-mini"}

	_, err := c.Summarize(context.Background(), sampleResult())
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestBuildPromptSpellsOutUndefined(t *testing.T) {
	prompt := BuildPrompt(sampleResult())

	for _, want := range []string{
		"grouped by race",
		"Group African-American: n=40",
		"FPR 0.600",
		"undefined (zero denominator)",
		"observed recidivism rate: 0.375",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// The Hispanic group has no predicted and no actual positives; its PPV
	// and FNR must not surface as numbers.
	if strings.Contains(prompt, "PPV 0.000") {
		t.Errorf("undefined PPV rendered as a number:\n%s", prompt)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Fatal("expected error for missing key")
	}
	c, err := NewClient("sk-test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.model != "gpt-4o-mini" {
		t.Errorf("default model = %q", c.model)
	}
}
