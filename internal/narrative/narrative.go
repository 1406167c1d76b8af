// Package narrative turns a finished run into a short plain-language summary
// via an LLM. The summary restates the measured numbers; interpretation stays
// with the reader. Narrative generation is opt-in and its failure must never
// fail an analysis.
package narrative

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/paritylens/paritylens/internal/errors"
	"github.com/paritylens/paritylens/internal/models"
)

const systemPrompt = `You describe measurements from a group fairness analysis of a
recidivism risk tool. Use only the numbers given to you. Describe the rates and the
differences between groups in plain language. Do not judge whether the tool is fair
or biased, do not speculate about causes, and do not recommend actions. When a rate
is marked undefined, say it cannot be computed for that group; never call it zero.
Answer in at most 150 words of prose, no lists.`

// completionAPI is the slice of the OpenAI client we call, split out so tests
// can stub it.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates run summaries.
type Client struct {
	api   completionAPI
	model string
}

// NewClient creates a narrative client. The key comes from the credential
// chain; an empty key is a configuration error, not a silent no-op.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.ConfigError("narrative needs an OpenAI API key; run 'plens configure' or set OPENAI_API_KEY")
	}
	return &Client{
		api:   openai.NewClient(apiKey),
		model: "gpt-4o-mini",
	}, nil
}

// WithModel overrides the default completion model. An empty name keeps the
// default.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// Summarize produces a plain-language description of the run's numbers.
func (c *Client) Summarize(ctx context.Context, res *models.RunResult) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(res),
			},
		},
		Temperature: 0.2,
		MaxTokens:   400,
	})
	if err != nil {
		return "", errors.ExternalError(err, "narrative completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrorTypeExternal, errors.SeverityMedium, "narrative completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt renders the run as compact text for the model. Undefined rates
// are spelled out as such so the model cannot read them as zeros.
func BuildPrompt(res *models.RunResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Dataset: COMPAS %s, grouped by %s, classifier %s.\n",
		res.Run.Variant, res.Run.GroupField, res.Run.Classifier)
	fmt.Fprintf(&sb, "Screenings analyzed: %d (of %d read).\n\n", res.Run.RecordsKept, res.Run.RecordsRead)

	overall := models.NewGroupMetrics("", "overall", res.Run.Matrix())
	sb.WriteString("Overall: ")
	writeRates(&sb, overall)
	sb.WriteString("\n")

	for _, g := range res.Groups {
		fmt.Fprintf(&sb, "Group %s: n=%d, ", g.Group, g.Records)
		writeRates(&sb, g)
		sb.WriteString("\n")
	}

	for _, s := range res.GroupStats {
		fmt.Fprintf(&sb, "Group %s observed recidivism rate: %.3f, mean decile %.1f.\n",
			s.Group, s.BaseRate, s.MeanDecile)
	}
	return sb.String()
}

func writeRates(sb *strings.Builder, g models.GroupMetrics) {
	fmt.Fprintf(sb, "accuracy %s, PPV %s, FPR %s, FNR %s.",
		promptRate(g.Accuracy), promptRate(g.PPV), promptRate(g.FPR), promptRate(g.FNR))
}

func promptRate(p *float64) string {
	if p == nil {
		return "undefined (zero denominator)"
	}
	return fmt.Sprintf("%.3f", *p)
}
