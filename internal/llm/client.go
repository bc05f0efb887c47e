// Package llm wraps the inference collaborator: a slow, unreliable,
// best-effort black box reached through an openai-compatible endpoint.
// Every call runs under a hard timeout.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// ErrTimeout marks a collaborator call that exceeded its deadline. Callers
// distinguish it from hard failures: sentiment defaults, chat surfaces.
var ErrTimeout = errors.New("inference collaborator timed out")

// Sentiment is the score/label/feedback triple returned for a journal entry.
type Sentiment struct {
	Score    float64 `json:"score"`
	Label    string  `json:"label"`
	Feedback string  `json:"feedback"`
}

// Neutral is the safe default applied when analysis cannot complete.
func Neutral() Sentiment {
	return Sentiment{
		Score:    0,
		Label:    "neutral",
		Feedback: "Thanks for writing today. Keep showing up for yourself.",
	}
}

// Candidate is an unvalidated pattern proposal from the collaborator. The
// pattern engine treats it as untrusted structured output.
type Candidate struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// HistoryMessage is a prior conversation turn included in a chat call.
type HistoryMessage struct {
	Role    string
	Content string
}

// Client is the concrete collaborator over langchaingo.
type Client struct {
	model   llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

func New(apiKey, endpoint, model string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if endpoint != "" {
		opts = append(opts, openai.WithBaseURL(endpoint))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return &Client{model: m, timeout: timeout, logger: logger}, nil
}

const coachSystemPrompt = `You are a warm, grounded wellbeing coach. Keep replies short,
practical, and judgment-free. Never diagnose. If the user mentions self-harm,
gently point them to professional help.`

// Chat produces a reply to message given the synthesized user context and
// recent history. Chat has no acceptable fallback text, so both timeouts and
// hard failures return an error.
func (c *Client) Chat(ctx context.Context, userContext string, history []HistoryMessage, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(coachSystemPrompt)},
		},
	}
	if userContext != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(userContext)},
		})
	}
	for _, h := range history {
		role := llms.ChatMessageTypeHuman
		if h.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(h.Content)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(message)},
	})

	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(0.7))
	if err != nil {
		return "", c.classify(err, ctx)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// AnalyzeSentiment scores a journal entry. Errors are returned as-is; the
// analysis worker substitutes Neutral() so a slow collaborator never fails
// the journal write.
func (c *Client) AnalyzeSentiment(ctx context.Context, title, content string, moodRating int) (Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Analyze the sentiment of this journal entry. The author rated
their mood %d/10.

Title: %s
Entry: %s

Respond with JSON between [[JSON_START]] and [[JSON_END]]:
{"score": <float -1..1>, "label": "<negative|neutral|positive>", "feedback": "<2 supportive sentences>"}`,
		moodRating, title, content)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return Sentiment{}, err
	}
	block, err := extractJSONBlock(raw)
	if err != nil {
		return Sentiment{}, err
	}
	var s Sentiment
	if err := json.Unmarshal([]byte(block), &s); err != nil {
		return Sentiment{}, fmt.Errorf("parse sentiment: %w", err)
	}
	return s, nil
}

// DetectPatterns asks the collaborator for behavioral pattern candidates
// over the supplied history digest. The response is parse-or-reject; the
// engine validates each candidate separately.
func (c *Client) DetectPatterns(ctx context.Context, historyDigest string) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Given this user's recent journal and mood history, identify up to
3 recurring behavioral patterns worth surfacing as gentle insights.

%s

Respond with JSON between [[JSON_START]] and [[JSON_END]]:
{"patterns": [{"type": "<short-kebab-tag>", "description": "<one sentence>", "confidence": <float 0..1>}]}`,
		historyDigest)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	block, err := extractJSONBlock(raw)
	if err != nil {
		return nil, err
	}
	var out struct {
		Patterns []Candidate `json:"patterns"`
	}
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	return out.Patterns, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(0.2))
	if err != nil {
		return "", c.classify(err, ctx)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Content, nil
}

func (c *Client) classify(err error, ctx context.Context) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

const (
	jsonStart = "[[JSON_START]]"
	jsonEnd   = "[[JSON_END]]"
)

// extractJSONBlock pulls the delimited JSON payload out of a completion.
// Falls back to the first {...} span when the model skipped the markers.
func extractJSONBlock(raw string) (string, error) {
	if i := strings.Index(raw, jsonStart); i >= 0 {
		rest := raw[i+len(jsonStart):]
		if j := strings.Index(rest, jsonEnd); j >= 0 {
			return strings.TrimSpace(rest[:j]), nil
		}
	}
	if i := strings.Index(raw, "{"); i >= 0 {
		if j := strings.LastIndex(raw, "}"); j > i {
			return raw[i : j+1], nil
		}
	}
	return "", errors.New("no JSON block in completion")
}
