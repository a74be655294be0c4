// Package llm is the decision engine client. Classification and
// summarization are delegated to an OpenAI-compatible chat completion API;
// the scoring itself happens inside the model, this package only carries
// the criteria text over and parses the verdict back out.
package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel   = "gpt-4o-mini"
	requestTimeout = 30 * time.Second

	// highPriorityThreshold is the engine contract: four weighted boolean
	// signals summed, two or more means high priority.
	highPriorityThreshold = 2
)

// Client is the decision engine API client
type Client struct {
	client  *openai.Client
	model   string
	retries int
}

// NewClient creates a new decision engine client.
// baseURL may be empty for the provider default.
func NewClient(apiKey, baseURL, model string) *Client {
	if model == "" {
		model = defaultModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		retries: 2,
	}
}

// SetRetries sets the bounded retry count for engine calls
func (c *Client) SetRetries(n int) {
	if n >= 0 {
		c.retries = n
	}
}

// Chat sends one system+user exchange and returns the response text
func (c *Client) Chat(ctx context.Context, systemPrompt, userMessage string, temperature float32, maxTokens int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userMessage},
			},
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("chat completion: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", lastErr
}

// Verdict is a parsed classification response
type Verdict struct {
	Score  int
	High   bool
	Reason string
}

// ParseVerdict extracts the SCORE/REASON lines from an engine response.
// Returns an error when no score can be found; the caller treats that as a
// decision engine failure, not a low-priority verdict.
func ParseVerdict(text string) (Verdict, error) {
	var v Verdict
	scoreFound := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "SCORE:"):
			raw := strings.TrimSpace(line[len("SCORE:"):])
			// Tolerate trailing text like "3 out of 4"
			if i := strings.IndexByte(raw, ' '); i > 0 {
				raw = raw[:i]
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				return v, fmt.Errorf("unparseable score %q", raw)
			}
			v.Score = n
			scoreFound = true
		case strings.HasPrefix(upper, "REASON:"):
			v.Reason = strings.TrimSpace(line[len("REASON:"):])
		}
	}

	if !scoreFound {
		return v, fmt.Errorf("no score line in engine response %q", truncate(text, 120))
	}
	v.High = HighFromScore(v.Score)
	return v, nil
}

// HighFromScore applies the engine's documented threshold
func HighFromScore(score int) bool {
	return score >= highPriorityThreshold
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
