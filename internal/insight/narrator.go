package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/evdash/internal/httputil"
	"github.com/lox/evdash/internal/metrics"
)

// Narrator turns an insight set into a short paragraph.
type Narrator interface {
	Narrate(ctx context.Context, set Set) (string, error)
}

// TemplateNarrator joins the fixed insight sentences.
type TemplateNarrator struct{}

// NoDataMessage is shown when the current filter matches nothing.
const NoDataMessage = "No data matches the selected filters. Please adjust your filter criteria."

func (TemplateNarrator) Narrate(_ context.Context, set Set) (string, error) {
	if set.Empty() {
		return NoDataMessage, nil
	}
	return strings.Join(set.Sentences(), ". ") + ".", nil
}

const defaultNarrativeModel = "gpt-4o-mini"

// OpenAINarrator asks a chat model for a summary and falls back to the
// template when the call fails.
type OpenAINarrator struct {
	client   openai.Client
	model    string
	fallback TemplateNarrator
}

// NewOpenAINarrator creates a narrator using OPENAI_API_KEY and the shared
// HTTP client timeout. Extra options are passed to the client.
func NewOpenAINarrator(model string, opts ...option.RequestOption) (*OpenAINarrator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	if model == "" {
		model = defaultNarrativeModel
	}
	return &OpenAINarrator{
		client: openai.NewClient(append([]option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(httputil.NewClient()),
		}, opts...)...),
		model:  model,
	}, nil
}

func (n *OpenAINarrator) Narrate(ctx context.Context, set Set) (string, error) {
	if set.Empty() {
		return NoDataMessage, nil
	}

	text, err := n.generate(ctx, set)
	if err != nil {
		metrics.NarrativeRequests.WithLabelValues("openai", "error").Inc()
		log.Printf("narrative: openai failed, using template: %v", err)
		return n.fallback.Narrate(ctx, set)
	}
	metrics.NarrativeRequests.WithLabelValues("openai", "ok").Inc()
	return text, nil
}

func (n *OpenAINarrator) generate(ctx context.Context, set Set) (string, error) {
	facts, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("marshal insights: %w", err)
	}

	resp, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(n.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You write two or three plain sentences summarising electric vehicle registration statistics. Use only the numbers given. Percentages are shares of the filtered registrations; average_range is in miles."),
			openai.UserMessage(string(facts)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion returned")
	}
	return text, nil
}
