// Package intent wraps the LLM-backed product/intent classifier behind a
// narrow interface. Classification happens once per conversation, before a
// product flow takes over; everything after that is deterministic.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/wisecover/quotebot/pkg/session"
)

// Result is the classifier's verdict on one message.
type Result struct {
	Product    session.Product `json:"product"`
	Intent     string          `json:"intent"`
	Confidence float64         `json:"confidence"`
}

// Classifier maps a message (plus history) to a coarse product/intent label.
// Implementations must degrade to UNKNOWN on failure instead of erroring;
// the orchestrator treats the result as authoritative.
type Classifier interface {
	Classify(ctx context.Context, message string, history []session.HistoryEntry) Result
}

// OpenAIClient is the slice of the OpenAI API the classifier needs.
// Narrowed for testability.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const systemPrompt = `You are an expert AI assistant for an insurance provider. Classify the user's message to determine the product and intent.

Available products are:
- 'TRAVEL': For travel insurance, trip insurance, Travel Protect360.
- 'FAMILY': For family insurance, Family Protect360.

CRITICAL RULES:
- If you see words like "travel", "trip", "Travel Protect360" -> set product to TRAVEL.
- If you see words like "family", "family protect" -> set product to FAMILY.
- A plain greeting with no product mention -> product UNKNOWN, intent "greeting".

Respond with a JSON object: {"product": "TRAVEL"|"FAMILY"|"UNKNOWN", "intent": string, "confidence": number}`

// LLMClassifier classifies via a chat completion with a JSON response.
type LLMClassifier struct {
	client OpenAIClient
	model  string
}

// NewLLMClassifier creates a classifier using the given client and model.
func NewLLMClassifier(client OpenAIClient, model string) *LLMClassifier {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &LLMClassifier{client: client, model: model}
}

// Classify runs the classification. Any failure (transport, empty response,
// unparsable JSON) degrades to UNKNOWN/"unwanted" with a log line; the
// conversation must never fail because the classifier did.
func (c *LLMClassifier) Classify(ctx context.Context, message string, history []session.HistoryEntry) Result {
	fallback := Result{Product: session.ProductUnknown, Intent: "unwanted"}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: renderInput(message, history)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Printf("intent: classification failed: %v", err)
		return fallback
	}
	if len(resp.Choices) == 0 {
		log.Printf("intent: empty completion")
		return fallback
	}

	var result Result
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		log.Printf("intent: unparsable completion: %v", err)
		return fallback
	}

	switch result.Product {
	case session.ProductTravel, session.ProductFamily:
	default:
		result.Product = session.ProductUnknown
	}
	if result.Intent == "" {
		result.Intent = "unwanted"
	}
	return result
}

func renderInput(message string, history []session.HistoryEntry) string {
	var b strings.Builder
	b.WriteString("Chat History:\n")
	for _, h := range history {
		fmt.Fprintf(&b, "%s: %s\n", h.Role, h.Text)
	}
	fmt.Fprintf(&b, "\nUser Message: %s", message)
	return b.String()
}
