package intent

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/wisecover/quotebot/pkg/session"
)

type mockClient struct {
	req     openai.ChatCompletionRequest
	content string
	err     error
	empty   bool
}

func (m *mockClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.req = req
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if m.empty {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.content}},
		},
	}, nil
}

func TestClassifyTravel(t *testing.T) {
	client := &mockClient{content: `{"product":"TRAVEL","intent":"buy_insurance","confidence":0.93}`}
	c := NewLLMClassifier(client, "gpt-4o-mini")

	res := c.Classify(context.Background(), "I need trip cover", nil)
	require.Equal(t, session.ProductTravel, res.Product)
	require.Equal(t, "buy_insurance", res.Intent)
	require.InDelta(t, 0.93, res.Confidence, 1e-9)

	require.Equal(t, "gpt-4o-mini", client.req.Model)
	require.NotNil(t, client.req.ResponseFormat)
	require.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, client.req.ResponseFormat.Type)
}

func TestClassifyIncludesHistory(t *testing.T) {
	client := &mockClient{content: `{"product":"FAMILY","intent":"buy_insurance"}`}
	c := NewLLMClassifier(client, "")

	history := []session.HistoryEntry{
		{Role: "user", Text: "hello"},
		{Role: "assistant", Text: "Hello! How can I help?"},
	}
	res := c.Classify(context.Background(), "family protect", history)
	require.Equal(t, session.ProductFamily, res.Product)

	input := client.req.Messages[1].Content
	require.Contains(t, input, "user: hello")
	require.Contains(t, input, "assistant: Hello! How can I help?")
	require.Contains(t, input, "User Message: family protect")
}

func TestClassifyDegradesOnError(t *testing.T) {
	client := &mockClient{err: errors.New("rate limited")}
	c := NewLLMClassifier(client, "")

	res := c.Classify(context.Background(), "travel", nil)
	require.Equal(t, session.ProductUnknown, res.Product)
	require.Equal(t, "unwanted", res.Intent)
}

func TestClassifyDegradesOnEmptyAndGarbage(t *testing.T) {
	for _, client := range []*mockClient{
		{empty: true},
		{content: "not json at all"},
	} {
		c := NewLLMClassifier(client, "")
		res := c.Classify(context.Background(), "travel", nil)
		require.Equal(t, session.ProductUnknown, res.Product)
		require.Equal(t, "unwanted", res.Intent)
	}
}

func TestClassifyNormalizesUnknownProduct(t *testing.T) {
	client := &mockClient{content: `{"product":"PET","intent":"buy_insurance","confidence":0.5}`}
	c := NewLLMClassifier(client, "")

	res := c.Classify(context.Background(), "pet insurance", nil)
	require.Equal(t, session.ProductUnknown, res.Product)
	require.Equal(t, "buy_insurance", res.Intent)
}
