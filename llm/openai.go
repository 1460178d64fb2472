package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/codectx/repograph/helper"
	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

// OpenAIReasoner implements Reasoner against the OpenAI chat completion API.
type OpenAIReasoner struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIReasoner creates a reasoner from the OPENAI_API_KEY environment
// variable, falling back to the container secret file. OPENAI_MODEL
// overrides the default model.
func NewOpenAIReasoner() (*OpenAIReasoner, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secret, err := os.ReadFile("/run/secrets/openai_api_key")
		if err != nil {
			return nil, helper.NewError("read api key", fmt.Errorf("OPENAI_API_KEY environment variable not set"))
		}
		apiKey = strings.TrimSpace(string(secret))
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &OpenAIReasoner{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: 0.3,
		maxTokens:   1500,
	}, nil
}

// Complete sends one system+user exchange and returns the assistant content.
func (o *OpenAIReasoner) Complete(ctx context.Context, system string, user string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return "", helper.NewError("chat completion", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", helper.NewError("chat completion", fmt.Errorf("empty response"))
	}

	return resp.Choices[0].Message.Content, nil
}
