package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ChatSession holds one conversation. Stream sends the conversation so
// far, forwards content deltas to onDelta and returns any tool calls the
// model made; the assistant turn is appended to the conversation.
type ChatSession interface {
	Stream(ctx context.Context, withTools bool, onDelta func(string) error) ([]ToolCall, error)
	AddToolResult(callID, content string)
}

type ChatModel interface {
	NewSession(system string, history []ChatMessage, message string, tools []Tool) ChatSession
}

// OpenAIChat speaks the chat completions protocol, which also covers
// OpenRouter when baseURL points there.
type OpenAIChat struct {
	client *openai.Client
	model  string
}

func NewOpenAIChat(apiKey, baseURL, model string) *OpenAIChat {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIChat{client: &client, model: model}
}

func (c *OpenAIChat) NewSession(system string, history []ChatMessage, message string, tools []Tool) ChatSession {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)}
	for _, m := range history {
		switch m.Role {
		case RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	var params []openai.ChatCompletionToolParam
	for _, t := range tools {
		params = append(params, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}

	return &openAIChatSession{chat: c, messages: messages, tools: params}
}

type openAIChatSession struct {
	chat     *OpenAIChat
	messages []openai.ChatCompletionMessageParamUnion
	tools    []openai.ChatCompletionToolParam
}

func (s *openAIChatSession) Stream(ctx context.Context, withTools bool, onDelta func(string) error) ([]ToolCall, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.chat.model),
		Messages: s.messages,
	}
	if withTools && len(s.tools) > 0 {
		params.Tools = s.tools
	}

	stream := s.chat.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := onDelta(chunk.Choices[0].Delta.Content); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("chat stream error: %w", err)
	}

	if len(acc.Choices) == 0 {
		return nil, nil
	}

	msg := acc.Choices[0].Message
	var calls []ToolCall
	for _, tc := range msg.ToolCalls {
		calls = append(calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	switch {
	case len(calls) > 0:
		s.messages = append(s.messages, msg.ToParam())
	case msg.Content != "":
		s.messages = append(s.messages, openai.AssistantMessage(msg.Content))
	}

	return calls, nil
}

func (s *openAIChatSession) AddToolResult(callID, content string) {
	s.messages = append(s.messages, openai.ToolMessage(content, callID))
}
