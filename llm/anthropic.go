// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Separate system prompt and base64 image blocks
// - Tool use blocks in both directions, with consecutive tool results merged
//   into the one user turn the Messages API expects

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider talks to the Claude Messages API.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

func NewAnthropicProvider(apiKey, model string, maxTokens uint32, temperature float32) *AnthropicProvider {
	return &AnthropicProvider{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.model }

func (p *AnthropicProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return p.ChatWithTools(ctx, messages, nil)
}

func (p *AnthropicProvider) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error) {
	turns, system := convertToAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    turns,
		Temperature: anthropic.Float(p.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = convertToAnthropicTools(tools)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("anthropic chat completion failed: %w", err)
	}
	return fromAnthropicMessage(message), nil
}

func fromAnthropicMessage(message *anthropic.Message) LLMResponse {
	var (
		text strings.Builder
		resp LLMResponse
	)
	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(b.Input)
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}
	resp.Content = text.String()

	in, out := message.Usage.InputTokens, message.Usage.OutputTokens
	if in > 0 || out > 0 {
		resp.Usage = &TokenUsage{
			PromptTokens:     uint32(in),
			CompletionTokens: uint32(out),
			TotalTokens:      uint32(in + out),
		}
	}
	return resp
}

// convertToAnthropicMessages splits off the system prompt and maps the rest
// onto user and assistant turns. A run of tool results becomes one user turn.
func convertToAnthropicMessages(messages []ChatMessage) ([]anthropic.MessageParam, string) {
	var (
		turns  []anthropic.MessageParam
		system string
	)

	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = msg.Content

		case RoleUser:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Images)+1)
			for _, img := range msg.Images {
				blocks = append(blocks, anthropic.NewImageBlockBase64(img.MIMEType, img.Base64()))
			}
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			turns = append(turns, anthropic.NewUserMessage(blocks...))

		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]interface{}
				_ = json.Unmarshal(tc.Arguments, &input)
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{ID: tc.ID, Name: tc.Name, Input: input},
				})
			}
			turns = append(turns, anthropic.NewAssistantMessage(blocks...))

		case RoleTool:
			result := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)
			if i > 0 && messages[i-1].Role == RoleTool {
				last := &turns[len(turns)-1]
				last.Content = append(last.Content, result)
				continue
			}
			turns = append(turns, anthropic.NewUserMessage(result))
		}
	}

	return turns, system
}

func convertToAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		properties, _ := t.Parameters["properties"].(map[string]interface{})
		required, _ := t.Parameters["required"].([]string)

		result[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}}
	}
	return result
}

var _ Provider = (*AnthropicProvider)(nil)
