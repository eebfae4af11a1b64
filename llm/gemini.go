// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - Client creation and deferred init errors
// - System instruction, inline image parts and function parts
// - JSON schema to genai.Schema conversion
//
// Gemini may omit function call IDs. They are passed on empty and the
// planner loop assigns its own.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider talks to the Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error
}

// NewGeminiProvider creates the provider. A client that fails to initialize
// is reported by the first call instead of here.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	p := &GeminiProvider{
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	switch {
	case err != nil:
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
	case client == nil:
		p.initErr = errors.New("failed to initialize Gemini client: no client returned")
	default:
		p.client = client
	}
	return p
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return p.ChatWithTools(ctx, messages, nil)
}

// ChatWithTools sends one request. An empty reply comes back as empty
// content; callers decide what it means.
func (p *GeminiProvider) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error) {
	if p.initErr != nil {
		return LLMResponse{}, p.initErr
	}

	contents, system := convertToGeminiMessages(messages)
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
		Tools:           convertToGeminiTools(tools),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("gemini chat completion failed: %w", err)
	}
	return fromGeminiResponse(response), nil
}

func fromGeminiResponse(response *genai.GenerateContentResponse) LLMResponse {
	var (
		text strings.Builder
		resp LLMResponse
	)
	if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
		for _, part := range response.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
			if fc := part.FunctionCall; fc != nil {
				args, _ := json.Marshal(fc.Args)
				resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: fc.ID, Name: fc.Name, Arguments: args})
			}
		}
	}
	resp.Content = text.String()

	if meta := response.UsageMetadata; meta != nil {
		resp.Usage = &TokenUsage{
			PromptTokens:     uint32(meta.PromptTokenCount),
			CompletionTokens: uint32(meta.CandidatesTokenCount),
			TotalTokens:      uint32(meta.TotalTokenCount),
		}
	}
	return resp
}

// convertToGeminiMessages returns the contents and the system instruction.
// Function responses answering one model turn share a single user content.
func convertToGeminiMessages(messages []ChatMessage) ([]*genai.Content, string) {
	var (
		contents []*genai.Content
		system   string
	)

	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = msg.Content

		case RoleUser:
			content := &genai.Content{Role: genai.RoleUser}
			for _, img := range msg.Images {
				content.Parts = append(content.Parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
			}
			content.Parts = append(content.Parts, genai.NewPartFromText(msg.Content))
			contents = append(contents, content)

		case RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				content.Parts = append(content.Parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
			contents = append(contents, content)

		case RoleTool:
			part := &genai.Part{FunctionResponse: functionResponse(msg)}
			if i > 0 && messages[i-1].Role == RoleTool {
				last := contents[len(contents)-1]
				last.Parts = append(last.Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
		}
	}

	return contents, system
}

// functionResponse passes JSON object results through and wraps anything
// else as {"result": text}.
func functionResponse(msg ChatMessage) *genai.FunctionResponse {
	var result map[string]any
	if json.Unmarshal([]byte(msg.Content), &result) != nil || result == nil {
		result = map[string]any{"result": msg.Content}
	}
	name := msg.ToolName
	if name == "" {
		name = msg.ToolCallID
	}
	return &genai.FunctionResponse{Name: name, Response: result}
}

func convertToGeminiTools(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertToGeminiSchema(t.Parameters),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertToGeminiSchema converts one JSON schema node. A node without a type
// is treated as an object.
func convertToGeminiSchema(node map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}
	if t, ok := node["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}
	schema.Description, _ = node["description"].(string)

	switch req := node["required"].(type) {
	case []string:
		schema.Required = req
	case []interface{}:
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	if props, ok := node["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if child, ok := prop.(map[string]interface{}); ok {
				schema.Properties[name] = convertToGeminiSchema(child)
			}
		}
	}

	// Gemini rejects arrays without items.
	if schema.Type == genai.TypeArray {
		schema.Items = &genai.Schema{Type: genai.TypeString}
		if items, ok := node["items"].(map[string]interface{}); ok {
			schema.Items = convertToGeminiSchema(items)
		}
	}

	return schema
}

func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

var _ Provider = (*GeminiProvider)(nil)
