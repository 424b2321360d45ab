// Package adapter converts between the OpenAI function-calling wire format
// and the store's own tool call types. The model that produces the calls
// lives outside this service; only its wire format is spoken here.
package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Tool represents a function that can be called by the extraction caller
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a function that can be called
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall represents one decoded function call
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToOpenAITools converts tool definitions to the OpenAI request format
func ToOpenAITools(tools []Tool) []openai.Tool {
	openaiTools := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		openaiTools = append(openaiTools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}
	return openaiTools
}

// DecodeToolCall turns a wire tool call into a ToolCall. Only function
// calls are accepted.
func DecodeToolCall(tc openai.ToolCall) (ToolCall, error) {
	if tc.Type != "" && tc.Type != openai.ToolTypeFunction {
		return ToolCall{}, fmt.Errorf("unsupported tool call type %q", tc.Type)
	}
	if tc.Function.Name == "" {
		return ToolCall{}, fmt.Errorf("tool call %s has no function name", tc.ID)
	}
	args, err := ParseArguments(tc.Function.Arguments)
	if err != nil {
		return ToolCall{}, fmt.Errorf("tool call %s: %w", tc.ID, err)
	}
	return ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args}, nil
}

// ToolMessage wraps a result as the tool-role message answering callID.
// The result is JSON-encoded as the message content.
func ToolMessage(callID, name string, result interface{}) (openai.ChatCompletionMessage, error) {
	content, err := json.Marshal(result)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Name:       name,
		Content:    string(content),
		ToolCallID: callID,
	}, nil
}

// ParseArguments parses the JSON string arguments into a map. Numbers are
// kept as json.Number so integer ids survive unchanged.
func ParseArguments(jsonStr string) (map[string]interface{}, error) {
	if len(bytes.TrimSpace([]byte(jsonStr))) == 0 {
		return make(map[string]interface{}), nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(jsonStr)))
	dec.UseNumber()
	var args map[string]interface{}
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	if args == nil {
		args = make(map[string]interface{})
	}
	return args, nil
}
