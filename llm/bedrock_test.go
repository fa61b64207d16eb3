package llm

import (
	"encoding/json"
	"testing"

	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/session"
)

func TestBedrockRequestBody(t *testing.T) {
	temp := 0.3
	req := Request{
		History: []session.Turn{
			{Role: session.RoleUser, Content: "Hello!", Complete: true},
			{Role: session.RoleAssistant, Content: "Hi there.", Complete: true},
			{Role: session.RoleUser, Content: "How are you?", Complete: true},
		},
		Settings: config.Settings{
			Model:        "anthropic.claude-3-haiku",
			MaxTokens:    1024,
			Temperature:  &temp,
			SystemPrompt: "Be brief.",
		},
	}

	body, err := bedrockRequestBody(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Request body is not valid JSON: %v", err)
	}

	if decoded["anthropic_version"] != "bedrock-2023-05-31" {
		t.Errorf("Expected bedrock anthropic_version, got %v", decoded["anthropic_version"])
	}
	if decoded["system"] != "Be brief." {
		t.Errorf("Expected system prompt to be set, got %v", decoded["system"])
	}
	if decoded["max_tokens"] != float64(1024) {
		t.Errorf("Expected max_tokens 1024, got %v", decoded["max_tokens"])
	}
	if decoded["temperature"] != 0.3 {
		t.Errorf("Expected temperature 0.3, got %v", decoded["temperature"])
	}

	messages, ok := decoded["messages"].([]interface{})
	if !ok || len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %v", decoded["messages"])
	}
	first := messages[0].(map[string]interface{})
	if first["role"] != "user" {
		t.Errorf("Expected first role 'user', got %v", first["role"])
	}
	second := messages[1].(map[string]interface{})
	if second["role"] != "assistant" {
		t.Errorf("Expected second role 'assistant', got %v", second["role"])
	}
}

func TestBedrockRequestBodySystemTurnWins(t *testing.T) {
	req := Request{
		History: []session.Turn{
			{Role: session.RoleSystem, Content: "From history", Complete: true},
			{Role: session.RoleUser, Content: "Hi", Complete: true},
		},
		Settings: config.Settings{Model: "m", MaxTokens: 10, SystemPrompt: "From settings"},
	}

	body, err := bedrockRequestBody(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Request body is not valid JSON: %v", err)
	}
	if decoded["system"] != "From history" {
		t.Errorf("Expected history system turn to win, got %v", decoded["system"])
	}
	messages := decoded["messages"].([]interface{})
	if len(messages) != 1 {
		t.Errorf("Expected system turn to be lifted out of messages, got %d messages", len(messages))
	}
}

func TestBedrockChunkText(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"text delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}`, "Hello"},
		{"message start", `{"type":"message_start","message":{}}`, ""},
		{"content block stop", `{"type":"content_block_stop","index":0}`, ""},
		{"non-text delta", `{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{}"}}`, ""},
		{"garbage", `not json`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := bedrockChunkText([]byte(tc.raw)); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}
