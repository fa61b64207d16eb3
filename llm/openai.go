package llm

import (
	"context"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
	"github.com/parley-dev/parley/session"
)

// OpenAIStreamer streams chat completions from the OpenAI API, or any
// OpenAI-compatible endpoint when the server address points elsewhere.
type OpenAIStreamer struct {
	client   openai.Client
	settings config.Settings
}

// NewOpenAIStreamer creates a streamer backed by the OpenAI Chat Completion
// API. It requires the OPENAI_API_KEY environment variable to be set.
func NewOpenAIStreamer(settings config.Settings) (*OpenAIStreamer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if settings.ServerAddress != "" {
		opts = append(opts, option.WithBaseURL(settings.ServerAddress))
	} else if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIStreamer{client: openai.NewClient(opts...), settings: settings}, nil
}

func (o *OpenAIStreamer) Stream(ctx context.Context, req Request) (*Handle, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Settings.Model),
		Messages: convertTurnsToOpenAIMessages(req.History, req.Settings.SystemPrompt),
	}
	if req.Settings.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Settings.MaxTokens))
	}
	if req.Settings.Temperature != nil {
		params.Temperature = openai.Float(*req.Settings.Temperature)
	}

	h, ctx := newHandle(ctx)
	go func() {
		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			h.fragment(chunk.Choices[0].Delta.Content)
		}
		if err := stream.Err(); err != nil {
			h.finish(ctx, errors.Wrapf(err, "openai stream failed"))
			return
		}
		h.finish(ctx, nil)
	}()
	return h, nil
}

// convertTurnsToOpenAIMessages converts session turns to OpenAI's message
// format. A configured system prompt is prepended unless a system turn in
// the history already covers it.
func convertTurnsToOpenAIMessages(turns []session.Turn, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	hasSystem := false
	for _, t := range turns {
		if t.Role == session.RoleSystem {
			hasSystem = true
			break
		}
	}
	if systemPrompt != "" && !hasSystem {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	for _, t := range turns {
		switch t.Role {
		case session.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		case session.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	return messages
}
