package llm

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
	"github.com/parley-dev/parley/session"
)

// AnthropicStreamer streams chat completions from the Anthropic API.
type AnthropicStreamer struct {
	client   anthropic.Client
	settings config.Settings
}

// NewAnthropicStreamer creates a streamer backed by the Anthropic API.
// It requires the ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropicStreamer(settings config.Settings) (*AnthropicStreamer, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if settings.ServerAddress != "" {
		opts = append(opts, option.WithBaseURL(settings.ServerAddress))
	}

	return &AnthropicStreamer{
		client:   anthropic.NewClient(opts...),
		settings: settings,
	}, nil
}

func (a *AnthropicStreamer) Stream(ctx context.Context, req Request) (*Handle, error) {
	messages, systemPrompt := convertTurnsToAnthropicMessages(req.History)
	if sp := req.Settings.SystemPrompt; sp != "" {
		systemPrompt = sp
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Settings.Model),
		MaxTokens: int64(req.Settings.MaxTokens),
		Messages:  messages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if req.Settings.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Settings.Temperature)
	}

	h, ctx := newHandle(ctx)
	go func() {
		stream := a.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					h.fragment(delta.Text)
				}
			}
		}
		if err := stream.Err(); err != nil {
			h.finish(ctx, errors.Wrapf(err, "anthropic stream failed"))
			return
		}
		h.finish(ctx, nil)
	}()
	return h, nil
}

// convertTurnsToAnthropicMessages converts session turns to Anthropic's
// message format. System turns are lifted out; the last one wins.
func convertTurnsToAnthropicMessages(turns []session.Turn) ([]anthropic.MessageParam, string) {
	var messages []anthropic.MessageParam
	var systemPrompt string

	for _, t := range turns {
		switch t.Role {
		case session.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(t.Content),
			))
		case session.RoleAssistant:
			if t.Content == "" {
				continue
			}
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{{
					OfText: &anthropic.TextBlockParam{Text: t.Content},
				}},
			})
		case session.RoleSystem:
			systemPrompt = t.Content
		}
	}

	return messages, systemPrompt
}
