package llm

import (
	"context"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
	"github.com/parley-dev/parley/session"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiStreamer streams chat completions from the Google Gemini API.
type GeminiStreamer struct {
	client   *genai.Client
	settings config.Settings
}

// NewGeminiStreamer creates a streamer backed by the Gemini API.
// It requires the GEMINI_API_KEY environment variable to be set.
func NewGeminiStreamer(ctx context.Context, settings config.Settings) (*GeminiStreamer, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if settings.ServerAddress != "" {
		opts = append(opts, option.WithEndpoint(settings.ServerAddress))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	return &GeminiStreamer{client: client, settings: settings}, nil
}

func (g *GeminiStreamer) Stream(ctx context.Context, req Request) (*Handle, error) {
	model := g.client.GenerativeModel(req.Settings.Model)
	if req.Settings.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.Settings.MaxTokens))
	}
	if req.Settings.Temperature != nil {
		model.SetTemperature(float32(*req.Settings.Temperature))
	}
	if req.Settings.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.Settings.SystemPrompt)},
		}
	}

	history := convertTurnsToGeminiContent(req.History)
	if len(history) == 0 {
		return nil, errors.New("no message to send")
	}
	last := history[len(history)-1]

	chat := model.StartChat()
	chat.History = history[:len(history)-1]

	h, ctx := newHandle(ctx)
	go func() {
		iter := chat.SendMessageStream(ctx, last.Parts...)
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				h.finish(ctx, nil)
				return
			}
			if err != nil {
				h.finish(ctx, errors.Wrapf(err, "gemini stream failed"))
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if text, ok := part.(genai.Text); ok {
					h.fragment(string(text))
				}
			}
		}
	}()
	return h, nil
}

// convertTurnsToGeminiContent converts session turns to Gemini's content
// format. System turns are skipped since the system instruction carries
// that role.
func convertTurnsToGeminiContent(turns []session.Turn) []*genai.Content {
	var contents []*genai.Content
	for _, t := range turns {
		if t.Role == session.RoleSystem {
			continue
		}
		role := "user"
		if t.Role == session.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return contents
}
