package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
	"github.com/parley-dev/parley/session"
)

// BedrockStreamer streams from Anthropic models hosted on AWS Bedrock.
type BedrockStreamer struct {
	client   *bedrockruntime.Client
	settings config.Settings
}

// NewBedrockStreamer creates a streamer backed by AWS Bedrock.
// It requires AWS credentials to be configured in the environment.
func NewBedrockStreamer(ctx context.Context, settings config.Settings) (*BedrockStreamer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}

	var clientOpts []func(*bedrockruntime.Options)
	if settings.ServerAddress != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(settings.ServerAddress)
		})
	}

	return &BedrockStreamer{
		client:   bedrockruntime.NewFromConfig(cfg, clientOpts...),
		settings: settings,
	}, nil
}

func (b *BedrockStreamer) Stream(ctx context.Context, req Request) (*Handle, error) {
	body, err := bedrockRequestBody(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build Bedrock request")
	}

	h, ctx := newHandle(ctx)
	go func() {
		out, err := b.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
			ModelId:     aws.String(req.Settings.Model),
			ContentType: aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			h.finish(ctx, errors.Wrapf(err, "failed to invoke Bedrock model"))
			return
		}
		stream := out.GetStream()
		defer stream.Close()

		for event := range stream.Events() {
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}
			h.fragment(bedrockChunkText(chunk.Value.Bytes))
		}
		if err := stream.Err(); err != nil {
			h.finish(ctx, errors.Wrapf(err, "bedrock stream failed"))
			return
		}
		h.finish(ctx, nil)
	}()
	return h, nil
}

// bedrockRequestBody builds the Anthropic-on-Bedrock JSON request for the
// turn history.
func bedrockRequestBody(req Request) ([]byte, error) {
	var messages []map[string]interface{}
	systemPrompt := req.Settings.SystemPrompt

	for _, t := range req.History {
		switch t.Role {
		case session.RoleSystem:
			systemPrompt = t.Content
		case session.RoleAssistant:
			if t.Content == "" {
				continue
			}
			messages = append(messages, map[string]interface{}{
				"role": "assistant",
				"content": []map[string]interface{}{
					{"type": "text", "text": t.Content},
				},
			})
		default:
			messages = append(messages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": t.Content},
				},
			})
		}
	}

	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        req.Settings.MaxTokens,
		"messages":          messages,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	if req.Settings.Temperature != nil {
		request["temperature"] = *req.Settings.Temperature
	}

	return json.Marshal(request)
}

// bedrockChunkText extracts the text delta from one streamed chunk. Chunks
// that carry no text, such as message_start or content_block_stop, yield "".
func bedrockChunkText(raw []byte) string {
	var chunk struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return ""
	}
	if chunk.Type != "content_block_delta" || chunk.Delta.Type != "text_delta" {
		return ""
	}
	return chunk.Delta.Text
}
