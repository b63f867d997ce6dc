package completion

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// Opts configures the OpenAI-backed client.
type Opts struct {
	APIKey  string
	BaseURL string
	// SingleShot disables incremental streaming: the whole answer is
	// fetched in one request and surfaced as a lone final element.
	SingleShot bool
}

// Client implements Streamer against the OpenAI chat completions API.
// It also exposes the transcription and image generation endpoints.
type Client struct {
	api        *openai.Client
	singleShot bool
}

func NewClient(opts Opts) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("completion: api key is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		singleShot: opts.SingleShot,
	}, nil
}

func (c *Client) Stream(ctx context.Context, model string, entries []Entry) (Stream, error) {
	if c.singleShot {
		return c.singleShotStream(ctx, model, entries)
	}
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:         model,
		Messages:      toMessages(entries),
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, wrapOverflow(err)
	}
	return &openaiStream{inner: stream}, nil
}

func (c *Client) singleShotStream(ctx context.Context, model string, entries []Entry) (Stream, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toMessages(entries),
	})
	if err != nil {
		return nil, wrapOverflow(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("completion: empty response")
	}
	return &singleStream{partial: Partial{
		Text:         resp.Choices[0].Message.Content,
		Final:        true,
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}}, nil
}

// Transcribe converts speech audio to text using the Whisper endpoint.
// filename hints the container format to the API.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", fmt.Errorf("completion: transcribe: %w", err)
	}
	return resp.Text, nil
}

// GenerateImages renders n images for the prompt and returns them as
// base64 payloads.
func (c *Client) GenerateImages(ctx context.Context, prompt string, n int) ([]string, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		N:              n,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("completion: generate images: %w", err)
	}
	images := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		images = append(images, d.B64JSON)
	}
	return images, nil
}

func toMessages(entries []Entry) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(entries))
	for _, entry := range entries {
		msg := openai.ChatCompletionMessage{Role: entry.Role}
		if len(entry.Images) == 0 {
			msg.Content = entry.Text
			messages = append(messages, msg)
			continue
		}
		parts := make([]openai.ChatMessagePart, 0, len(entry.Images)+1)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: entry.Text,
		})
		for _, img := range entry.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/jpeg;base64," + img,
				},
			})
		}
		msg.MultiContent = parts
		messages = append(messages, msg)
	}
	return messages
}

// wrapOverflow maps the provider's context-length rejection onto
// ErrContextTooLong so the retry loop can distinguish it from other
// failures.
func wrapOverflow(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == "context_length_exceeded" {
			return fmt.Errorf("%w: %v", ErrContextTooLong, err)
		}
	}
	return err
}

// openaiStream adapts the provider stream. The usage-bearing trailer
// chunk is surfaced as the single final element.
type openaiStream struct {
	inner   *openai.ChatCompletionStream
	text    string
	doneFin bool
}

func (s *openaiStream) Recv() (Partial, error) {
	for {
		resp, err := s.inner.Recv()
		if errors.Is(err, io.EOF) {
			if s.doneFin {
				return Partial{}, io.EOF
			}
			s.doneFin = true
			return Partial{Text: s.text, Final: true}, nil
		}
		if err != nil {
			return Partial{}, wrapOverflow(err)
		}
		if resp.Usage != nil {
			s.doneFin = true
			return Partial{
				Text:         s.text,
				Final:        true,
				InputTokens:  int64(resp.Usage.PromptTokens),
				OutputTokens: int64(resp.Usage.CompletionTokens),
			}, nil
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		s.text += delta
		return Partial{Text: s.text}, nil
	}
}

func (s *openaiStream) Close() { s.inner.Close() }

type singleStream struct {
	partial Partial
	done    bool
}

func (s *singleStream) Recv() (Partial, error) {
	if s.done {
		return Partial{}, io.EOF
	}
	s.done = true
	return s.partial, nil
}

func (s *singleStream) Close() {}
