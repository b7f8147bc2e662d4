package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GeminiBaseURL is the OpenAI-compatible endpoint of the Gemini API.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ChatSummarizer uses the Chat Completions API. Pointed at GeminiBaseURL it
// talks to Gemini, which does not implement the Responses API.
type ChatSummarizer struct {
	client openai.Client
	model  openai.ChatModel
}

func NewGeminiSummarizer(apiKey string, model string, opts ...option.RequestOption) *ChatSummarizer {
	opts = append([]option.RequestOption{option.WithBaseURL(GeminiBaseURL)}, opts...)

	return NewChatSummarizer(apiKey, model, opts...)
}

func NewChatSummarizer(apiKey string, model string, opts ...option.RequestOption) *ChatSummarizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &ChatSummarizer{
		client: openai.NewClient(opts...),
		model:  openai.ChatModel(model),
	}
}

func (s *ChatSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}

	instructions := BuildPrompt(input.Language, input.Length)
	userPrompt := buildUserPrompt(input)

	maxTokens := maxOutputTokens(input.Length)
	for {
		resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: s.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(instructions),
				openai.UserMessage(userPrompt),
			},
			MaxCompletionTokens: openai.Int(maxTokens),
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if len(resp.Choices) == 0 {
			return "", ErrContentFiltered
		}

		choice := resp.Choices[0]
		switch choice.FinishReason {
		case "content_filter":
			return "", ErrContentFiltered
		case "length":
			if maxTokens < limitMaxOutputTokens {
				maxTokens = min(maxTokens*2, limitMaxOutputTokens)
				continue
			}

			return "", fmt.Errorf("%w (maxOutputTokens = %d)", ErrTruncated, maxTokens)
		}

		summary := strings.TrimSpace(choice.Message.Content)
		if summary == "" {
			return "", ErrContentFiltered
		}

		return summary, nil
	}
}
