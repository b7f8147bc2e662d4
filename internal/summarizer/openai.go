package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const limitMaxOutputTokens int64 = 16384

// OpenAISummarizer calls OpenAI's Responses API to produce summaries.
type OpenAISummarizer struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAISummarizer builds a new summarizer instance.
func NewOpenAISummarizer(apiKey string, model string, opts ...option.RequestOption) *OpenAISummarizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAISummarizer{
		client: openai.NewClient(opts...),
		model:  openai.ChatModel(model),
	}
}

// Summarize produces a summary of the transcript in the requested language
// and length.
func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}

	instructions := BuildPrompt(input.Language, input.Length)
	userPrompt := buildUserPrompt(input)

	maxTokens := maxOutputTokens(input.Length)
	for {
		resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           s.model,
			MaxOutputTokens: openai.Int(maxTokens),
			Reasoning: responses.ReasoningParam{
				Effort: openai.ReasoningEffortLow,
			},
			Instructions: openai.String(instructions),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(userPrompt),
			},
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxTokens < limitMaxOutputTokens {
				maxTokens = min(maxTokens*2, limitMaxOutputTokens)
				continue
			}

			if resp.IncompleteDetails.Reason == "content_filter" {
				return "", ErrContentFiltered
			}

			if resp.IncompleteDetails.Reason == "max_output_tokens" {
				return "", fmt.Errorf("%w (maxOutputTokens = %d)", ErrTruncated, maxTokens)
			}

			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxTokens,
			)
		}

		summary := strings.TrimSpace(resp.OutputText())
		if summary == "" {
			return "", ErrContentFiltered
		}
		return summary, nil
	}
}
