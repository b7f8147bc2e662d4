package summarizer

import (
	"context"
	"errors"
	"ytnotes/internal/domain"
)

var (
	ErrEmptyInput = errors.New("input is empty")

	// ErrTruncated is returned when the output still hits the token limit at
	// the largest budget.
	ErrTruncated = errors.New("summary was cut off at the output token limit")

	// ErrContentFiltered is returned when the model refuses or returns nothing.
	ErrContentFiltered = errors.New(
		"the model couldn't generate a summary due to content restrictions, please try a different video",
	)
)

// Input describes the payload for a summary request.
type Input struct {
	// Transcript is the plain text of the video.
	Transcript string
	// Language is the language the summary must be written in.
	Language string
	// Length selects the word-count target.
	Length domain.Length
	// SourceURL is optional metadata that helps the model reference the origin.
	SourceURL string
}

// Summarizer produces a single summary for a given transcript.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}
