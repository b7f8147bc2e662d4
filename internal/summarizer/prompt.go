package summarizer

import (
	"fmt"
	"strings"
	"ytnotes/internal/domain"
)

const promptTemplate = `Create a %[1]s summary of the video content in %[2]s. The summary should be approximately %[3]d words long.

1. Provide a comprehensive explanation of the main topics discussed in the video.
2. Use bullet points for key information, followed by brief explanations.
3. Include relevant examples or analogies to illustrate concepts.
4. Ensure the summary is in simple, clear %[2]s.
5. Structure your summary with an introduction, main body, and conclusion.

Summarize the following transcript according to the given instructions:
`

// BuildPrompt returns the instructions that precede the transcript.
func BuildPrompt(language string, length domain.Length) string {
	return fmt.Sprintf(promptTemplate, length.Lower(), language, length.WordLimit())
}

func buildUserPrompt(input Input) string {
	b := strings.Builder{}

	if sourceURL := strings.TrimSpace(input.SourceURL); sourceURL != "" {
		b.WriteString("Source:\n")
		b.WriteString(sourceURL)
		b.WriteString("\n")
	}
	b.WriteString("Transcript:\n")
	b.WriteString(strings.TrimSpace(input.Transcript))

	return b.String()
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.Transcript) == "" {
		return ErrEmptyInput
	}

	return domain.Options{Language: input.Language, Length: input.Length}.Validate()
}

// maxOutputTokens gives the model roughly two tokens per requested word.
func maxOutputTokens(length domain.Length) int64 {
	return int64(length.WordLimit()) * 2
}
