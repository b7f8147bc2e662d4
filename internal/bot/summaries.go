package bot

import (
	"context"
	"errors"
	"fmt"
	"ytnotes/internal/domain"
	"ytnotes/internal/markdown"
	"ytnotes/internal/notes"
	"ytnotes/internal/report"
	"ytnotes/internal/summarizer"
	"ytnotes/internal/youtube"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMessageMaxSize = 4096
	summaryHeaderSeparator = "\n\n"

	validLinkHint = "Please make sure you've entered a valid YouTube video link."
)

func (b *Bot) handleGenerateCommand(ctx context.Context, chatID int64, userID int64) error {
	settings, err := b.db.GetUserSettingsWithDefault(ctx, userID)
	if err != nil {
		return b.sendFailure(chatID, fmt.Errorf("get user settings with default: %w", err))
	}

	var summaries []domain.Summary
	genErr := b.withSpinner(ctx, chatID, tgbotapi.ChatTyping, func() error {
		var err error
		summaries, err = b.notes.Generate(ctx, chatID, settings.Options)
		return err
	})

	var errs []error

	if len(summaries) > 0 {
		if err = b.withSpinner(ctx, chatID, tgbotapi.ChatUploadDocument, func() error {
			return b.sendSummaries(ctx, chatID, summaries)
		}); err != nil {
			errs = append(errs, fmt.Errorf("send summaries: %w", err))
		}
	}

	if genErr != nil {
		errs = append(errs, fmt.Errorf("generate summaries: %w", genErr))

		if sendErr := b.sendMessageWithKeyboard(
			chatID,
			markdown.EscapeV2(userErrorText(genErr)),
			returnKeyboard(),
		); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	done := "✅ Summary generated successfully!"
	if len(summaries) > 1 {
		done = "✅ Summaries generated successfully!"
	}

	if err = b.sendMessageWithKeyboard(chatID, markdown.EscapeV2(done), videoKeyboard()); err != nil {
		errs = append(errs, fmt.Errorf("send message with keyboard: %w", err))
	}

	return errors.Join(errs...)
}

// sendSummaries sends each summary as text messages followed by its PDF.
func (b *Bot) sendSummaries(ctx context.Context, chatID int64, summaries []domain.Summary) error {
	var errs []error

	for _, summary := range summaries {
		if err := b.sendSummaryText(chatID, summary); err != nil {
			errs = append(errs, fmt.Errorf("send %s summary text: %w", summary.Length.Lower(), err))
		}

		if err := b.sendSummaryPDF(ctx, chatID, summary); err != nil {
			errs = append(errs, fmt.Errorf("send %s summary pdf: %w", summary.Length.Lower(), err))
		}
	}

	return errors.Join(errs...)
}

func (b *Bot) sendSummaryText(chatID int64, summary domain.Summary) error {
	header := "*" + markdown.EscapeV2(summary.Title()) + "*"

	chunks := markdown.SplitV2(
		summary.Text,
		telegramMessageMaxSize-len(header)-len(summaryHeaderSeparator),
		markdown.RenderV2,
	)
	if len(chunks) == 0 {
		return b.sendMessageWithKeyboard(chatID, header, nil)
	}

	chunks[0] = header + summaryHeaderSeparator + chunks[0]

	for _, chunk := range chunks {
		if err := b.sendMessageWithKeyboard(chatID, chunk, nil); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bot) sendSummaryPDF(ctx context.Context, chatID int64, summary domain.Summary) error {
	data, err := b.renderer.Render(summary)
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}

	b.log.DebugContext(ctx, "PDF is rendered",
		"chatID", chatID,
		"length", summary.Length,
		"language", summary.Language,
		"size", len(data))

	document := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  report.FileName(summary.Language, summary.Length),
		Bytes: data,
	})
	document.Caption = "📄 " + summary.Title()

	if _, err = b.rateLimiter.Send(document); err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	return nil
}

// userErrorText turns a generation error into a message the user can act on.
func userErrorText(err error) string {
	switch {
	case errors.Is(err, youtube.ErrInvalidVideoURL):
		return "❌ Invalid YouTube URL. " + validLinkHint
	case errors.Is(err, notes.ErrNoVideo):
		return "🔗 Send me a YouTube video link first."
	case errors.Is(err, summarizer.ErrContentFiltered):
		return "⚠️ The model couldn't generate a summary due to content restrictions. Please try a different video."
	case errors.Is(err, summarizer.ErrTruncated):
		return "⚠️ The summary came out too long to finish. Please try a shorter length."
	case errors.Is(err, youtube.ErrTranscriptUnavailable), errors.Is(err, youtube.ErrEmptyTranscript):
		return "⚠️ This video has no usable transcript. Please try a different video."
	case errors.Is(err, context.DeadlineExceeded):
		return "⌛ Generation took too long. Please try again."
	default:
		return fmt.Sprintf("❌ An error occurred: %v\n\n%s", err, validLinkHint)
	}
}
