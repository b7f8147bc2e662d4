package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"ytnotes/internal/domain"
	"ytnotes/internal/markdown"
)

const welcomeText = `🤖 *YouTube Transcript to Detailed Notes Converter*

Send me a YouTube video link and I will turn its transcript into notes\.

– Pick the summary language and length with /settings
– Turn on comparison to get brief, detailed and comprehensive summaries at once
– Get the notes with /notes or the button below, each with a PDF to download

%s`

const helpText = `❔ *How it works*

1\. Send a YouTube video link \(watch, youtu\.be, shorts or embed\)\.
2\. Optionally change language, length or comparison in /settings\.
3\. Press *Get Detailed Notes* or send /notes\.

Changing the link or any setting discards the notes generated so far\.`

const settingsText = `*⚙️ Settings*

%s

You can change them below:`

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64, userID int64) error {
	settings, err := b.db.GetUserSettingsWithDefault(ctx, userID)
	if err != nil {
		return b.sendFailure(chatID, fmt.Errorf("get user settings with default: %w", err))
	}

	return b.sendMessageWithKeyboard(
		chatID,
		fmt.Sprintf(welcomeText, formatOptions(settings.Options)),
		menuKeyboard(),
	)
}

func (b *Bot) handleSettingsCommand(ctx context.Context, chatID int64, userID int64) error {
	settings, err := b.db.GetUserSettingsWithDefault(ctx, userID)
	if err != nil {
		return b.sendFailure(chatID, fmt.Errorf("get user settings with default: %w", err))
	}

	if err = b.sendMessageWithKeyboard(
		chatID,
		fmt.Sprintf(settingsText, formatOptions(settings.Options)),
		settingsKeyboard(settings.Options),
	); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	return nil
}

// formatOptions renders the options as MarkdownV2 lines.
func formatOptions(options domain.Options) string {
	length := markdown.EscapeV2(string(options.Length))
	if options.Compare {
		length = "all lengths \\(comparison\\)"
	}

	compare := "off"
	if options.Compare {
		compare = "on"
	}

	lines := []string{
		"Language: *" + markdown.EscapeV2(options.Language) + "*",
		"Summary length: *" + length + "*",
		"Compare lengths: *" + compare + "*",
	}

	return strings.Join(lines, "\n")
}

func (b *Bot) sendFailure(chatID int64, err error) error {
	errs := []error{err}

	if sendErr := b.sendMessageWithKeyboard(chatID, "❌ Failed\\.", returnKeyboard()); sendErr != nil {
		errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
	}

	return errors.Join(errs...)
}
