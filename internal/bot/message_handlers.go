package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"ytnotes/internal/markdown"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const videoCaption = `🎬 *Video is set\.*

Press the button below to get the notes, or change the language and length in settings first\.`

const invalidURLText = "❌ Invalid YouTube URL\\. Please make sure you've entered a valid YouTube video link\\."

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	command := strings.ToLower(strings.SplitN(text, "@", 2)[0])
	command = strings.SplitN(command, " ", 2)[0]

	switch command {
	case "/start", "/menu":
		return b.handleStartCommand(ctx, chatID, userID)
	case "/help":
		return b.sendMessageWithKeyboard(chatID, helpText, menuKeyboard())
	case "/settings":
		return b.handleSettingsCommand(ctx, chatID, userID)
	case "/notes":
		return b.handleGenerateCommand(ctx, chatID, userID)
	}

	return b.withSpinner(ctx, chatID, tgbotapi.ChatTyping, func() error {
		return b.handleVideoLink(ctx, text, chatID)
	})
}

func (b *Bot) handleVideoLink(ctx context.Context, text string, chatID int64) error {
	if text == "" {
		return b.sendMessageWithKeyboard(chatID, invalidURLText, returnKeyboard())
	}

	video, err := b.notes.SetVideo(ctx, chatID, text)
	if err != nil {
		b.log.DebugContext(ctx, "Video link is not recognized",
			"error", err,
			"chatID", chatID)

		return b.sendMessageWithKeyboard(chatID, invalidURLText, returnKeyboard())
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(video.ThumbnailURL()))
	photo.Caption = videoCaption
	photo.ParseMode = tgbotapi.ModeMarkdownV2
	photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(videoKeyboard()...)

	if _, err = b.rateLimiter.Send(photo); err == nil {
		return nil
	}

	b.log.WarnContext(ctx, "Failed to send thumbnail so text fallback will be used",
		"error", err,
		"chatID", chatID,
		"videoID", video.ID)

	fallback := fmt.Sprintf("%s\n\n%s", videoCaption, markdown.EscapeV2(video.URL))
	if sendErr := b.sendMessageWithKeyboard(chatID, fallback, videoKeyboard()); sendErr != nil {
		return errors.Join(
			fmt.Errorf("send photo: %w", err),
			fmt.Errorf("send message with keyboard: %w", sendErr),
		)
	}

	return nil
}
