package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"ytnotes/internal/domain"
	"ytnotes/internal/markdown"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	languagePickerText = "🌐 Choose the summary language:"
	lengthPickerText   = "📏 Choose the summary length:"
	settingsUpdated    = "✅ Settings are updated."
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID
	data := strings.TrimSpace(callback.Data)

	// Generation reports progress with its own chat action.
	if data == callbackGenerate {
		return b.withEmptyCallbackAnswer(callback, func() error {
			return b.handleGenerateCommand(ctx, chatID, userID)
		})
	}

	return b.withSpinner(ctx, chatID, tgbotapi.ChatTyping, func() error {
		switch data {
		case callbackMenu:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleStartCommand(ctx, chatID, userID)
			})
		case callbackSettings:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleSettingsCommand(ctx, chatID, userID)
			})
		case callbackSettingsLanguage:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleOptionPicker(ctx, chatID, userID, languagePickerText, func(o domain.Options) [][]tgbotapi.InlineKeyboardButton {
					return languageKeyboard(o.Language)
				})
			})
		case callbackSettingsLength:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleOptionPicker(ctx, chatID, userID, lengthPickerText, func(o domain.Options) [][]tgbotapi.InlineKeyboardButton {
					return lengthKeyboard(o.Length)
				})
			})
		case callbackSettingsCompare:
			return b.handleSettingsQuery(ctx, callback, func(o *domain.Options) error {
				o.Compare = !o.Compare
				return nil
			})
		}

		if language, ok := strings.CutPrefix(data, callbackLanguagePrefix); ok {
			return b.handleSettingsQuery(ctx, callback, func(o *domain.Options) error {
				if !domain.ValidLanguage(language) {
					return fmt.Errorf("unsupported language %q", language)
				}
				o.Language = language
				return nil
			})
		}

		if lengthStr, ok := strings.CutPrefix(data, callbackLengthPrefix); ok {
			return b.handleSettingsQuery(ctx, callback, func(o *domain.Options) error {
				length, ok := domain.ParseLength(lengthStr)
				if !ok {
					return fmt.Errorf("unsupported length %q", lengthStr)
				}
				o.Length = length
				return nil
			})
		}

		return b.withEmptyCallbackAnswer(callback, func() error {
			b.log.WarnContext(ctx, "Unknown callback data",
				"chatID", chatID,
				"userID", userID,
				"data", data)
			return nil
		})
	})
}

func (b *Bot) handleOptionPicker(
	ctx context.Context,
	chatID int64,
	userID int64,
	text string,
	keyboard func(domain.Options) [][]tgbotapi.InlineKeyboardButton,
) error {
	settings, err := b.db.GetUserSettingsWithDefault(ctx, userID)
	if err != nil {
		return b.sendFailure(chatID, fmt.Errorf("get user settings with default: %w", err))
	}

	return b.sendMessageWithKeyboard(chatID, markdown.EscapeV2(text), keyboard(settings.Options))
}

// handleSettingsQuery applies change to the stored options, syncs the chat
// session and shows the settings again.
func (b *Bot) handleSettingsQuery(
	ctx context.Context,
	callback *tgbotapi.CallbackQuery,
	change func(*domain.Options) error,
) error {
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	settings, err := b.db.GetUserSettingsWithDefault(ctx, userID)
	if err != nil {
		return b.errorCallbackAnswer(callback, fmt.Errorf("get user settings with default: %w", err))
	}

	if err = change(&settings.Options); err != nil {
		return b.errorCallbackAnswer(callback, fmt.Errorf("change options: %w", err))
	}

	if err = b.db.UpsertUserSettings(ctx, settings); err != nil {
		return b.errorCallbackAnswer(callback, fmt.Errorf("upsert user settings: %w", err))
	}

	b.notes.SetOptions(ctx, chatID, settings.Options)

	if _, err = b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, settingsUpdated)); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	return b.handleSettingsCommand(ctx, chatID, userID)
}

func (b *Bot) withEmptyCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if _, err := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		errs = append(errs, b.errorCallbackAnswer(callback, fmt.Errorf("send request: %w", err)))
	}

	err := fn()
	if err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) errorCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	err error,
) error {
	if _, sendErr := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "❌ Failed.")); sendErr != nil {
		return errors.Join(err, fmt.Errorf("send request: %w", sendErr))
	}
	return err
}
