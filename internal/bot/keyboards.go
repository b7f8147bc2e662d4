package bot

import (
	"strings"
	"ytnotes/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackMenu                = "menu"
	callbackGenerate            = "generate"
	callbackSettings            = "settings"
	callbackSettingsLanguage    = "settings_language"
	callbackSettingsLength      = "settings_length"
	callbackSettingsCompare     = "settings_compare_toggle"
	callbackLanguagePrefix      = "language_"
	callbackLengthPrefix        = "length_"
	languageKeyboardRowSize     = 3
	generateButtonText          = "📝 Get Detailed Notes"
	returnToMenuButtonText      = "⬅️ Return to menu"
	returnToSettingsButtonText  = "⬅️ Return to settings"
	compareOnButtonText         = "✅ Compare lengths"
	compareOffButtonText        = "☑️ Compare lengths"
	settingsLanguageButtonText  = "🌐 Language"
	settingsLengthButtonText    = "📏 Length"
	settingsMenuButtonText      = "⚙️ Settings"
	selectedOptionMarker        = "• "
	telegramCallbackDataMaxSize = 64
)

func (b *Bot) sendMessageWithKeyboard(
	chatID int64,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.Warn("Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	message := tgbotapi.NewMessage(chatID, normalizedText)

	// See https://core.telegram.org/bots/api#markdownv2-style.
	message.ParseMode = tgbotapi.ModeMarkdownV2

	message.DisableWebPagePreview = true
	if len(keyboard) > 0 {
		message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}

	_, err := b.rateLimiter.Send(message)
	return err
}

func returnKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData(returnToMenuButtonText, callbackMenu)},
	}
}

func menuKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData(generateButtonText, callbackGenerate)},
		{tgbotapi.NewInlineKeyboardButtonData(settingsMenuButtonText, callbackSettings)},
	}
}

func videoKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData(generateButtonText, callbackGenerate)},
		{
			tgbotapi.NewInlineKeyboardButtonData(settingsMenuButtonText, callbackSettings),
			tgbotapi.NewInlineKeyboardButtonData(returnToMenuButtonText, callbackMenu),
		},
	}
}

// settingsKeyboard hides the length picker while comparison is on because
// all lengths are generated then.
func settingsKeyboard(options domain.Options) [][]tgbotapi.InlineKeyboardButton {
	pickers := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(settingsLanguageButtonText, callbackSettingsLanguage),
	}
	if !options.Compare {
		pickers = append(pickers,
			tgbotapi.NewInlineKeyboardButtonData(settingsLengthButtonText, callbackSettingsLength))
	}

	compareText := compareOffButtonText
	if options.Compare {
		compareText = compareOnButtonText
	}

	return [][]tgbotapi.InlineKeyboardButton{
		pickers,
		{tgbotapi.NewInlineKeyboardButtonData(compareText, callbackSettingsCompare)},
		{tgbotapi.NewInlineKeyboardButtonData(generateButtonText, callbackGenerate)},
		{tgbotapi.NewInlineKeyboardButtonData(returnToMenuButtonText, callbackMenu)},
	}
}

func languageKeyboard(selected string) [][]tgbotapi.InlineKeyboardButton {
	var keyboard [][]tgbotapi.InlineKeyboardButton

	languages := domain.Languages()
	for i := 0; i < len(languages); i += languageKeyboardRowSize {
		var row []tgbotapi.InlineKeyboardButton

		for _, language := range languages[i:min(i+languageKeyboardRowSize, len(languages))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				optionButtonText(language, language == selected),
				callbackLanguagePrefix+language,
			))
		}

		keyboard = append(keyboard, row)
	}

	return append(keyboard, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(returnToSettingsButtonText, callbackSettings),
	})
}

func lengthKeyboard(selected domain.Length) [][]tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton

	for _, length := range domain.Lengths() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			optionButtonText(string(length), length == selected),
			callbackLengthPrefix+string(length),
		))
	}

	return [][]tgbotapi.InlineKeyboardButton{
		row,
		{tgbotapi.NewInlineKeyboardButtonData(returnToSettingsButtonText, callbackSettings)},
	}
}

func optionButtonText(label string, selected bool) string {
	if selected {
		return selectedOptionMarker + label
	}

	return label
}
