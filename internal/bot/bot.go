package bot

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"ytnotes/internal/database"
	"ytnotes/internal/notes"
	"ytnotes/internal/ratelimiter"
	"ytnotes/internal/report"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

const (
	maxBackoffSeconds         = 60
	initialBackoffSeconds     = 3
	backoffGrowthFactor       = 2
	resetOffsetBackoffSeconds = 30

	// Comprehensive comparisons make three model calls in a row.
	updateProcessingTimeout = 10 * time.Minute

	maxConcurrentUpdates = 16

	BotUpdateTimeout = 60
)

type Bot struct {
	api          *tgbotapi.BotAPI
	rateLimiter  *ratelimiter.RateLimiter
	db           *database.Database
	notes        *notes.Service
	renderer     *report.Renderer
	allowedUsers []int64
	log          *slog.Logger

	// handle processes one update; the polling loop only dispatches.
	handle    func(ctx context.Context, update *tgbotapi.Update)
	slots     *semaphore.Weighted
	chatLocks *chatLocks
	inFlight  sync.WaitGroup
	stopMu    sync.Mutex
	stopping  bool
}

func New(
	token string,
	db *database.Database,
	notesService *notes.Service,
	renderer *report.Renderer,
	allowedUsers []int64,
	log *slog.Logger,
) (*Bot, error) {
	token = strings.TrimSpace(token)

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		api:          api,
		rateLimiter:  ratelimiter.New(api, log),
		db:           db,
		notes:        notesService,
		renderer:     renderer,
		allowedUsers: allowedUsers,
		log:          log,
		slots:        semaphore.NewWeighted(maxConcurrentUpdates),
		chatLocks:    newChatLocks(),
	}
	b.handle = b.handleUpdate

	return b, nil
}

func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = BotUpdateTimeout

	backoffSeconds := initialBackoffSeconds

	for {
		select {
		case <-ctx.Done():
			b.log.InfoContext(ctx, "Bot context is done",
				"error", ctx.Err())
			return
		default:
		}

		updates := b.api.GetUpdatesChan(updateConfig)
		updatesClosed := false

		for !updatesClosed {
			select {
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				b.log.InfoContext(ctx, "Bot context is done",
					"error", ctx.Err())
				return

			case update, ok := <-updates:
				if !ok {
					updatesClosed = true
					continue
				}
				updateConfig.Offset = update.UpdateID + 1

				b.dispatch(ctx, &update)
			}
		}

		if ctx.Err() != nil {
			return
		}

		b.log.WarnContext(ctx, "Update channel is closed, reconnecting...",
			"offset", updateConfig.Offset,
			"backoffSeconds", backoffSeconds)

		time.Sleep(time.Duration(backoffSeconds) * time.Second)

		backoffSeconds = updateBackoffSeconds(backoffSeconds)

		if backoffSeconds >= resetOffsetBackoffSeconds {
			updateConfig.Offset = 0
		}
	}
}

// dispatch hands the update to its own goroutine so that a long generation in
// one chat does not hold up the others. Updates of one chat still run one at
// a time, and the loop blocks once maxConcurrentUpdates are in flight.
func (b *Bot) dispatch(ctx context.Context, update *tgbotapi.Update) {
	b.stopMu.Lock()
	if b.stopping {
		b.stopMu.Unlock()
		return
	}
	b.inFlight.Add(1)
	b.stopMu.Unlock()

	if err := b.slots.Acquire(ctx, 1); err != nil {
		b.inFlight.Done()
		return
	}

	chatID := updateChatID(update)

	go func() {
		defer b.inFlight.Done()
		defer b.slots.Release(1)

		unlock := b.chatLocks.lock(chatID)
		defer unlock()

		b.handle(ctx, update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		chatID, chatType := chatContext(update.Message.Chat)

		userID := update.Message.From.ID
		if !b.userAllowed(userID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", userID,
				"chatID", chatID,
				"username", update.Message.From.UserName,
				"chatType", chatType)

			return
		}

		if err := b.handleMessage(updateCtx, update.Message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", chatID,
				"userID", userID,
				"chatType", chatType,
				"messageID", update.Message.MessageID)
		}

	case update.CallbackQuery != nil:
		chatID := callbackChatID(update.CallbackQuery)

		if !b.userAllowed(update.CallbackQuery.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", update.CallbackQuery.From.ID,
				"chatID", chatID,
				"username", update.CallbackQuery.From.UserName,
				"data", update.CallbackQuery.Data)

			return
		}

		if chatID == 0 {
			b.log.WarnContext(updateCtx, "Callback query without message",
				"userID", update.CallbackQuery.From.ID,
				"data", update.CallbackQuery.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, update.CallbackQuery); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", chatID,
				"userID", update.CallbackQuery.From.ID,
				"data", update.CallbackQuery.Data,
				"messageID", callbackMessageID(update.CallbackQuery))
		}
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func updateChatID(update *tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil:
		return callbackChatID(update.CallbackQuery)
	default:
		return 0
	}
}

func chatContext(chat *tgbotapi.Chat) (int64, string) {
	if chat == nil {
		return 0, ""
	}

	return chat.ID, chat.Type
}

func callbackChatID(cb *tgbotapi.CallbackQuery) int64 {
	if cb != nil && cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID
	}

	return 0
}

func callbackMessageID(cb *tgbotapi.CallbackQuery) int {
	if cb != nil && cb.Message != nil {
		return cb.Message.MessageID
	}

	return 0
}

// Stop waits for in-flight updates and then stops outgoing sends. Cancel the
// context passed to Start first so that handlers return promptly.
func (b *Bot) Stop() {
	b.stopMu.Lock()
	b.stopping = true
	b.stopMu.Unlock()

	b.inFlight.Wait()

	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func updateBackoffSeconds(backoffSeconds int) int {
	if backoffSeconds < maxBackoffSeconds {
		backoffSeconds *= backoffGrowthFactor
		if backoffSeconds > maxBackoffSeconds {
			backoffSeconds = maxBackoffSeconds
		}
	}
	return backoffSeconds
}
