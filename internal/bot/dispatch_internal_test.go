package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

func messageUpdate(chatID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
		},
	}
}

func newDispatchBot(handle func(ctx context.Context, update *tgbotapi.Update)) *Bot {
	return &Bot{
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		handle:    handle,
		slots:     semaphore.NewWeighted(maxConcurrentUpdates),
		chatLocks: newChatLocks(),
	}
}

func TestDispatchDoesNotBlockOtherChats(t *testing.T) {
	release := make(chan struct{})
	handled := make(chan int64, 2)

	b := newDispatchBot(func(_ context.Context, update *tgbotapi.Update) {
		if update.Message.Chat.ID == 1 {
			<-release
		}
		handled <- update.Message.Chat.ID
	})

	ctx := context.Background()
	b.dispatch(ctx, messageUpdate(1, "/notes"))
	b.dispatch(ctx, messageUpdate(2, "/start"))

	select {
	case chatID := <-handled:
		if chatID != 2 {
			t.Fatalf("expected chat 2 to finish first, got %d", chatID)
		}
	case <-time.After(time.Second):
		t.Fatal("chat 2 was blocked by a slow update in chat 1")
	}

	close(release)
	b.Stop()

	if got := <-handled; got != 1 {
		t.Fatalf("expected chat 1 to finish, got %d", got)
	}
}

func TestDispatchSerializesOneChat(t *testing.T) {
	var mu sync.Mutex
	running, maxRunning := 0, 0

	b := newDispatchBot(func(context.Context, *tgbotapi.Update) {
		mu.Lock()
		running++
		maxRunning = max(maxRunning, running)
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
	})

	for range 5 {
		b.dispatch(context.Background(), messageUpdate(7, "hi"))
	}
	b.Stop()

	if maxRunning != 1 {
		t.Fatalf("expected updates of one chat to run one at a time, got %d at once", maxRunning)
	}

	if got := b.chatLocks.len(); got != 0 {
		t.Fatalf("expected chat locks to be released, got %d", got)
	}
}

func TestStopWaitsForInFlightUpdates(t *testing.T) {
	finished := false

	b := newDispatchBot(func(context.Context, *tgbotapi.Update) {
		time.Sleep(20 * time.Millisecond)
		finished = true
	})

	b.dispatch(context.Background(), messageUpdate(3, "hi"))
	b.Stop()

	if !finished {
		t.Fatal("expected Stop to wait for the running update")
	}
}

func TestDispatchSkipsWhenContextIsDoneAndSlotsAreFull(t *testing.T) {
	release := make(chan struct{})
	b := newDispatchBot(func(context.Context, *tgbotapi.Update) { <-release })
	b.slots = semaphore.NewWeighted(1)

	b.dispatch(context.Background(), messageUpdate(1, "hi"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	returned := make(chan struct{})
	go func() {
		b.dispatch(ctx, messageUpdate(2, "hi"))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked after the context was cancelled")
	}

	close(release)
	b.Stop()
}

func TestDispatchAfterStopIsDropped(t *testing.T) {
	called := false
	b := newDispatchBot(func(context.Context, *tgbotapi.Update) { called = true })

	b.Stop()
	b.dispatch(context.Background(), messageUpdate(1, "hi"))
	b.Stop()

	if called {
		t.Fatal("expected updates after Stop to be dropped")
	}
}
