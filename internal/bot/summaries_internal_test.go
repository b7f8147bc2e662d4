package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"ytnotes/internal/database"
	"ytnotes/internal/domain"
	"ytnotes/internal/notes"
	"ytnotes/internal/ratelimiter"
	"ytnotes/internal/report"
	"ytnotes/internal/session"
	"ytnotes/internal/summarizer"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

const (
	testChatID = int64(100)
	testUserID = int64(200)
	testLink   = "https://youtu.be/dQw4w9WgXcQ"
)

type recordingClient struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (c *recordingClient) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, chattable)

	return tgbotapi.Message{MessageID: len(c.sent)}, nil
}

func (c *recordingClient) Request(chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, chattable)

	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (c *recordingClient) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var texts []string
	for _, chattable := range c.sent {
		if message, ok := chattable.(tgbotapi.MessageConfig); ok {
			texts = append(texts, message.Text)
		}
	}

	return texts
}

func (c *recordingClient) documents() []tgbotapi.FileBytes {
	c.mu.Lock()
	defer c.mu.Unlock()

	var files []tgbotapi.FileBytes
	for _, chattable := range c.sent {
		if document, ok := chattable.(tgbotapi.DocumentConfig); ok {
			if file, ok := document.File.(tgbotapi.FileBytes); ok {
				files = append(files, file)
			}
		}
	}

	return files
}

type fixedTranscriber struct{}

func (fixedTranscriber) Transcript(context.Context, string) (string, error) {
	return "today we talk about goroutines and channels", nil
}

type lengthSummarizer struct {
	failOn domain.Length
	err    error
}

func (s lengthSummarizer) Summarize(_ context.Context, input summarizer.Input) (string, error) {
	if input.Length == s.failOn {
		return "", s.err
	}

	return "## Overview\nThe **main** idea.\n- first point\n- second point", nil
}

func newTestBot(t *testing.T, s summarizer.Summarizer) (*Bot, *recordingClient) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "db.sqlite"), log)
	if err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})

	client := &recordingClient{}
	rl := ratelimiter.New(client, log, ratelimiter.WithChatRates(0, 0))
	t.Cleanup(rl.Stop)

	sessions := session.NewStore(10, time.Hour)

	return &Bot{
		rateLimiter: rl,
		db:          db,
		notes:       notes.NewService(fixedTranscriber{}, s, sessions, log),
		renderer:    report.NewRenderer(""),
		log:         log,
		slots:       semaphore.NewWeighted(maxConcurrentUpdates),
		chatLocks:   newChatLocks(),
	}, client
}

func enableCompare(t *testing.T, b *Bot) {
	t.Helper()

	options := domain.DefaultOptions()
	options.Compare = true

	if err := b.db.UpsertUserSettings(context.Background(), &domain.UserSettings{
		UserID:  testUserID,
		Options: options,
	}); err != nil {
		t.Fatalf("upsert user settings: %v", err)
	}
}

func TestHandleGenerateCommandSingleSummary(t *testing.T) {
	b, client := newTestBot(t, lengthSummarizer{})

	if _, err := b.notes.SetVideo(context.Background(), testChatID, testLink); err != nil {
		t.Fatalf("set video: %v", err)
	}

	if err := b.handleGenerateCommand(context.Background(), testChatID, testUserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	texts := client.texts()
	if len(texts) != 2 {
		t.Fatalf("expected summary and success messages, got %q", texts)
	}

	wantHeader := `*Brief Summary \(English\)*` + "\n\n"
	if !strings.HasPrefix(texts[0], wantHeader) {
		t.Fatalf("expected header %q, got %q", wantHeader, texts[0])
	}

	if !strings.Contains(texts[0], "*Overview*\n\nThe *main* idea\\.\n\n• first point\n• second point") {
		t.Fatalf("expected model markdown to be rendered, got %q", texts[0])
	}

	if !strings.Contains(texts[1], "Summary generated successfully") {
		t.Fatalf("expected singular success message, got %q", texts[1])
	}

	documents := client.documents()
	if len(documents) != 1 {
		t.Fatalf("expected one document, got %d", len(documents))
	}

	if documents[0].Name != report.FileName(domain.DefaultLanguage, domain.LengthBrief) {
		t.Fatalf("unexpected file name %q", documents[0].Name)
	}

	if !bytes.HasPrefix(documents[0].Bytes, []byte("%PDF-")) {
		t.Fatal("expected PDF bytes")
	}
}

func TestHandleGenerateCommandCompare(t *testing.T) {
	b, client := newTestBot(t, lengthSummarizer{})
	enableCompare(t, b)

	if _, err := b.notes.SetVideo(context.Background(), testChatID, testLink); err != nil {
		t.Fatalf("set video: %v", err)
	}

	if err := b.handleGenerateCommand(context.Background(), testChatID, testUserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(client.documents()); got != 3 {
		t.Fatalf("expected three documents, got %d", got)
	}

	texts := client.texts()
	if last := texts[len(texts)-1]; !strings.Contains(last, "Summaries generated successfully") {
		t.Fatalf("expected plural success message, got %q", last)
	}

	for i, length := range domain.Lengths() {
		want := "*" + string(length) + " Summary"
		if !strings.HasPrefix(texts[i], want) {
			t.Fatalf("message %d: expected %q first, got %q", i, want, texts[i])
		}
	}
}

func TestHandleGenerateCommandPartialFailure(t *testing.T) {
	b, client := newTestBot(t, lengthSummarizer{
		failOn: domain.LengthComprehensive,
		err:    errors.New("quota exceeded"),
	})
	enableCompare(t, b)

	if _, err := b.notes.SetVideo(context.Background(), testChatID, testLink); err != nil {
		t.Fatalf("set video: %v", err)
	}

	err := b.handleGenerateCommand(context.Background(), testChatID, testUserID)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected generation error, got %v", err)
	}

	if got := len(client.documents()); got != 2 {
		t.Fatalf("expected the two finished summaries to be delivered, got %d", got)
	}

	texts := client.texts()
	last := texts[len(texts)-1]
	if !strings.Contains(last, "An error occurred: ") || !strings.Contains(last, "quota exceeded") {
		t.Fatalf("expected error message last, got %q", last)
	}

	if !strings.Contains(last, `valid YouTube video link\.`) {
		t.Fatalf("expected escaped link hint, got %q", last)
	}

	for _, text := range texts {
		if strings.Contains(text, "generated successfully") {
			t.Fatalf("unexpected success message %q", text)
		}
	}
}

func TestHandleGenerateCommandWithoutVideo(t *testing.T) {
	b, client := newTestBot(t, lengthSummarizer{})

	err := b.handleGenerateCommand(context.Background(), testChatID, testUserID)
	if !errors.Is(err, notes.ErrNoVideo) {
		t.Fatalf("expected ErrNoVideo, got %v", err)
	}

	texts := client.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "link first") {
		t.Fatalf("unexpected messages %q", texts)
	}

	if got := len(client.documents()); got != 0 {
		t.Fatalf("expected no documents, got %d", got)
	}
}

func TestSendSummaryTextSplitsUnderLimit(t *testing.T) {
	b, client := newTestBot(t, lengthSummarizer{})

	summary := domain.Summary{
		Length:   domain.LengthComprehensive,
		Language: "Russian",
		Text:     strings.Repeat("Пункт **важный** (пример).\n", 400),
	}

	if err := b.sendSummaryText(testChatID, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	texts := client.texts()
	if len(texts) < 2 {
		t.Fatalf("expected several messages, got %d", len(texts))
	}

	header := `*Comprehensive Summary \(Russian\)*`
	for i, text := range texts {
		if len(text) > telegramMessageMaxSize {
			t.Fatalf("message %d is %d bytes", i, len(text))
		}

		if strings.HasPrefix(text, header) != (i == 0) {
			t.Fatalf("message %d: header placement is wrong in %q", i, text[:min(len(text), 60)])
		}
	}
}
