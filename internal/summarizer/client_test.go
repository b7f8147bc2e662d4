package summarizer_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"ytnotes/internal/domain"
	"ytnotes/internal/summarizer"

	"github.com/openai/openai-go/v3/option"
)

type recordingServer struct {
	mu      sync.Mutex
	bodies  []map[string]any
	paths   []string
	respond func(call int) string
	server  *httptest.Server
}

func newRecordingServer(t *testing.T, respond func(call int) string) *recordingServer {
	t.Helper()

	rs := &recordingServer{respond: respond}
	rs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}

		rs.mu.Lock()
		rs.bodies = append(rs.bodies, body)
		rs.paths = append(rs.paths, r.URL.Path)
		call := len(rs.bodies)
		rs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, rs.respond(call))
	}))
	t.Cleanup(rs.server.Close)

	return rs
}

func (rs *recordingServer) opts() []option.RequestOption {
	return []option.RequestOption{
		option.WithBaseURL(rs.server.URL + "/"),
		option.WithMaxRetries(0),
	}
}

func (rs *recordingServer) calls() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return len(rs.bodies)
}

func chatCompletionJSON(content string, finishReason string) string {
	message, _ := json.Marshal(content)

	return `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gemini-2.0-flash",` +
		`"choices":[{"index":0,"finish_reason":"` + finishReason + `",` +
		`"message":{"role":"assistant","content":` + string(message) + `}}]}`
}

func testInput() summarizer.Input {
	return summarizer.Input{
		Transcript: "today we talk about goroutines",
		Language:   "German",
		Length:     domain.LengthDetailed,
		SourceURL:  "https://youtu.be/dQw4w9WgXcQ",
	}
}

func TestChatSummarizerSummarize(t *testing.T) {
	rs := newRecordingServer(t, func(int) string {
		return chatCompletionJSON("  Eine Zusammenfassung.  ", "stop")
	})

	s := summarizer.NewGeminiSummarizer("key", "gemini-2.0-flash", rs.opts()...)

	got, err := s.Summarize(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Eine Zusammenfassung." {
		t.Fatalf("unexpected summary: %q", got)
	}

	if rs.paths[0] != "/chat/completions" {
		t.Fatalf("unexpected path: %q", rs.paths[0])
	}

	body := rs.bodies[0]
	if body["model"] != "gemini-2.0-flash" {
		t.Fatalf("unexpected model: %v", body["model"])
	}

	messages, ok := body["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", body["messages"])
	}

	system, _ := messages[0].(map[string]any)
	if content, _ := system["content"].(string); !strings.Contains(content, "approximately 1500 words") {
		t.Fatalf("expected prompt in system message, got %v", system["content"])
	}

	user, _ := messages[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "goroutines") {
		t.Fatalf("expected transcript in user message, got %v", user["content"])
	}
}

func TestChatSummarizerContentFiltered(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"Finish reason", chatCompletionJSON("partial", "content_filter")},
		{"Empty text", chatCompletionJSON("   ", "stop")},
		{"No choices", `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rs := newRecordingServer(t, func(int) string { return test.response })
			s := summarizer.NewChatSummarizer("key", "m", rs.opts()...)

			if _, err := s.Summarize(context.Background(), testInput()); !errors.Is(err, summarizer.ErrContentFiltered) {
				t.Fatalf("expected ErrContentFiltered, got %v", err)
			}
		})
	}
}

func TestChatSummarizerDoublesBudgetWhenCutOff(t *testing.T) {
	rs := newRecordingServer(t, func(call int) string {
		if call == 1 {
			return chatCompletionJSON("Intro. The first half of a summ", "length")
		}
		return chatCompletionJSON("Full summary.", "stop")
	})

	s := summarizer.NewGeminiSummarizer("key", "gemini-2.0-flash", rs.opts()...)

	got, err := s.Summarize(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Full summary." {
		t.Fatalf("unexpected summary: %q", got)
	}

	if rs.calls() != 2 {
		t.Fatalf("expected two calls, got %d", rs.calls())
	}

	first, _ := rs.bodies[0]["max_completion_tokens"].(float64)
	second, _ := rs.bodies[1]["max_completion_tokens"].(float64)
	if first != 3000 || second != 6000 {
		t.Fatalf("unexpected token budgets: %v then %v", first, second)
	}
}

func TestChatSummarizerTruncatedAtLimit(t *testing.T) {
	rs := newRecordingServer(t, func(int) string {
		return chatCompletionJSON("Intro. The first half of a summ", "length")
	})

	s := summarizer.NewChatSummarizer("key", "m", rs.opts()...)

	got, err := s.Summarize(context.Background(), testInput())
	if !errors.Is(err, summarizer.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got summary %q and error %v", got, err)
	}

	// 3000, 6000, 12000 and the 16384 cap.
	if rs.calls() != 4 {
		t.Fatalf("expected four calls, got %d", rs.calls())
	}

	last, _ := rs.bodies[3]["max_completion_tokens"].(float64)
	if last != 16384 {
		t.Fatalf("unexpected last token budget: %v", last)
	}
}

func TestChatSummarizerRejectsEmptyTranscript(t *testing.T) {
	rs := newRecordingServer(t, func(int) string { return chatCompletionJSON("x", "stop") })
	s := summarizer.NewChatSummarizer("key", "m", rs.opts()...)

	input := testInput()
	input.Transcript = " "

	if _, err := s.Summarize(context.Background(), input); !errors.Is(err, summarizer.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	if rs.calls() != 0 {
		t.Fatalf("expected no API calls, got %d", rs.calls())
	}
}

const completedResponseJSON = `{"id":"resp_1","object":"response","created_at":1,"status":"completed",` +
	`"model":"gpt-5-mini","output":[{"type":"message","id":"msg_1","status":"completed","role":"assistant",` +
	`"content":[{"type":"output_text","text":"Final summary","annotations":[]}]}]}`

const incompleteResponseJSON = `{"id":"resp_1","object":"response","created_at":1,"status":"incomplete",` +
	`"model":"gpt-5-mini","incomplete_details":{"reason":"%s"},"output":[]}`

func TestOpenAISummarizerDoublesBudgetWhenIncomplete(t *testing.T) {
	rs := newRecordingServer(t, func(call int) string {
		if call == 1 {
			return fmt.Sprintf(incompleteResponseJSON, "max_output_tokens")
		}
		return completedResponseJSON
	})

	s := summarizer.NewOpenAISummarizer("key", "gpt-5-mini", rs.opts()...)

	got, err := s.Summarize(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Final summary" {
		t.Fatalf("unexpected summary: %q", got)
	}

	if rs.calls() != 2 {
		t.Fatalf("expected two calls, got %d", rs.calls())
	}

	first, _ := rs.bodies[0]["max_output_tokens"].(float64)
	second, _ := rs.bodies[1]["max_output_tokens"].(float64)
	if first != 3000 || second != 6000 {
		t.Fatalf("unexpected token budgets: %v then %v", first, second)
	}

	if rs.paths[0] != "/responses" {
		t.Fatalf("unexpected path: %q", rs.paths[0])
	}
}

func TestOpenAISummarizerContentFilter(t *testing.T) {
	rs := newRecordingServer(t, func(int) string {
		return fmt.Sprintf(incompleteResponseJSON, "content_filter")
	})

	s := summarizer.NewOpenAISummarizer("key", "gpt-5-mini", rs.opts()...)

	if _, err := s.Summarize(context.Background(), testInput()); !errors.Is(err, summarizer.ErrContentFiltered) {
		t.Fatalf("expected ErrContentFiltered, got %v", err)
	}
}

func TestOpenAISummarizerTruncatedAtLimit(t *testing.T) {
	rs := newRecordingServer(t, func(int) string {
		return fmt.Sprintf(incompleteResponseJSON, "max_output_tokens")
	})

	s := summarizer.NewOpenAISummarizer("key", "gpt-5-mini", rs.opts()...)

	if _, err := s.Summarize(context.Background(), testInput()); !errors.Is(err, summarizer.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}

	if rs.calls() != 4 {
		t.Fatalf("expected four calls, got %d", rs.calls())
	}
}
