package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
	queueSize       = 1000
)

var ErrStopped = errors.New("rate limiter is stopped")

// Client is the part of *tgbotapi.BotAPI the limiter calls.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Option func(*RateLimiter)

// WithChatRates overrides the minimum spacing between sends to one chat.
func WithChatRates(private, group time.Duration) Option {
	return func(rl *RateLimiter) {
		rl.privateRate = private
		rl.groupRate = group
	}
}

// job is one queued call. Raw jobs go through Request, for calls that answer
// true instead of a message (chat actions).
type job struct {
	chattable tgbotapi.Chattable
	raw       bool
	result    chan result
}

type result struct {
	message  tgbotapi.Message
	response *tgbotapi.APIResponse
	err      error
}

// RateLimiter serializes chat-bound calls and spaces them per chat so that
// Telegram flood limits are not hit.
type RateLimiter struct {
	client      Client
	queue       chan job
	lastSent    map[int64]time.Time
	privateRate time.Duration
	groupRate   time.Duration
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	log         *slog.Logger
}

func New(client Client, log *slog.Logger, opts ...Option) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	rl := &RateLimiter{
		client:      client,
		queue:       make(chan job, queueSize),
		lastSent:    make(map[int64]time.Time),
		privateRate: privateChatRate,
		groupRate:   groupChatRate,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		log:         log,
	}

	for _, opt := range opts {
		opt(rl)
	}

	go rl.processQueue()

	return rl
}

// Send posts a message, photo or document once the chat's rate allows it.
func (rl *RateLimiter) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	res := rl.enqueue(job{chattable: c})

	return res.message, res.err
}

// SendChatAction queues a chat action like any other chat-bound call.
func (rl *RateLimiter) SendChatAction(c tgbotapi.ChatActionConfig) error {
	return rl.enqueue(job{chattable: c, raw: true}).err
}

// Request bypasses the queue. It is meant for callback answers, which do not
// post into a chat.
func (rl *RateLimiter) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if rl.ctx.Err() != nil {
		return nil, ErrStopped
	}

	return rl.client.Request(c)
}

// Stop fails queued and future calls with ErrStopped and waits for the
// queue worker to exit. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.cancel()
	<-rl.done
}

func (rl *RateLimiter) enqueue(j job) result {
	j.result = make(chan result, 1)

	if rl.ctx.Err() != nil {
		return result{err: ErrStopped}
	}

	select {
	case rl.queue <- j:
	case <-rl.ctx.Done():
		return result{err: ErrStopped}
	}

	select {
	case res := <-j.result:
		return res
	case <-rl.done:
		// The worker may have answered right before exiting.
		select {
		case res := <-j.result:
			return res
		default:
			return result{err: ErrStopped}
		}
	}
}

func (rl *RateLimiter) processQueue() {
	defer close(rl.done)

	for {
		select {
		case j := <-rl.queue:
			rl.handle(j)
		case <-rl.ctx.Done():
			rl.drain()
			return
		}
	}
}

// drain fails whatever is buffered. The queue is never closed, so a
// concurrent enqueue cannot panic; it is released by done instead.
func (rl *RateLimiter) drain() {
	for {
		select {
		case j := <-rl.queue:
			j.result <- result{err: ErrStopped}
		default:
			return
		}
	}
}

func (rl *RateLimiter) handle(j job) {
	if rl.ctx.Err() != nil {
		j.result <- result{err: ErrStopped}
		return
	}

	chatID := getChatID(j.chattable)

	if delay := rl.delay(chatID, time.Now()); delay > 0 {
		rl.log.DebugContext(rl.ctx, "Rate limiting chat call",
			"chatID", chatID,
			"delay", delay,
			"chattableType", fmt.Sprintf("%T", j.chattable),
			"queueLen", len(rl.queue))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-rl.ctx.Done():
			timer.Stop()
			j.result <- result{err: ErrStopped}
			return
		}
	}

	var res result
	if j.raw {
		res.response, res.err = rl.client.Request(j.chattable)
	} else {
		res.message, res.err = rl.client.Send(j.chattable)
	}

	rl.mu.Lock()
	rl.lastSent[chatID] = time.Now()
	rl.mu.Unlock()

	j.result <- res
}

func (rl *RateLimiter) delay(chatID int64, now time.Time) time.Duration {
	rl.mu.Lock()
	lastSent, ok := rl.lastSent[chatID]
	rl.mu.Unlock()

	if !ok {
		return 0
	}

	rate := rl.privateRate
	if chatID < 0 {
		rate = rl.groupRate
	}

	return max(rate-now.Sub(lastSent), 0)
}

func getChatID(c tgbotapi.Chattable) int64 {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.ChatID
	case tgbotapi.EditMessageTextConfig:
		return m.ChatID
	case tgbotapi.DeleteMessageConfig:
		return m.ChatID
	case tgbotapi.ChatActionConfig:
		return m.ChatID
	case tgbotapi.PhotoConfig:
		return m.ChatID
	case tgbotapi.DocumentConfig:
		return m.ChatID
	default:
		return 0
	}
}
