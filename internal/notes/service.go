package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"ytnotes/internal/domain"
	"ytnotes/internal/session"
	"ytnotes/internal/summarizer"
	"ytnotes/internal/youtube"
)

var ErrNoVideo = errors.New("no video link has been entered yet")

// Transcriber fetches the plain-text transcript of a video.
type Transcriber interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// Service turns a chat's video link and options into summaries.
type Service struct {
	transcriber Transcriber
	summarizer  summarizer.Summarizer
	sessions    *session.Store
	now         func() time.Time
	log         *slog.Logger
}

func NewService(
	transcriber Transcriber,
	s summarizer.Summarizer,
	sessions *session.Store,
	log *slog.Logger,
) *Service {
	return &Service{
		transcriber: transcriber,
		summarizer:  s,
		sessions:    sessions,
		now:         time.Now,
		log:         log,
	}
}

// SetVideo finds a video link in text and makes it the chat's current video.
func (s *Service) SetVideo(ctx context.Context, chatID int64, text string) (domain.Video, error) {
	video, err := youtube.FindVideo(text)
	if err != nil {
		return domain.Video{}, err
	}

	if s.sessions.SetVideo(chatID, video, s.now()) {
		s.log.DebugContext(ctx, "Session video is changed",
			"chatID", chatID,
			"videoID", video.ID)
	}

	return video, nil
}

// SetOptions records the options the chat will generate with next.
func (s *Service) SetOptions(ctx context.Context, chatID int64, options domain.Options) {
	if s.sessions.SetOptions(chatID, options, s.now()) {
		s.log.DebugContext(ctx, "Session options are changed",
			"chatID", chatID,
			"language", options.Language,
			"length", options.Length,
			"compare", options.Compare)
	}
}

// Video returns the chat's current video.
func (s *Service) Video(chatID int64) (domain.Video, bool) {
	sess, ok := s.sessions.Get(chatID, s.now())
	if !ok || sess.Video.ID == "" {
		return domain.Video{}, false
	}

	return sess.Video, true
}

// Generate returns summaries for every length the options ask for, in display
// order. Summaries already generated in this session are reused and the
// transcript is fetched only if something is missing.
func (s *Service) Generate(
	ctx context.Context,
	chatID int64,
	options domain.Options,
) ([]domain.Summary, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	s.SetOptions(ctx, chatID, options)

	sess, ok := s.sessions.Get(chatID, s.now())
	if !ok || sess.Video.ID == "" {
		return nil, ErrNoVideo
	}

	lengths := options.Lengths()
	summaries := make([]domain.Summary, 0, len(lengths))
	transcript := ""

	for _, length := range lengths {
		text, cached := sess.Summaries[length]

		if !cached {
			if transcript == "" {
				var err error
				transcript, err = s.transcriber.Transcript(ctx, sess.Video.ID)
				if err != nil {
					return summaries, fmt.Errorf("fetch transcript: %w", err)
				}
			}

			generated, err := s.summarizer.Summarize(ctx, summarizer.Input{
				Transcript: transcript,
				Language:   options.Language,
				Length:     length,
				SourceURL:  sess.Video.URL,
			})
			if err != nil {
				return summaries, fmt.Errorf("summarize %s: %w", length.Lower(), err)
			}

			text = summarizer.FormatSummary(generated)

			if !s.sessions.PutSummary(chatID, sess.Video.ID, options, length, text, s.now()) {
				s.log.WarnContext(ctx, "Session changed while generating summary",
					"chatID", chatID,
					"videoID", sess.Video.ID,
					"length", length)
			}
		}

		s.log.InfoContext(ctx, "Summary is ready",
			"chatID", chatID,
			"videoID", sess.Video.ID,
			"language", options.Language,
			"length", length,
			"cached", cached,
			"textLen", len(text))

		summaries = append(summaries, domain.Summary{
			Length:   length,
			Language: options.Language,
			Text:     text,
		})
	}

	return summaries, nil
}
