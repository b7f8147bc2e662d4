package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

const (
	DefaultTranscriptLanguage = "en"
	transcriptClientTimeout   = 30 * time.Second
)

var (
	ErrTranscriptUnavailable = errors.New("transcript is unavailable for this video")
	ErrEmptyTranscript       = errors.New("transcript is empty")
)

// TranscriptClient fetches caption tracks through the public player API.
type TranscriptClient struct {
	client   *youtube.Client
	language string
	log      *slog.Logger
}

func NewTranscriptClient(language string, log *slog.Logger) *TranscriptClient {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultTranscriptLanguage
	}

	return &TranscriptClient{
		client:   &youtube.Client{},
		language: language,
		log:      log,
	}
}

// Transcript returns the whole caption track of the video as one line of text.
func (c *TranscriptClient) Transcript(ctx context.Context, videoID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, transcriptClientTimeout)
	defer cancel()

	video, err := c.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("get video: %w", err)
	}

	segments, err := c.client.GetTranscriptCtx(ctx, video, c.language)
	if err != nil {
		if errors.Is(err, youtube.ErrTranscriptDisabled) {
			return "", fmt.Errorf("%w: %w", ErrTranscriptUnavailable, err)
		}

		return "", fmt.Errorf("get transcript: %w", err)
	}

	text := joinSegments(segments)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	c.log.DebugContext(ctx, "Transcript is fetched",
		"videoID", videoID,
		"title", video.Title,
		"language", c.language,
		"segmentCount", len(segments),
		"textLen", len(text))

	return text, nil
}

func joinSegments(segments youtube.VideoTranscript) string {
	var b strings.Builder

	for _, segment := range segments {
		for _, word := range strings.Fields(segment.Text) {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(word)
		}
	}

	return b.String()
}
