package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"ytnotes/internal/domain"

	"mvdan.cc/xurls/v2"
)

var ErrInvalidVideoURL = errors.New("invalid YouTube URL")

//nolint:gochecknoglobals // Compiled once, never mutated.
var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID extracts the video identifier from a YouTube link or returns
// raw itself when it already is a bare identifier.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: link is empty", ErrInvalidVideoURL)
	}

	if videoIDRe.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidVideoURL, err)
	}

	id := videoIDFromURL(u)
	if !videoIDRe.MatchString(id) {
		return "", fmt.Errorf("%w: no video ID in %q", ErrInvalidVideoURL, raw)
	}

	return id, nil
}

func videoIDFromURL(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtu.be":
		return segments[0]
	case "youtube.com", "youtube-nocookie.com":
		if segments[0] == "watch" {
			return u.Query().Get("v")
		}

		if len(segments) < 2 {
			return ""
		}

		switch segments[0] {
		case "shorts", "embed", "live", "v":
			return segments[1]
		}
	}

	return ""
}

// NewVideo builds a video from a link the user sent.
func NewVideo(raw string) (domain.Video, error) {
	id, err := ParseVideoID(raw)
	if err != nil {
		return domain.Video{}, err
	}

	return domain.Video{ID: id, URL: strings.TrimSpace(raw)}, nil
}

// FindVideo returns the first YouTube video referenced in free text. The
// whole text is tried first so that bare identifiers and scheme-less links
// are accepted.
func FindVideo(text string) (domain.Video, error) {
	text = strings.TrimSpace(text)

	if v, err := NewVideo(text); err == nil {
		return v, nil
	}

	for _, candidate := range xurls.Relaxed().FindAllString(text, -1) {
		if v, err := NewVideo(candidate); err == nil {
			return v, nil
		}
	}

	return domain.Video{}, fmt.Errorf("%w: no video link found", ErrInvalidVideoURL)
}
