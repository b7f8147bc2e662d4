package domain

import (
	"fmt"
	"strings"
)

// Length is a summary length label.
type Length string

const (
	LengthBrief         Length = "Brief"
	LengthDetailed      Length = "Detailed"
	LengthComprehensive Length = "Comprehensive"
)

const DefaultLanguage = "English"

// Lengths returns every length label in display order.
func Lengths() []Length {
	return []Length{LengthBrief, LengthDetailed, LengthComprehensive}
}

// ParseLength matches s against the known labels case-insensitively.
func ParseLength(s string) (Length, bool) {
	s = strings.TrimSpace(s)

	for _, l := range Lengths() {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}

	return "", false
}

func (l Length) Valid() bool {
	_, ok := ParseLength(string(l))
	return ok
}

// WordLimit is the approximate word count the model is asked for.
func (l Length) WordLimit() int {
	switch l {
	case LengthBrief:
		return 1000
	case LengthDetailed:
		return 1500
	case LengthComprehensive:
		return 2000
	default:
		return 0
	}
}

// Lower is the label as used inside prompts and file names.
func (l Length) Lower() string {
	return strings.ToLower(string(l))
}

// Languages returns the supported summary languages in display order.
func Languages() []string {
	return []string{
		"English",
		"Spanish",
		"French",
		"German",
		"Italian",
		"Portuguese",
		"Russian",
		"Japanese",
		"Korean",
		"Chinese",
		"Hindi",
		"Marathi",
	}
}

func ValidLanguage(language string) bool {
	for _, l := range Languages() {
		if l == language {
			return true
		}
	}

	return false
}

// Options are the user-selected inputs that shape a summary.
type Options struct {
	Language string
	Length   Length
	Compare  bool
}

func DefaultOptions() Options {
	return Options{
		Language: DefaultLanguage,
		Length:   LengthBrief,
	}
}

// Lengths returns the lengths to generate: all of them when comparing,
// otherwise only the selected one.
func (o Options) Lengths() []Length {
	if o.Compare {
		return Lengths()
	}

	return []Length{o.Length}
}

func (o Options) Validate() error {
	if !ValidLanguage(o.Language) {
		return fmt.Errorf("unsupported language %q", o.Language)
	}

	if !o.Length.Valid() {
		return fmt.Errorf("unsupported summary length %q", o.Length)
	}

	return nil
}

type UserSettings struct {
	UserID  int64
	Options Options
}

type Video struct {
	ID  string
	URL string
}

func (v Video) ThumbnailURL() string {
	return "https://img.youtube.com/vi/" + v.ID + "/0.jpg"
}

type Summary struct {
	Length   Length
	Language string
	Text     string
}

// Title is the heading used for both chat output and documents.
func (s Summary) Title() string {
	return fmt.Sprintf("%s Summary (%s)", s.Length, s.Language)
}
