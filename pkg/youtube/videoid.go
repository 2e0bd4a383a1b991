package youtube

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// URL patterns the dashboard accepts: standard watch links, short links,
// embeds, shorts, and mobile links.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^&\n?#]+)`),
	regexp.MustCompile(`m\.youtube\.com/watch\?v=([^&\n?#]+)`),
}

var bareVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ErrInvalidVideoURL is returned when no video id can be extracted.
var ErrInvalidVideoURL = eris.New("youtube: not a recognized video URL")

// ExtractVideoID pulls the 11-character video id out of any supported
// YouTube URL form. A bare video id passes through unchanged.
func ExtractVideoID(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)

	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); len(m) > 1 && m[1] != "" {
			return m[1], nil
		}
	}

	if bareVideoID.MatchString(rawURL) {
		return rawURL, nil
	}

	return "", eris.Wrapf(ErrInvalidVideoURL, "%q", rawURL)
}

// FormatRelativeTime renders t relative to now ("just now", "2 hours ago").
func FormatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	seconds := int(diff.Seconds())

	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return pluralize(seconds/60, "minute")
	case seconds < 86400:
		return pluralize(seconds/3600, "hour")
	case seconds < 604800:
		return pluralize(seconds/86400, "day")
	case seconds < 2592000:
		return pluralize(seconds/604800, "week")
	default:
		return pluralize(seconds/2592000, "month")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
