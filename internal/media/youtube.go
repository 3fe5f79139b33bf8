package media

import "regexp"

var (
	watchPattern    = regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]+)`)
	shortPattern    = regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]+)`)
	playlistPattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/playlist\?list=([a-zA-Z0-9_-]+)`)
)

// IsYouTubeURL reports whether url points at a YouTube video or playlist.
func IsYouTubeURL(url string) bool {
	return watchPattern.MatchString(url) ||
		shortPattern.MatchString(url) ||
		playlistPattern.MatchString(url)
}

// ExtractVideoID pulls the video ID out of a YouTube watch or short URL.
// Returns "" when the URL carries no video ID (e.g. a playlist).
func ExtractVideoID(url string) string {
	if m := watchPattern.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	if m := shortPattern.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	return ""
}
