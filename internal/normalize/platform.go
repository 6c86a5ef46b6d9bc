package normalize

import "strings"

var platformLabels = map[string]string{
	"linkedin":  "LinkedIn",
	"twitter":   "Twitter",
	"instagram": "Instagram",
	"facebook":  "Facebook",
	"tiktok":    "TikTok",
	"youtube":   "YouTube",
}

// Platform lower-cases and trims a platform tag.
func Platform(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

// Label returns the display label for a platform tag. Unknown tags pass
// through unchanged; a blank tag becomes "Unknown".
func Label(p string) string {
	if label, ok := platformLabels[Platform(p)]; ok {
		return label
	}
	if strings.TrimSpace(p) == "" {
		return "Unknown"
	}
	return p
}

// ProfileURL guesses the public profile page for a username on a labelled
// platform. It returns "" when no guess is possible.
func ProfileURL(label, username string) string {
	if username == "" || strings.HasPrefix(username, "http://") || strings.HasPrefix(username, "https://") {
		return ""
	}
	switch label {
	case "LinkedIn":
		return "https://www.linkedin.com/in/" + username
	case "Twitter":
		return "https://twitter.com/" + username
	case "Instagram":
		return "https://instagram.com/" + username
	case "Facebook":
		return "https://facebook.com/" + username
	case "TikTok":
		return "https://www.tiktok.com/@" + username
	case "YouTube":
		return "https://www.youtube.com/@" + username
	default:
		return ""
	}
}
