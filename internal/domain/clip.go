package domain

import (
	"strings"
	"time"
	"unicode"
)

// Clip is a catalog entry for a short video segment
type Clip struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	BroadcasterName string    `json:"broadcaster_name"`
	CreatorName     string    `json:"creator_name"`
	ViewCount       int       `json:"view_count"`
	Language        string    `json:"language"`
	CreatedAt       time.Time `json:"created_at"`
	Game            string    `json:"game,omitempty"`
}

// DestinationFileName derives the local media file name from the clip title.
// Whitespace and path separators become underscores and the extension is .mp4.
func (c *Clip) DestinationFileName() string {
	return FileNameForTitle(c.Title)
}

// FileNameForTitle maps a clip title to its media file name
func FileNameForTitle(title string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, title)
	return name + ".mp4"
}

// MatchesTitle reports whether the clip title equals title, ignoring case
func (c *Clip) MatchesTitle(title string) bool {
	return strings.EqualFold(c.Title, title)
}
