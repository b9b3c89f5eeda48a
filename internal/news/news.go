package news

import (
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Item is a single normalized feed entry. It lives for one run only.
type Item struct {
	Title   string
	Link    string
	Summary string // plain text, no tags, at most the configured cap in runes
	Source  string
}

// tagRe only matches real tags: "<" must be followed by a name, "/", "!" or "?".
// A lone "<" as in "latency < 10ms" is text.
var tagRe = regexp.MustCompile(`</?[A-Za-z!?][^>]*>`)

// CleanHTML turns a feed description into plain text. Tags are stripped
// before entities are decoded, and once more after, so escaped markup goes
// too while escaped comparison signs survive. Whitespace is collapsed.
func CleanHTML(raw string) string {
	text := tagRe.ReplaceAllString(raw, " ")
	text = html.UnescapeString(text)
	text = tagRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

// Summarize cleans raw feed markup and caps the result.
func Summarize(raw string, max int) string {
	return Truncate(CleanHTML(raw), max)
}

// IsYesterday reports whether published falls on the calendar day before now,
// both compared as local dates in loc.
func IsYesterday(published, now time.Time, loc *time.Location) bool {
	if published.IsZero() {
		return false
	}
	if loc == nil {
		loc = time.Local
	}
	py, pm, pd := published.In(loc).Date()
	yy, ym, yd := now.In(loc).AddDate(0, 0, -1).Date()
	return py == yy && pm == ym && pd == yd
}

// Titles returns the item titles in order; handy for logs.
func Titles(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}
