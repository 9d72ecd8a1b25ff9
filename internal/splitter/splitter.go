// Package splitter partitions post text into segments that honor the
// per-post character limit, weaving hashtags into the segments as it goes.
// Segment text plus decorations never exceeds the limit, and the segment
// cores concatenate back to the input text with nothing lost.
package splitter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultLimit is the Threads per-post character limit.
const DefaultLimit = 500

var (
	// trailingTagPattern matches a run of hashtags at the end of the text,
	// separated by single whitespace and preceded by whitespace.
	trailingTagPattern = regexp.MustCompile(`\s(#\w+(?:\s#\w+)*)$`)

	// inlineTagPattern matches a hashtag the author wove into the text
	// themselves, which makes auto-appending another one redundant.
	inlineTagPattern = regexp.MustCompile(`#\w+\s?\w+`)
)

// Splitter chunks text by rune count. When autoSkipInline is set, a chunk
// that already carries an inline hashtag is left untagged and the space
// reserved for the tag goes back to the text.
type Splitter struct {
	limit          int
	autoSkipInline bool
}

// New creates a Splitter for the given limit; limit <= 0 selects
// DefaultLimit.
func New(limit int, autoSkipInline bool) *Splitter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Splitter{limit: limit, autoSkipInline: autoSkipInline}
}

// ExtractTrailingTags pulls the trailing hashtag run off text, returning the
// remaining text and the tags in order. The run must follow whitespace, so a
// bare hashtag with nothing before it stays in the text.
func ExtractTrailingTags(text string) (string, []string) {
	match := trailingTagPattern.FindStringSubmatch(text)
	if match == nil {
		return text, nil
	}
	remaining := strings.TrimSpace(trailingTagPattern.ReplaceAllString(text, ""))
	return remaining, strings.Split(match[1], " ")
}

// PersistTags replaces each tag with the full joined tag string, so every
// tagged segment ends up carrying all of them.
func PersistTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	joined := strings.Join(tags, " ")
	out := make([]string, len(tags))
	for i := range out {
		out[i] = joined
	}
	return out
}

// Split partitions text into ordered segments of at most the limit,
// distributing one tag per segment on its own line. Continuation is marked
// with "..." at the cut ends. Tags beyond what the text needs are dropped;
// text beyond what the tags cover continues in untagged segments.
func (s *Splitter) Split(text string, tags []string) []string {
	post := []rune(text)
	if len(post) <= s.limit {
		return s.splitShort(post, tags)
	}
	return s.splitLong(post, tags)
}

func (s *Splitter) splitShort(post []rune, tags []string) []string {
	firstTag := ""
	if len(tags) > 0 && !s.skipTag(string(post)) {
		firstTag = "\n" + strings.TrimSpace(tags[0])
	}
	if len(post)+utf8.RuneCountInString(firstTag) <= s.limit {
		return []string{string(post) + firstTag}
	}

	// Appending the tag overflows: cut into two segments, reserving three
	// runes for the ellipsis, and hand a second tag to the tail.
	extra := len(post) + utf8.RuneCountInString(firstTag) + 3 - s.limit
	head := string(window(post, 0, len(post)-extra)) + "..." + firstTag

	secondTag := ""
	if len(tags) > 1 && !s.skipTag(string(post)) {
		secondTag = "\n" + strings.TrimSpace(tags[1])
	}
	tail := "..." + string(window(post, len(post)-extra, len(post))) + secondTag

	return []string{head, tail}
}

func (s *Splitter) splitLong(post []rune, tags []string) []string {
	if chunkCount := ceilDiv(len(post), s.limit); len(tags) > chunkCount {
		tags = tags[:chunkCount]
	}

	var segments []string
	prevStrip := 0 // runes the decorations of earlier chunks displaced
	consumed := 0
	for i := range tags {
		tag := "\n" + strings.TrimSpace(tags[i])
		extraStrip, preDots := 3, ""
		if i > 0 {
			extraStrip, preDots = 6, "..."
		}
		subDots := ""
		if i+1 < len(tags) || s.limit*(i+1) < len(post) {
			subDots = "..."
		}

		tagLen := utf8.RuneCountInString(tag)
		lo := s.limit*i - prevStrip
		core := window(post, lo, s.limit*(i+1)-(extraStrip+prevStrip+tagLen))
		if s.skipTag(string(core)) {
			// The chunk already carries a hashtag inline: leave it untagged
			// and let the text reclaim the reserved runes.
			tag, tagLen = "", 0
			core = window(post, lo, s.limit*(i+1)-(extraStrip+prevStrip))
		}

		segments = append(segments, preDots+string(core)+subDots+tag)
		prevStrip += extraStrip + tagLen
		consumed += len(core)
	}

	// Tags ran out before the text: keep chunking the remainder untagged.
	remaining := post[consumed:]
	startStrip := 0
	for i := 0; s.limit*i-startStrip < len(remaining); i++ {
		extraStrip, preDots := 6, "..."
		if i == 0 && len(segments) == 0 {
			extraStrip, preDots = 3, ""
		}
		lo := s.limit*i - startStrip
		hi := s.limit*(i+1) - (extraStrip + startStrip)
		subDots := ""
		if hi < len(remaining) {
			subDots = "..."
		}
		segments = append(segments, preDots+string(window(remaining, lo, hi))+subDots)
		startStrip += extraStrip
	}

	return segments
}

func (s *Splitter) skipTag(chunk string) bool {
	return s.autoSkipInline && inlineTagPattern.MatchString(chunk)
}

// window slices r with bounds clamped to the slice; inverted ranges yield an
// empty window.
func window(r []rune, lo, hi int) []rune {
	if lo < 0 {
		lo = 0
	}
	if lo > len(r) {
		lo = len(r)
	}
	if hi > len(r) {
		hi = len(r)
	}
	if hi < lo {
		hi = lo
	}
	return r[lo:hi]
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
