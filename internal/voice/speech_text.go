package voice

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	speechURLPattern        = regexp.MustCompile(`https?://\S+`)
	speechFencedCodePattern = regexp.MustCompile("(?s)```.*?```")
	speechInlineCodePattern = regexp.MustCompile("`[^`]*`")
	speechLinkPattern       = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	// Heading hashes, bullets and "1." style markers at the start of a line.
	speechLineMarkerPattern = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}|[-*+•]|\d{1,3}[.)])[ \t]+`)

	speechSymbolReplacer = strings.NewReplacer(
		"*", " ", "_", " ", "\\", " ", "/", " ", "|", " ",
		"#", " ", "~", " ", "<", " ", ">", " ",
	)
)

type speechRuneClass int

const (
	speechKeep speechRuneClass = iota
	speechDrop
	speechSpace
)

func classifySpeechRune(r rune) speechRuneClass {
	switch {
	case r == '\u200d' || r == '\ufe0f' || r == '\u20e3':
		return speechDrop
	case unicode.IsSpace(r):
		return speechSpace
	case unicode.IsControl(r), unicode.In(r, unicode.So, unicode.Sm, unicode.Sk):
		// Emoji and math/modifier symbols read badly aloud.
		return speechDrop
	}
	switch r {
	case '.', ',', '!', '?', ':', ';', '\'', '"', '-', '(', ')':
		return speechKeep
	}
	if unicode.IsPunct(r) {
		return speechSpace
	}
	return speechKeep
}

// sanitizeSpeechText turns a model reply that may contain markdown into plain
// spoken prose with single spaces.
func sanitizeSpeechText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	raw = speechFencedCodePattern.ReplaceAllString(raw, " ")
	raw = speechInlineCodePattern.ReplaceAllString(raw, " ")
	raw = speechLinkPattern.ReplaceAllString(raw, "$1")
	raw = speechURLPattern.ReplaceAllString(raw, " ")
	raw = speechLineMarkerPattern.ReplaceAllString(raw, "")
	raw = speechSymbolReplacer.Replace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	pendingSpace := false
	for _, r := range raw {
		switch classifySpeechRune(r) {
		case speechDrop:
		case speechSpace:
			pendingSpace = b.Len() > 0
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// prepareSpeechText cleans text for synthesis and caps it at maxRunes.
// If cleaning strips everything, the raw text is used instead.
func prepareSpeechText(raw string, maxRunes int) string {
	text := sanitizeSpeechText(raw)
	if text == "" {
		text = strings.TrimSpace(raw)
	}
	if maxRunes > 0 {
		runes := []rune(text)
		if len(runes) > maxRunes {
			text = string(runes[:maxRunes])
		}
	}
	return text
}
