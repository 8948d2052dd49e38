package postprocess

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxHintLength keeps a hint readable on one screen
const MaxHintLength = 600

var (
	labelPattern   = regexp.MustCompile(`(?i)^\s*(?:\*\*)?(?:hint|answer|tip)(?:\*\*)?\s*:\s*(?:\*\*)?\s*`)
	headingPattern = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	bulletPattern  = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+`)
	spacePattern   = regexp.MustCompile(`\s+`)

	// ** before * so bold is not read as two italics
	emphasisPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\*\*(\S(?:.*?\S)?)\*\*`),
		regexp.MustCompile(`\*(\S(?:.*?\S)?)\*`),
		regexp.MustCompile("`([^`]+)`"),
	}

	// underscores only count at word edges so snake_case names survive
	underscorePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(^|\W)__(\S(?:.*?\S)?)__(\W|$)`),
		regexp.MustCompile(`(^|\W)_(\S(?:.*?\S)?)_(\W|$)`),
	}
)

// Trim removes surrounding whitespace
func Trim(ctx context.Context, text string) (string, error) {
	return strings.TrimSpace(text), nil
}

// StripLabel drops a leading "Hint:" style label
func StripLabel(ctx context.Context, text string) (string, error) {
	return labelPattern.ReplaceAllString(text, ""), nil
}

// StripMarkdown removes emphasis markers, headings and list bullets
func StripMarkdown(ctx context.Context, text string) (string, error) {
	text = headingPattern.ReplaceAllString(text, "")
	text = bulletPattern.ReplaceAllString(text, "")
	for _, re := range emphasisPatterns {
		text = re.ReplaceAllString(text, "$1")
	}
	for _, re := range underscorePatterns {
		text = re.ReplaceAllString(text, "$1$2$3")
	}
	return text, nil
}

// CollapseWhitespace joins lines and runs of spaces into single spaces
func CollapseWhitespace(ctx context.Context, text string) (string, error) {
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " ")), nil
}

// Truncate caps text at max runes, cutting at a word boundary and adding an ellipsis
func Truncate(max int) Processor {
	return func(ctx context.Context, text string) (string, error) {
		if utf8.RuneCountInString(text) <= max {
			return text, nil
		}

		runes := []rune(text)
		cut := string(runes[:max-1])
		if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
			cut = cut[:i]
		}
		return strings.TrimRight(cut, " ,;:") + "…", nil
	}
}
