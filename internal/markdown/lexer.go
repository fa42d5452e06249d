// Package markdown renders the small markdown subset the chat model is asked
// to produce (bold, italic, two heading levels, flat bullet lists) into an
// HTML fragment.
//
// Rendering is split in two steps: Lex classifies escaped, inline-formatted
// lines into paragraph and list blocks, and Theme.RenderBlocks maps those
// blocks to tags. Both steps are pure and never fail.
package markdown

import (
	"regexp"
	"strings"
	"unicode"
)

// LineKind classifies a single source line after inline formatting.
type LineKind int

const (
	LineText LineKind = iota
	LineHeading3
	LineHeading4
	LineItem
)

// Line is one classified line. Text holds the escaped, inline-formatted
// content with any heading or bullet marker removed.
type Line struct {
	Kind LineKind
	Text string
}

// BlockKind is the wrapper a block is rendered with.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockList
)

// Block is a maximal run of lines separated from its neighbours by one or
// more empty lines.
type Block struct {
	Kind  BlockKind
	Lines []Line
}

// Emphasis is resolved bold first, then italic, each taking the shortest
// span at every position. A "**" pair is always consumed as bold before the
// italic pass sees the line, so "***x***" becomes "<strong><em>x</strong></em>"
// rather than being rebalanced. Both patterns are line-local.
var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern = regexp.MustCompile(`\*(.*?)\*`)
	itemPattern   = regexp.MustCompile(`^[ \t]*[*-][ \t]+(.*)$`)
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML replaces &, < and > with their entities. Quotes are left alone.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Lex splits text into classified blocks. Whitespace-only input yields no
// blocks.
func Lex(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")

	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, classify(formatInline(EscapeHTML(r))))
	}
	lines = trimLines(lines)
	if len(lines) == 0 {
		return nil
	}

	var (
		blocks  []Block
		current []Line
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		blocks = append(blocks, newBlock(current))
		current = nil
	}
	for _, l := range lines {
		if l.Kind == LineText && l.Text == "" {
			flush()
			continue
		}
		current = append(current, l)
	}
	flush()
	return blocks
}

func formatInline(s string) string {
	s = boldPattern.ReplaceAllString(s, "<strong>${1}</strong>")
	return italicPattern.ReplaceAllString(s, "<em>${1}</em>")
}

func classify(s string) Line {
	switch {
	case strings.HasPrefix(s, "### "):
		return Line{Kind: LineHeading4, Text: s[len("### "):]}
	case strings.HasPrefix(s, "## "):
		return Line{Kind: LineHeading3, Text: s[len("## "):]}
	}
	if m := itemPattern.FindStringSubmatch(s); m != nil {
		return Line{Kind: LineItem, Text: m[1]}
	}
	return Line{Kind: LineText, Text: s}
}

// trimLines drops leading and trailing whitespace across the whole text, the
// way trimming the joined output would. Heading and item lines render with
// tags on both ends so only plain text lines are ever shortened.
func trimLines(lines []Line) []Line {
	for len(lines) > 0 && isBlankText(lines[0]) {
		lines = lines[1:]
	}
	for len(lines) > 0 && isBlankText(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	if first := &lines[0]; first.Kind == LineText {
		first.Text = strings.TrimLeftFunc(first.Text, unicode.IsSpace)
	}
	if last := &lines[len(lines)-1]; last.Kind == LineText {
		last.Text = strings.TrimRightFunc(last.Text, unicode.IsSpace)
	}
	return lines
}

func isBlankText(l Line) bool {
	return l.Kind == LineText && strings.TrimSpace(l.Text) == ""
}

func newBlock(lines []Line) Block {
	b := Block{Kind: BlockParagraph, Lines: lines}
	for _, l := range lines {
		if l.Kind == LineItem {
			b.Kind = BlockList
			break
		}
	}
	return b
}
