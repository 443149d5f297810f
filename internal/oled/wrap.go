package oled

import "strings"

// maxWrapLines caps wrapped output the way the firmware does, so a huge
// subtitle cannot blow the scroll height.
const maxWrapLines = 32

// WrapMonospace word-wraps text to charsPerLine columns: greedy packing,
// break at the last space within the budget, hard break at the character
// boundary when a word alone exceeds the line.
func WrapMonospace(text string, charsPerLine int) []string {
	if charsPerLine < 1 {
		charsPerLine = 1
	}

	runes := []rune(text)
	var lines []string
	pos := 0

	for pos < len(runes) && len(lines) < maxWrapLines {
		remaining := len(runes) - pos
		if remaining <= charsPerLine {
			lines = append(lines, string(runes[pos:]))
			break
		}

		breakAt := pos + charsPerLine
		lastSpace := -1
		for i := pos; i < breakAt; i++ {
			if runes[i] == ' ' {
				lastSpace = i
			}
		}

		if lastSpace > pos {
			lines = append(lines, string(runes[pos:lastSpace]))
			pos = lastSpace + 1
		} else {
			lines = append(lines, string(runes[pos:breakAt]))
			pos = breakAt
		}
	}

	return lines
}

// WrapProportional word-wraps text by measured pixel width for a line of
// height lineH: words are appended while the candidate line fits the canvas
// width, and a lone word wider than the canvas is flushed as its own line.
func WrapProportional(text string, lineH int) []string {
	var lines []string
	var current string

	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		switch {
		case measureProp(candidate, lineH) <= Width:
			current = candidate
		case current != "":
			lines = append(lines, current)
			current = word
		default:
			// Single word wider than the canvas: keep it anyway
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
