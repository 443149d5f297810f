// Package lyrics parses SRT and LRC subtitle text into timed lyric lines
// and resolves the active line for a playback position.
package lyrics

import (
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Line is one timed lyric entry. StartMs is inclusive, EndMs exclusive.
type Line struct {
	Index   int
	StartMs int
	EndMs   int
	Text    string
}

var (
	timestampRe    = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`)
	lrcTimestampRe = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?:[.:](\d{1,3}))?\]`)
	arrowRe        = regexp.MustCompile(`\s*-->\s*`)
	blockSplitRe   = regexp.MustCompile(`\n\n+`)
	htmlTagRe      = regexp.MustCompile(`<[^>]+>`)
)

// parseTimestamp converts an SRT timestamp ("h:mm:ss,mmm") to milliseconds.
// Fractional parts shorter than three digits are right-padded with zeros.
func parseTimestamp(ts string) int {
	m := timestampRe.FindStringSubmatch(strings.TrimSpace(ts))
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	millis, _ := strconv.Atoi(padMillis(m[4]))
	return hours*3600000 + minutes*60000 + seconds*1000 + millis
}

func padMillis(s string) string {
	for len(s) < 3 {
		s += "0"
	}
	return s
}

// ParseSRT parses SRT formatted text into lyric lines. When no SRT blocks
// parse, it falls back to LRC-style timestamps so a .lrc file renamed to
// .srt still loads.
func ParseSRT(text string) []Line {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}

	var lines []Line
	for _, block := range blockSplitRe.Split(text, -1) {
		rows := strings.Split(strings.TrimSpace(block), "\n")
		if len(rows) < 2 {
			continue
		}

		idx, err := strconv.Atoi(strings.TrimSpace(rows[0]))
		if err != nil {
			continue
		}

		parts := arrowRe.Split(strings.TrimSpace(rows[1]), -1)
		if len(parts) != 2 {
			continue
		}
		startMs := parseTimestamp(parts[0])
		endMs := parseTimestamp(parts[1])

		var words []string
		for _, r := range rows[2:] {
			if t := strings.TrimSpace(r); t != "" {
				words = append(words, t)
			}
		}
		body := htmlTagRe.ReplaceAllString(strings.Join(words, " "), "")

		if body != "" {
			lines = append(lines, Line{Index: idx, StartMs: startMs, EndMs: endMs, Text: body})
		}
	}

	if len(lines) > 0 {
		return lines
	}
	return ParseLRC(text)
}

// ParseLRC parses "[mm:ss.xx]Lyric" style text. Lines may carry several
// timestamps; entries are sorted by time and each line ends where the next
// begins (the last line gets a 5 second window).
func ParseLRC(text string) []Line {
	type entry struct {
		startMs int
		text    string
	}
	var entries []entry

	for _, raw := range strings.Split(text, "\n") {
		row := strings.TrimSpace(raw)
		if row == "" {
			continue
		}
		stamps := lrcTimestampRe.FindAllStringSubmatch(row, -1)
		if stamps == nil {
			continue
		}
		body := strings.TrimSpace(lrcTimestampRe.ReplaceAllString(row, ""))
		for _, m := range stamps {
			minutes, _ := strconv.Atoi(m[1])
			seconds, _ := strconv.Atoi(m[2])
			frac := m[3]
			if frac == "" {
				frac = "0"
			}
			millis, _ := strconv.Atoi(padMillis(frac))
			entries = append(entries, entry{minutes*60000 + seconds*1000 + millis, body})
		}
	}

	if len(entries) == 0 {
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].startMs < entries[j].startMs })

	var lines []Line
	for i, e := range entries {
		endMs := e.startMs + 5000
		if i+1 < len(entries) {
			endMs = entries[i+1].startMs
		}
		if e.text != "" {
			lines = append(lines, Line{Index: i + 1, StartMs: e.startMs, EndMs: endMs, Text: e.text})
		}
	}
	return lines
}

// ParseFile reads and parses a subtitle file. UTF-8 is tried first (with a
// BOM stripped when present); bytes that are not valid UTF-8 are decoded as
// Latin-1.
func ParseFile(path string) ([]Line, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw = bomStripped(raw)
	if utf8.Valid(raw) {
		return ParseSRT(string(raw)), nil
	}
	return ParseSRT(latin1String(raw)), nil
}

func bomStripped(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func latin1String(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// LineAt returns the position (index into lines) and text of the lyric
// active at positionMs, with offsetMs added before lookup. The first line
// whose [StartMs, EndMs) window contains the adjusted position wins; when
// none does it returns (-1, "").
func LineAt(lines []Line, positionMs, offsetMs int) (int, string) {
	adjusted := positionMs + offsetMs
	for i, l := range lines {
		if l.StartMs <= adjusted && adjusted < l.EndMs {
			return i, l.Text
		}
	}
	return -1, ""
}

// GapUntilNext returns the milliseconds until the next lyric line starts
// after the adjusted position, or -1 when no line remains.
func GapUntilNext(lines []Line, positionMs, offsetMs int) int {
	adjusted := positionMs + offsetMs
	for _, l := range lines {
		if l.StartMs > adjusted {
			return l.StartMs - adjusted
		}
	}
	return -1
}
