package lyrics

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello world

2
00:00:04,000 --> 00:00:06,000
<i>Second line</i>
continued

3
00:00:07.25 --> 00:00:09.5
Dot separators
`

func TestParseSRT(t *testing.T) {
	lines := ParseSRT(sampleSRT)
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}

	if lines[0].StartMs != 1000 || lines[0].EndMs != 3500 {
		t.Errorf("Line 1 window = [%d,%d), want [1000,3500)", lines[0].StartMs, lines[0].EndMs)
	}
	if lines[0].Text != "Hello world" {
		t.Errorf("Line 1 text = %q", lines[0].Text)
	}

	// HTML tags stripped, multi-line text joined with spaces
	if lines[1].Text != "Second line continued" {
		t.Errorf("Line 2 text = %q", lines[1].Text)
	}

	// Short fractional digits are right-padded: .25 -> 250ms, .5 -> 500ms
	if lines[2].StartMs != 7250 || lines[2].EndMs != 9500 {
		t.Errorf("Line 3 window = [%d,%d), want [7250,9500)", lines[2].StartMs, lines[2].EndMs)
	}
}

func TestParseSRTCRLFAndEmpty(t *testing.T) {
	if got := ParseSRT(""); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}

	crlf := "1\r\n00:00:00,000 --> 00:00:01,000\r\nLine\r\n"
	lines := ParseSRT(crlf)
	if len(lines) != 1 || lines[0].Text != "Line" {
		t.Fatalf("CRLF input parsed as %v", lines)
	}
}

func TestParseSRTSkipsMalformedBlocks(t *testing.T) {
	text := `not a number
00:00:01,000 --> 00:00:02,000
Skipped

2
bad timestamp line
Also skipped

3
00:00:05,000 --> 00:00:06,000
Kept
`
	lines := ParseSRT(text)
	if len(lines) != 1 || lines[0].Text != "Kept" {
		t.Fatalf("Expected only the well-formed block, got %v", lines)
	}
}

func TestParseLRC(t *testing.T) {
	text := `[00:12.50]First line
[00:15]Second line
[00:20.1]Third line
`
	lines := ParseLRC(text)
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}

	if lines[0].StartMs != 12500 {
		t.Errorf("Line 1 start = %d, want 12500", lines[0].StartMs)
	}
	// End of each line is the start of the next
	if lines[0].EndMs != 15000 {
		t.Errorf("Line 1 end = %d, want 15000", lines[0].EndMs)
	}
	// [00:20.1] pads to 100ms
	if lines[2].StartMs != 20100 {
		t.Errorf("Line 3 start = %d, want 20100", lines[2].StartMs)
	}
	// Last line gets a 5s window
	if lines[2].EndMs != 25100 {
		t.Errorf("Line 3 end = %d, want 25100", lines[2].EndMs)
	}
}

func TestParseLRCRepeatedTimestamps(t *testing.T) {
	text := "[00:10.00][00:30.00]Chorus\n[00:20.00]Verse\n"
	lines := ParseLRC(text)
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	// Sorted by time: 10s chorus, 20s verse, 30s chorus
	if lines[0].Text != "Chorus" || lines[1].Text != "Verse" || lines[2].Text != "Chorus" {
		t.Errorf("Unexpected order: %v", lines)
	}
	if lines[0].EndMs != 20000 || lines[1].EndMs != 30000 {
		t.Errorf("End times not chained: %v", lines)
	}
}

func TestParseSRTFallsBackToLRC(t *testing.T) {
	lines := ParseSRT("[00:05.00]Only LRC here\n")
	if len(lines) != 1 || lines[0].StartMs != 5000 {
		t.Fatalf("Expected LRC fallback, got %v", lines)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.srt")

	// UTF-8 BOM followed by a normal SRT block
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleSRT)...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	lines, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(lines))
	}
}

func TestParseFileLatin1(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latin1.srt")

	// 0xE9 is 'é' in Latin-1 and invalid as standalone UTF-8
	content := []byte("1\n00:00:01,000 --> 00:00:02,000\ncaf\xe9\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	lines, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "café" {
		t.Fatalf("Latin-1 decode failed: %v", lines)
	}
}

func testLines() []Line {
	return []Line{
		{Index: 1, StartMs: 1000, EndMs: 3000, Text: "first"},
		{Index: 2, StartMs: 4000, EndMs: 6000, Text: "second"},
		{Index: 3, StartMs: 6000, EndMs: 8000, Text: "third"},
	}
}

func TestLineAt(t *testing.T) {
	lines := testLines()

	tests := []struct {
		position int
		offset   int
		wantIdx  int
		wantText string
	}{
		{0, 0, -1, ""},         // before first line
		{1000, 0, 0, "first"},  // inclusive start
		{2999, 0, 0, "first"},  // last ms of window
		{3000, 0, -1, ""},      // exclusive end, in gap
		{4500, 0, 1, "second"}, // middle line
		{6000, 0, 2, "third"},  // adjacent boundary belongs to the later line
		{8000, 0, -1, ""},      // past the end
		{500, 500, 0, "first"}, // offset shifts into the window
		{4500, -3000, 0, "first"},
	}

	for _, tt := range tests {
		idx, text := LineAt(lines, tt.position, tt.offset)
		if idx != tt.wantIdx || text != tt.wantText {
			t.Errorf("LineAt(%d, %d) = (%d, %q), want (%d, %q)",
				tt.position, tt.offset, idx, text, tt.wantIdx, tt.wantText)
		}
	}
}

func TestLineAtOffsetChangesResult(t *testing.T) {
	lines := testLines()

	idx1, _ := LineAt(lines, 3500, 0)
	idx2, _ := LineAt(lines, 3500, 600)
	if idx1 == idx2 {
		t.Error("Changing offset at the same raw position should change the result")
	}
}

func TestLineAtFirstMatchWins(t *testing.T) {
	overlapping := []Line{
		{Index: 1, StartMs: 0, EndMs: 5000, Text: "a"},
		{Index: 2, StartMs: 1000, EndMs: 3000, Text: "b"},
	}
	if idx, text := LineAt(overlapping, 2000, 0); idx != 0 || text != "a" {
		t.Errorf("Overlap resolution: got (%d, %q), want (0, %q)", idx, text, "a")
	}
}

func TestGapUntilNext(t *testing.T) {
	lines := testLines()

	if gap := GapUntilNext(lines, 3000, 0); gap != 1000 {
		t.Errorf("Gap at 3000 = %d, want 1000", gap)
	}
	if gap := GapUntilNext(lines, 0, 0); gap != 1000 {
		t.Errorf("Gap at 0 = %d, want 1000", gap)
	}
	if gap := GapUntilNext(lines, 9000, 0); gap != -1 {
		t.Errorf("Gap past last line = %d, want -1", gap)
	}
	if gap := GapUntilNext(nil, 0, 0); gap != -1 {
		t.Errorf("Gap with no lines = %d, want -1", gap)
	}
}
