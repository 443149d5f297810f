package link

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire protocol, newline-delimited UTF-8:
//
//	PC -> device:  PING | CLR | TXT|<text> | FONT|<1.0-3.0>
//	               MODE|LYR | MODE|EQ | EQ|<v0,...,v11>
//	               STA|PLAY | STA|PAUSE | STA|STOP
//	               META|<artist – title>
//	device -> PC:  PONG | BTN|PRESS | BTN|LONG

const (
	cmdPing  = "PING"
	cmdClear = "CLR"

	msgPong        = "PONG"
	msgButtonPress = "BTN|PRESS"
	msgButtonLong  = "BTN|LONG"
)

// sanitize replaces newlines with spaces and strips carriage returns so a
// payload can never break the line framing.
func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.ReplaceAll(text, "\r", "")
}

func encodeText(text string) string {
	return "TXT|" + sanitize(text)
}

func encodeMeta(text string) string {
	return "META|" + sanitize(text)
}

// encodeFontSize clamps size to the device's 1.0-3.0 range.
func encodeFontSize(size float64) string {
	if size < 1.0 {
		size = 1.0
	}
	if size > 3.0 {
		size = 3.0
	}
	return fmt.Sprintf("FONT|%.1f", size)
}

// encodeState maps a play state to its wire token; anything unrecognized
// is sent as STOP.
func encodeState(state string) string {
	switch state {
	case "playing":
		return "STA|PLAY"
	case "paused":
		return "STA|PAUSE"
	default:
		return "STA|STOP"
	}
}

func encodeMode(mode string) string {
	if mode == "equalizer" {
		return "MODE|EQ"
	}
	return "MODE|LYR"
}

// EncodeEqualizer builds an EQ command from 12 band levels, clamping each
// to [0,12].
func EncodeEqualizer(levels []int) string {
	parts := make([]string, len(levels))
	for i, v := range levels {
		if v < 0 {
			v = 0
		}
		if v > 12 {
			v = 12
		}
		parts[i] = strconv.Itoa(v)
	}
	return "EQ|" + strings.Join(parts, ",")
}

// DecodeEqualizer parses an EQ command line back into band levels, the way
// the device firmware does. Returns nil when the line is not an EQ command
// or carries a non-numeric level.
func DecodeEqualizer(line string) []int {
	payload, ok := strings.CutPrefix(line, "EQ|")
	if !ok {
		return nil
	}
	parts := strings.Split(payload, ",")
	levels := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		levels[i] = v
	}
	return levels
}
