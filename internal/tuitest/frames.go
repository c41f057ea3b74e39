package tuitest

import (
	"regexp"
	"strings"
)

// Frame is one screen render: the raw escape stream between two screen
// clears, and the same text with escapes removed.
type Frame struct {
	Index int
	ANSI  string
	Plain string
}

var (
	eraseDisplay = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiSequence  = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscSequence  = regexp.MustCompile(`\x1b\][^\x07]*(\x07|\x1b\\)`)
	shiftChars   = strings.NewReplacer("\x0e", "", "\x0f", "")
)

// parseFrames splits a captured stream on erase-display sequences. Output
// that never clears the screen becomes a single frame.
func parseFrames(raw []byte) []Frame {
	stream := strings.ReplaceAll(string(raw), "\r", "")
	var frames []Frame
	for _, chunk := range eraseDisplay.Split(stream, -1) {
		chunk = strings.TrimPrefix(strings.Trim(chunk, "\x00"), "\x1b[H")
		plain := trimLines(stripANSI(chunk))
		if plain == "" {
			continue
		}
		frames = append(frames, Frame{Index: len(frames), ANSI: chunk, Plain: plain})
	}
	if frames == nil && stream != "" {
		frames = []Frame{{ANSI: stream, Plain: trimLines(stripANSI(stream))}}
	}
	return frames
}

// FinalFrame returns the last captured frame, or false when nothing was
// rendered.
func (r *Recording) FinalFrame() (Frame, bool) {
	if r == nil || len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// Contains reports whether any frame rendered text.
func (r *Recording) Contains(text string) bool {
	_, ok := r.FrameContaining(text)
	return ok
}

// FrameContaining returns the latest frame that rendered text.
func (r *Recording) FrameContaining(text string) (Frame, bool) {
	if r == nil {
		return Frame{}, false
	}
	for i := len(r.Frames) - 1; i >= 0; i-- {
		if strings.Contains(r.Frames[i].Plain, text) {
			return r.Frames[i], true
		}
	}
	return Frame{}, false
}

func stripANSI(s string) string {
	return shiftChars.Replace(csiSequence.ReplaceAllString(oscSequence.ReplaceAllString(s, ""), ""))
}

// trimLines drops trailing spaces on every line and trailing blank lines.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
