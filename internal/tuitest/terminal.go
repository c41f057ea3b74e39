package tuitest

import (
	"bytes"
	"io"
)

// queryReply pairs a terminal capability query with the answer a plain
// dark xterm would send back.
type queryReply struct {
	query []byte
	reply []byte
}

// Bubble Tea and termenv block on these at startup when stdout is a TTY.
var queryReplies = []queryReply{
	{[]byte("\x1b[6n"), []byte("\x1b[1;1R")},                                // cursor position
	{[]byte("\x1b[c"), []byte("\x1b[?1;2c")},                                // primary device attributes
	{[]byte("\x1b]10;?\x07"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},     // foreground, BEL
	{[]byte("\x1b]10;?\x1b\\"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")}, // foreground, ST
	{[]byte("\x1b]11;?\x07"), []byte("\x1b]11;rgb:0000/0000/0000\x07")},     // background, BEL
	{[]byte("\x1b]11;?\x1b\\"), []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")}, // background, ST
}

const (
	pendingLimit = 256
	pendingKeep  = 64
)

// terminalResponder answers capability queries found in the program's
// output. Queries may be split across reads, so a short tail of unmatched
// output is kept between calls.
type terminalResponder struct {
	w       io.Writer
	pending []byte
}

func newTerminalResponder(w io.Writer) *terminalResponder {
	return &terminalResponder{w: w, pending: make([]byte, 0, pendingLimit)}
}

func (tr *terminalResponder) Process(chunk []byte) {
	tr.pending = append(tr.pending, chunk...)
	for tr.answerNext() {
	}
	if len(tr.pending) > pendingLimit {
		tr.pending = append(tr.pending[:0], tr.pending[len(tr.pending)-pendingKeep:]...)
	}
}

// answerNext replies to the earliest pending query and drops everything up
// to its end. It reports false when no known query is pending.
func (tr *terminalResponder) answerNext() bool {
	first, end := -1, 0
	var reply []byte
	for _, qr := range queryReplies {
		idx := bytes.Index(tr.pending, qr.query)
		if idx >= 0 && (first < 0 || idx < first) {
			first, end, reply = idx, idx+len(qr.query), qr.reply
		}
	}
	if first < 0 {
		return false
	}
	tr.pending = tr.pending[end:]
	_, _ = tr.w.Write(reply)
	return true
}
