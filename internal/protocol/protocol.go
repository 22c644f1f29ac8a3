// Package protocol implements the controller's line-delimited JSON stdio
// dialect: parse-as-many-values-as-possible from stdin (carrying any
// trailing partial value over to the next read), and encode the handful of
// shapes the controller writes to stdout.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// RunScriptCommand is the one recognized incoming shape:
// {"run script": {"script": "...", "file": "..."}}.
type RunScriptCommand struct {
	Script string
	File   string
}

type runScriptEnvelope struct {
	RunScript *runScriptBody `json:"run script"`
}

type runScriptBody struct {
	Script string `json:"script"`
	File   string `json:"file"`
}

// ParseIncoming decodes as many complete JSON values as are present at the
// front of data, reporting each recognized "run script" command, and the
// number of bytes consumed — callers should keep data[consumed:] for the
// next read, mirroring the original's parserStopPos contract. Any value
// that parses as JSON but isn't a recognized shape is reported via
// onParseError and otherwise ignored; a trailing incomplete value is left
// unconsumed rather than treated as an error.
func ParseIncoming(data []byte, onRunScript func(RunScriptCommand), onParseError func(string)) (consumed int) {
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		offsetBefore := dec.InputOffset()
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return int(offsetBefore)
		}
		consumed = int(dec.InputOffset())

		var env runScriptEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			onParseError(fmt.Sprintf("malformed JSON value: %v", err))
			continue
		}
		if env.RunScript == nil {
			onParseError(fmt.Sprintf("unrecognized command: %s", raw))
			continue
		}
		onRunScript(RunScriptCommand{Script: env.RunScript.Script, File: env.RunScript.File})
	}
}

// EncodeEvent wraps a recorded script fragment for the {"event":{"script":...}} shape.
func EncodeEvent(script string) string { return mustLine(map[string]any{"event": map[string]string{"script": script}}) }

// EncodeAppOutput wraps target stdout text.
func EncodeAppOutput(text string) string { return mustLine(map[string]string{"app output": text}) }

// EncodeAppErrors wraps target stderr text or an agent-side error message.
func EncodeAppErrors(text string) string { return mustLine(map[string]string{"app errors": text}) }

// EncodeScriptLog wraps one agent log line.
func EncodeScriptLog(text string) string { return mustLine(map[string]string{"script logs": text}) }

// EncodeScriptEnd is the literal JSON string "script end".
func EncodeScriptEnd() string { return mustLine("script end") }

// LineRelay is an io.Writer that splits a child process's raw byte stream
// into lines and hands each one, encoded via encode (EncodeAppOutput or
// EncodeAppErrors), to onLine — so a target application's stdout/stderr
// reach the controller's JSON-lines stdio stream instead of interleaving
// raw bytes into it.
type LineRelay struct {
	encode func(string) string
	onLine func(encoded, raw string)

	mu  sync.Mutex
	buf []byte
}

// NewLineRelay builds a LineRelay. onLine is called once per complete line
// (trailing bytes with no newline yet are held for the next Write).
func NewLineRelay(encode func(string) string, onLine func(encoded, raw string)) *LineRelay {
	return &LineRelay{encode: encode, onLine: onLine}
}

func (w *LineRelay) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(string(w.buf[:i]), "\r")
		w.buf = w.buf[i+1:]
		w.onLine(w.encode(line), line)
	}
	return len(p), nil
}

func mustLine(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Every value passed to mustLine is a plain map/string built from
		// already-valid UTF-8 Go strings; Marshal cannot fail on it.
		panic(fmt.Sprintf("protocol: unexpected marshal failure: %v", err))
	}
	return string(b)
}
