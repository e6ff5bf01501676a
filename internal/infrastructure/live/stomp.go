// Package live maintains the push channel to the donation backend: a STOMP
// session over a single shared WebSocket connection, with automatic reconnect.
package live

import (
	"fmt"
	"strings"
)

// The subset of STOMP 1.2 this client speaks. Frames are a command line,
// header lines, a blank line, an optional body and a NUL terminator.
const (
	cmdConnect     = "CONNECT"
	cmdConnected   = "CONNECTED"
	cmdSubscribe   = "SUBSCRIBE"
	cmdUnsubscribe = "UNSUBSCRIBE"
	cmdDisconnect  = "DISCONNECT"
	cmdMessage     = "MESSAGE"
	cmdError       = "ERROR"
)

type frame struct {
	command string
	headers map[string]string
	body    string
}

func (f *frame) header(key string) string {
	return f.headers[key]
}

// marshalFrame renders a frame to the wire format.
func marshalFrame(f frame) []byte {
	var b strings.Builder
	b.WriteString(f.command)
	b.WriteByte('\n')
	for k, v := range f.headers {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(f.body)
	b.WriteByte(0)
	return []byte(b.String())
}

// parseFrame decodes one frame from a WebSocket message. Heartbeat messages
// (a bare newline) return a nil frame.
func parseFrame(raw []byte) (*frame, error) {
	text := strings.TrimRight(string(raw), "\x00")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	head, body, _ := strings.Cut(text, "\n\n")
	lines := strings.Split(head, "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("frame without command")
	}

	f := &frame{
		command: strings.TrimSpace(lines[0]),
		headers: make(map[string]string, len(lines)-1),
		body:    body,
	}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", line)
		}
		if _, exists := f.headers[key]; !exists {
			// STOMP keeps the first occurrence of a repeated header.
			f.headers[key] = value
		}
	}
	return f, nil
}
