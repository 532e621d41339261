package client

import (
	"bufio"
	"io"
	"strings"
)

const maxEventSize = 1 << 20

type sseEvent struct {
	Name string
	Data string
}

// sseReader text/event-stream decoder, comments and retry/id fields are skipped
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventSize)
	return &sseReader{scanner: scanner}
}

// Next the next dispatched event, io.EOF once the stream ends
func (r *sseReader) Next() (*sseEvent, error) {
	var (
		name    string
		data    []string
		hasData bool
	)
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if !hasData && name == "" {
				continue
			}
			if name == "" {
				name = "message"
			}
			return &sseEvent{Name: name, Data: strings.Join(data, "\n")}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value := line, ""
		if i := strings.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], strings.TrimPrefix(line[i+1:], " ")
		}
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
