package apiclient

import (
	"bufio"
	"io"
	"strings"
)

// sseScanner extracts data payloads from a text/event-stream body.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseScanner{scanner: s}
}

// next returns the next "data:" payload, skipping comments and heartbeats.
func (s *sseScanner) next() ([]byte, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data != "" {
				return []byte(data), nil
			}
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
