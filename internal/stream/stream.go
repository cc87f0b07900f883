// Package stream parses the chat server's line-delimited event stream.
//
// Each event is a line prefixed with "data:" carrying a JSON object with a
// content field. A content value of DoneSentinel marks normal completion and
// is treated exactly like the server closing the connection. Payloads that
// are not valid JSON are passed through as literal text instead of failing
// the stream.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DoneSentinel is the content value the server sends as its last event.
const DoneSentinel = "|DONE|"

const (
	dataPrefix  = "data:"
	errorPrefix = "error:"
)

// Event is one decoded unit of the stream.
type Event struct {
	Content string
	// Done is set for the completion sentinel. No content accompanies it.
	Done bool
	// Literal is set when the payload was not valid JSON and Content holds
	// the raw payload text.
	Literal bool
}

// ServerError is reported when the server sends an error event mid-stream.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}

type payload struct {
	Content *string `json:"content"`
	Error   string  `json:"error"`
	Message string  `json:"message"`
}

// Parser reads events from a response body in arrival order.
type Parser struct {
	reader *bufio.Reader
	done   bool
}

// NewParser creates a Parser over r.
func NewParser(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r)}
}

// Next returns the next event. It returns io.EOF once the stream is
// exhausted or after the completion sentinel has been returned.
func (p *Parser) Next() (Event, error) {
	if p.done {
		return Event{}, io.EOF
	}

	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Event{}, err
		}
		atEOF := errors.Is(err, io.EOF)

		line = strings.TrimRight(line, "\r\n")
		if ev, ok, perr := p.parseLine(line); perr != nil {
			p.done = true
			return Event{}, perr
		} else if ok {
			if ev.Done {
				p.done = true
			}
			return ev, nil
		}

		if atEOF {
			p.done = true
			return Event{}, io.EOF
		}
	}
}

// parseLine decodes a single line. ok is false for lines that carry no event.
func (p *Parser) parseLine(line string) (Event, bool, error) {
	if strings.TrimSpace(line) == "" {
		return Event{}, false, nil
	}

	switch {
	case strings.HasPrefix(line, dataPrefix):
		data := strings.TrimSpace(line[len(dataPrefix):])
		var pl payload
		if err := json.Unmarshal([]byte(data), &pl); err != nil {
			return Event{Content: data, Literal: true}, true, nil
		}
		if pl.Error != "" {
			return Event{}, false, &ServerError{Message: pl.Error}
		}
		if pl.Content == nil {
			return Event{Content: data, Literal: true}, true, nil
		}
		if *pl.Content == DoneSentinel {
			return Event{Done: true}, true, nil
		}
		return Event{Content: *pl.Content}, true, nil

	case strings.HasPrefix(line, errorPrefix):
		data := strings.TrimSpace(line[len(errorPrefix):])
		var pl payload
		if err := json.Unmarshal([]byte(data), &pl); err == nil && pl.Message != "" {
			return Event{}, false, &ServerError{Message: pl.Message}
		}
		if data == "" {
			data = "unknown error occurred"
		}
		return Event{}, false, &ServerError{Message: data}
	}

	// id:, event:, retry: and comment lines are not used by the chat server.
	return Event{}, false, nil
}

// Consume reads every event from r, calling fn with the accumulated content
// after each chunk. It returns the full content once the sentinel or EOF is
// reached. Errors from the reader or from server error events are returned
// together with the content received so far.
func Consume(r io.Reader, fn func(accumulated string, ev Event)) (string, error) {
	var acc strings.Builder
	p := NewParser(r)
	for {
		ev, err := p.Next()
		if errors.Is(err, io.EOF) {
			return acc.String(), nil
		}
		if err != nil {
			return acc.String(), err
		}
		if ev.Done {
			return acc.String(), nil
		}
		acc.WriteString(ev.Content)
		if fn != nil {
			fn(acc.String(), ev)
		}
	}
}
