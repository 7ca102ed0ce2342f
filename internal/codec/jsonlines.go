package codec

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSONLines emits one record per line and requires each non-blank line to be
// a valid JSON value. A malformed line fails the whole object; the pipeline
// isolates that failure to the object.
type JSONLines struct{}

func (JSONLines) Name() string { return "json_lines" }

func (JSONLines) Decode(r io.Reader, emit func([]byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return fmt.Errorf("line %d: invalid JSON", lineNo)
		}
		if err := emit(append([]byte(nil), line...)); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan lines: %w", err)
	}
	return nil
}
