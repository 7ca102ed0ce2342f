package codec

import (
	"bufio"
	"fmt"
	"io"
)

// Plain emits one record per line. A missing trailing newline still yields
// the final line; blank lines are skipped.
type Plain struct{}

func (Plain) Name() string { return "plain" }

func (Plain) Decode(r io.Reader, emit func([]byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
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
