package codec

import (
	"errors"
	"strings"
	"testing"
)

func collect(t *testing.T, c Codec, input string) []string {
	t.Helper()
	var out []string
	err := c.Decode(strings.NewReader(input), func(p []byte) error {
		out = append(out, string(p))
		return nil
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestPlainDecodesLines(t *testing.T) {
	got := collect(t, Plain{}, "one\ntwo\n\nthree")
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestPlainEmptyInput(t *testing.T) {
	if got := collect(t, Plain{}, ""); len(got) != 0 {
		t.Fatalf("expected no records for empty input, got %v", got)
	}
}

func TestPlainEmitErrorAborts(t *testing.T) {
	sentinel := errors.New("sink down")
	calls := 0
	err := Plain{}.Decode(strings.NewReader("a\nb\n"), func([]byte) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected emit error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected decode to stop after failing emit, got %d calls", calls)
	}
}

func TestJSONLinesDecodes(t *testing.T) {
	got := collect(t, JSONLines{}, "{\"a\":1}\n  {\"b\":2}\n")
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[1] != "{\"b\":2}" {
		t.Fatalf("expected trimmed JSON line, got %q", got[1])
	}
}

func TestJSONLinesRejectsMalformedLine(t *testing.T) {
	err := JSONLines{}.Decode(strings.NewReader("{\"a\":1}\nnot json\n"), func([]byte) error {
		return nil
	})
	if err == nil {
		t.Fatalf("expected error for malformed JSON line")
	}
}

func TestByName(t *testing.T) {
	for name, want := range map[string]string{"": "plain", "plain": "plain", "json_lines": "json_lines"} {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if c.Name() != want {
			t.Fatalf("ByName(%q) = %s, want %s", name, c.Name(), want)
		}
	}
	if _, err := ByName("avro"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}
