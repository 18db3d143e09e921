package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

// TestNew_JSONFields tests that scoped loggers add their fields
func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Output: &buf})

	log.WithComponent("search").WithSession("abc").WithQuery("wat").Info().Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}

	want := map[string]string{
		"component": "search",
		"session":   "abc",
		"query":     "wat",
		"message":   "hello",
		"level":     "info",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("field %s: expected %q, got %v", k, v, entry[k])
		}
	}
}

// TestNew_InvalidLevel tests fallback to info
func TestNew_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "chatty", Output: &buf})

	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered at info level, got %q", buf.String())
	}

	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Error("expected info message to be written")
	}
}

// TestNop tests the discarding logger
func TestNop(t *testing.T) {
	log := Nop()
	log.WithComponent("x").Error().Msg("nothing")
}
