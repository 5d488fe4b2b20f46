package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInit_JSONFormat(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var buf bytes.Buffer
	initTo(&buf, false, FormatJSON)
	log.Debug().Msg("hidden")
	log.Info().Str("goal_id", "g1").Msg("goal created")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["goal_id"] != "g1" || entry["message"] != "goal created" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if DebugEnabled() {
		t.Fatal("DebugEnabled() = true, want false")
	}
}

func TestInit_DebugLevel(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var buf bytes.Buffer
	initTo(&buf, true, "console")
	log.Debug().Msg("visible")

	if !DebugEnabled() {
		t.Fatal("DebugEnabled() = false, want true")
	}
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Fatalf("debug message missing from %q", buf.String())
	}
}
