// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults accepted", cfg: Config{}},
		{name: "explicit level and format", cfg: Config{Level: "debug", Format: "console"}},
		{name: "level is case-insensitive", cfg: Config{Level: "WARN"}},
		{name: "unknown level rejected", cfg: Config{Level: "verbose"}, wantErr: true},
		{name: "unknown format rejected", cfg: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Init(tt.cfg)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	// Restore defaults for other tests in the package.
	_ = Init(DefaultConfig())
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "info", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = Init(DefaultConfig()) }()

	Info().Str("collection", "Trending").Msg("processing list")

	out := buf.String()
	if !strings.Contains(out, `"collection":"Trending"`) {
		t.Errorf("expected structured field, got %q", out)
	}
	if !strings.Contains(out, `"message":"processing list"`) {
		t.Errorf("expected message, got %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "warn", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = Init(DefaultConfig()) }()

	Debug().Msg("hidden")
	Info().Msg("also hidden")
	Warn().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("levels below warn should be filtered, got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn should be emitted, got %q", out)
	}
}

func TestWithAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "info", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = Init(DefaultConfig()) }()

	sub := With().Str("cycle", "abc123").Logger()
	sub.Info().Msg("first")
	sub.Info().Msg("second")

	out := buf.String()
	if strings.Count(out, `"cycle":"abc123"`) != 2 {
		t.Errorf("expected cycle field on every event, got %q", out)
	}
}
