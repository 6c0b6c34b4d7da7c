package prompts

import (
	"errors"
	"strings"
	"testing"

	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/session"
)

func TestBuilder_Build(t *testing.T) {
	payload, err := New().
		WithSetting("the Dorm lounge at 2am").
		WithCharacters([]string{"YUKARI", "JUNPEI"}).
		WithContext([]string{"YUKARI: Not again.", "JUNPEI: Dude."}).
		WithTags([]string{"#tsundere_queen", "#da_man"}).
		WithCharacterTags("YUKARI", []string{"#tsundere_queen"}).
		WithCharacterTags("JUNPEI", []string{"#da_man"}).
		WithVibes([]string{"#dark_hour_shenanigans"}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if payload.System != SystemPrompt {
		t.Error("System message should be the static template")
	}
	if !strings.Contains(payload.User, "the Dorm lounge at 2am") {
		t.Error("User message should include the setting verbatim")
	}
	if !strings.Contains(payload.User, "YUKARI: Not again.") {
		t.Error("User message should include joined context lines")
	}
	if !strings.Contains(payload.User, "#tsundere_queen") {
		t.Error("User message should include tag hints")
	}
	if !strings.Contains(payload.User, "#dark_hour_shenanigans") {
		t.Error("User message should include vibes")
	}
	if !strings.Contains(payload.User, "Example Scene Structure:") {
		t.Error("Examples should be included when UseExamples is set")
	}
}

func TestBuilder_BuildErrors(t *testing.T) {
	tests := []struct {
		name       string
		setting    string
		characters []string
	}{
		{"empty characters", "Dorm", nil},
		{"blank setting", "   ", []string{"YUKARI"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().
				WithSetting(tt.setting).
				WithCharacters(tt.characters).
				Build()
			if err == nil {
				t.Fatal("Expected BuildError")
			}
			var buildErr *BuildError
			if !errors.As(err, &buildErr) {
				t.Errorf("Expected *BuildError, got %T: %v", err, err)
			}
		})
	}
}

func TestBuilder_ExamplesDisabled(t *testing.T) {
	cfg := session.DefaultConfig()
	cfg.UseExamples = false

	payload, err := BuildScenePrompt("Tartarus", []string{"AIGIS"}, nil, nil, cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Contains(payload.User, "Example Scene Structure:") {
		t.Error("Examples should be omitted when UseExamples is false")
	}
	if !strings.Contains(payload.User, "(No direct context found)") {
		t.Error("Missing context should render the placeholder")
	}
}

func TestBuilder_Deterministic(t *testing.T) {
	build := func() Payload {
		p, err := BuildScenePrompt("Mall", []string{"JUNPEI"}, []string{"a line"}, []string{"#da_man"}, session.DefaultConfig())
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		return p
	}

	first := build()
	for i := 0; i < 5; i++ {
		if got := build(); got != first {
			t.Fatal("Identical inputs should produce identical payloads")
		}
	}
}

func TestPayload_Messages(t *testing.T) {
	p := Payload{System: "sys", User: "usr"}
	msgs := p.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != chat.ChatRoleSystem || msgs[0].Content != "sys" {
		t.Errorf("Unexpected system message: %+v", msgs[0])
	}
	if msgs[1].Role != chat.ChatRoleUser || msgs[1].Content != "usr" {
		t.Errorf("Unexpected user message: %+v", msgs[1])
	}
}

func TestRefinementMessages(t *testing.T) {
	msgs := RefinementMessages("YUKARI in the Dorm", "YUKARI: Previous scene.", "more archery jokes")
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "YUKARI: Previous scene.") {
		t.Error("System message should embed the previous scene")
	}
	if !strings.Contains(msgs[0].Content, "more archery jokes") {
		t.Error("System message should embed the refinement notes")
	}
	if msgs[1].Content != "YUKARI in the Dorm" {
		t.Error("User message should be the original input")
	}
}

func TestCleanScene(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "cuts at end marker",
			input:    "YUKARI: Done!\nEND SCENE\ngarbage after",
			expected: "YUKARI: Done!",
		},
		{
			name:     "trims to last sentence",
			input:    "JUNPEI: First line. And then he trailed off mid",
			expected: "JUNPEI: First line.",
		},
		{
			name:     "drops dangling lines without punctuation",
			input:    "no punctuation here\nnone here either",
			expected: "",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "keeps complete text",
			input:    "MITSURU: Execution time!",
			expected: "MITSURU: Execution time!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanScene(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
