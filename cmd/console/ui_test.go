package main

import (
	"testing"
)

func TestParseScenarioInput(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantChars   []string
		wantSetting string
		wantErr     bool
	}{
		{
			name:        "two characters",
			input:       "YUKARI, JUNPEI in the dorm lounge",
			wantChars:   []string{"YUKARI", "JUNPEI"},
			wantSetting: "the dorm lounge",
		},
		{
			name:        "single character",
			input:       "AIGIS in the arcade",
			wantChars:   []string{"AIGIS"},
			wantSetting: "the arcade",
		},
		{
			name:        "last in wins",
			input:       "KEN in the kitchen in the morning",
			wantChars:   []string{"KEN in the kitchen"},
			wantSetting: "the morning",
		},
		{
			name:    "missing separator",
			input:   "YUKARI JUNPEI dorm",
			wantErr: true,
		},
		{
			name:    "empty setting",
			input:   "YUKARI in   ",
			wantErr: true,
		},
		{
			name:    "no characters",
			input:   " , in the dorm",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chars, setting, err := parseScenarioInput(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if setting != tc.wantSetting {
				t.Errorf("Expected setting %q, got %q", tc.wantSetting, setting)
			}
			if len(chars) != len(tc.wantChars) {
				t.Fatalf("Expected characters %v, got %v", tc.wantChars, chars)
			}
			for i := range chars {
				if chars[i] != tc.wantChars[i] {
					t.Errorf("Expected character %q, got %q", tc.wantChars[i], chars[i])
				}
			}
		})
	}
}
