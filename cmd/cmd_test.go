package cmd

import (
	"testing"
	"time"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"ask":      false,
		"chat":     false,
		"index":    false,
		"sessions": false,
		"version":  false,
	}

	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestSessionsSubcommands(t *testing.T) {
	want := map[string]bool{"list": false, "show": false, "delete": false}

	for _, c := range sessionsCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("sessions subcommand %q not registered", name)
		}
	}
}

func TestIndexRebuildFlag(t *testing.T) {
	if indexCmd.Flags().Lookup("rebuild") == nil {
		t.Error("index command missing --rebuild flag")
	}
}

func TestHandleChatCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantExit bool
	}{
		{"/exit", true},
		{"/quit", true},
		{"/EXIT", true},
		{"/help", false},
		{"/unknown", false},
	}

	for _, tt := range tests {
		if got := handleChatCommand(tt.input); got != tt.wantExit {
			t.Errorf("handleChatCommand(%q) = %v, want %v", tt.input, got, tt.wantExit)
		}
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"seconds ago", now.Add(-30 * time.Second), "just now"},
		{"minutes ago", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"hours ago", now.Add(-3 * time.Hour), "3 hours ago"},
		{"days ago", now.Add(-48 * time.Hour), "2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTime(tt.t); got != tt.want {
				t.Errorf("formatTime() = %q, want %q", got, tt.want)
			}
		})
	}

	old := now.Add(-30 * 24 * time.Hour)
	if got := formatTime(old); got != old.Format("2006-01-02 15:04") {
		t.Errorf("formatTime(old) = %q, want absolute format", got)
	}
}
