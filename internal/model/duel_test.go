package model

import (
	"testing"
	"time"
)

func TestMatchModeDurations(t *testing.T) {
	tests := []struct {
		mode MatchMode
		want time.Duration
	}{
		{ModeSprint1Min, 60 * time.Second},
		{ModeBlitz2Min, 120 * time.Second},
		{ModeRapid8Min, 480 * time.Second},
		{ModeClassic12Min, 720 * time.Second},
		{MatchMode("BOGUS"), 60 * time.Second},
	}
	for _, tt := range tests {
		if got := tt.mode.Duration(); got != tt.want {
			t.Errorf("%s.Duration() = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestParseMatchMode(t *testing.T) {
	if got := ParseMatchMode("RAPID_8MIN"); got != ModeRapid8Min {
		t.Errorf("ParseMatchMode(RAPID_8MIN) = %s", got)
	}
	if got := ParseMatchMode("nonsense"); got != ModeSprint1Min {
		t.Errorf("unknown mode should fall back to sprint, got %s", got)
	}
}

func TestPlayerPublicOmitsConnID(t *testing.T) {
	p := Player{ConnID: "c1", UserID: "alice", DisplayName: "Alice", Rating: 1200}
	pub := p.Public()
	if pub.UserID != "alice" || pub.DisplayName != "Alice" || pub.Rating != 1200 {
		t.Errorf("public profile lost fields: %+v", pub)
	}
}
