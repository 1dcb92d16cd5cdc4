package main

import (
	"testing"
	"time"

	"github.com/ayusman/studybuddy/internal/hook"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name   string
		req    hook.Request
		want   string
		wantOK bool
	}{
		{name: "reward", req: hook.Request{Event: hook.EventReward, Points: 10, TotalPoints: 40}, want: "Nice! +10 points (total 40)", wantOK: true},
		{name: "new best", req: hook.Request{Event: hook.EventNewBest, StreakSeconds: 3725}, want: "New best streak: 01:02:05", wantOK: true},
		{name: "timeout", req: hook.Request{Event: hook.EventSessionEnded, Reason: "timeout", StreakSeconds: 61}, want: "You left, streak ended at 00:01:01", wantOK: true},
		{name: "stopped", req: hook.Request{Event: hook.EventSessionEnded, Reason: "stopped", StreakSeconds: 5}, want: "Session stopped at 00:00:05", wantOK: true},
		{name: "focus is silent", req: hook.Request{Event: hook.EventFocus}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := message(tt.req)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("message() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSecondsToDuration(t *testing.T) {
	if got := secondsToDuration(90); got != 90*time.Second {
		t.Errorf("secondsToDuration(90) = %v", got)
	}
	if got := secondsToDuration(-1); got != 0 {
		t.Errorf("secondsToDuration(-1) = %v, want 0", got)
	}
}
