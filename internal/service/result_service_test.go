package service

import (
	"testing"
	"time"
)

func TestAnswersReleased(t *testing.T) {
	release := ts(t, "2026-03-02T08:00:00Z")

	tests := []struct {
		name      string
		releaseAt *time.Time
		now       time.Time
		want      bool
	}{
		{"no release time", nil, ts(t, "2026-03-01T00:00:00Z"), true},
		{"before release", &release, ts(t, "2026-03-02T07:59:59Z"), false},
		{"at release", &release, release, true},
		{"after release", &release, ts(t, "2026-03-02T09:00:00Z"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := answersReleased(tt.releaseAt, tt.now); got != tt.want {
				t.Errorf("answersReleased() = %v, want %v", got, tt.want)
			}
		})
	}
}
