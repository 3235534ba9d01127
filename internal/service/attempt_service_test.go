package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nebc/quizhub-backend/internal/grading"
	"github.com/nebc/quizhub-backend/internal/model"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return parsed
}

func TestAccessWindow(t *testing.T) {
	open := ts(t, "2026-03-01T09:00:00Z")
	closeAt := ts(t, "2026-03-01T11:00:00Z")

	tests := []struct {
		name    string
		openAt  *time.Time
		closeAt *time.Time
		now     time.Time
		wantErr error
	}{
		{"before open", &open, &closeAt, ts(t, "2026-03-01T08:59:59Z"), ErrExamNotOpen},
		{"at open", &open, &closeAt, open, nil},
		{"inside window", &open, &closeAt, ts(t, "2026-03-01T10:00:00Z"), nil},
		{"at close", &open, &closeAt, closeAt, nil},
		{"after close", &open, &closeAt, ts(t, "2026-03-01T11:00:01Z"), ErrExamClosed},
		{"no open bound", nil, &closeAt, ts(t, "2026-02-01T00:00:00Z"), nil},
		{"no close bound", &open, nil, ts(t, "2027-01-01T00:00:00Z"), nil},
		{"no bounds", nil, nil, ts(t, "2026-03-01T10:00:00Z"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := accessWindow(tt.openAt, tt.closeAt, tt.now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("accessWindow() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestComputeDeadline(t *testing.T) {
	started := ts(t, "2026-03-01T10:00:00Z")
	closeEarly := ts(t, "2026-03-01T10:30:00Z")
	closeLate := ts(t, "2026-03-01T12:00:00Z")

	hour := 60
	zero := 0

	tests := []struct {
		name    string
		closeAt *time.Time
		limit   *int
		want    *time.Time
	}{
		{"no bounds", nil, nil, nil},
		{"limit only", nil, &hour, timePtr(started.Add(time.Hour))},
		{"close only", &closeLate, nil, &closeLate},
		{"close wins over limit", &closeEarly, &hour, &closeEarly},
		{"limit wins over close", &closeLate, &hour, timePtr(started.Add(time.Hour))},
		{"zero limit expires at start", nil, &zero, &started},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeDeadline(tt.closeAt, tt.limit, started)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("computeDeadline() = %v, want %v", got, tt.want)
			case !got.Equal(*tt.want):
				t.Errorf("computeDeadline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestPastDeadline(t *testing.T) {
	deadline := ts(t, "2026-03-01T11:00:00Z")
	grace := 30 * time.Second

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before", ts(t, "2026-03-01T10:00:00Z"), false},
		{"at deadline", deadline, false},
		{"inside grace", ts(t, "2026-03-01T11:00:29Z"), false},
		{"at grace edge", ts(t, "2026-03-01T11:00:30Z"), false},
		{"past grace", ts(t, "2026-03-01T11:00:31Z"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pastDeadline(&deadline, grace, tt.now); got != tt.want {
				t.Errorf("pastDeadline() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nil deadline never passes", func(t *testing.T) {
		if pastDeadline(nil, grace, ts(t, "2030-01-01T00:00:00Z")) {
			t.Error("pastDeadline() = true for nil deadline")
		}
	})
}

func TestCountUnanswered(t *testing.T) {
	single := &model.Question{
		ID:      uuid.New(),
		Type:    model.QuestionTypeSingle,
		Options: []string{"a", "b", "c"},
		Answer:  json.RawMessage(`1`),
	}
	ordering := &model.Question{
		ID:           uuid.New(),
		Type:         model.QuestionTypeOrdering,
		OrderOptions: []string{"x", "y", "z"},
		Answer:       json.RawMessage(`[0,1,2]`),
	}
	entries := []grading.Entry{
		{Question: single, Score: 10},
		{Question: ordering, Score: 5},
	}

	tests := []struct {
		name       string
		answers    map[string]json.RawMessage
		interacted []string
		want       int
	}{
		{"nothing answered", nil, nil, 2},
		{
			"single answered, ordering untouched",
			map[string]json.RawMessage{single.ID.String(): json.RawMessage(`0`)},
			nil,
			1,
		},
		{
			"ordering arrangement saved but never dragged",
			map[string]json.RawMessage{
				single.ID.String():   json.RawMessage(`0`),
				ordering.ID.String(): json.RawMessage(`[2,1,0]`),
			},
			nil,
			1,
		},
		{
			"ordering dragged",
			map[string]json.RawMessage{
				single.ID.String():   json.RawMessage(`0`),
				ordering.ID.String(): json.RawMessage(`[2,1,0]`),
			},
			[]string{ordering.ID.String()},
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countUnanswered(entries, tt.answers, tt.interacted); got != tt.want {
				t.Errorf("countUnanswered() = %d, want %d", got, tt.want)
			}
		})
	}
}
