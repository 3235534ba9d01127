package repository

import (
	"strings"
	"testing"

	"github.com/nebc/quizhub-backend/internal/model"
)

func TestStandingsOrder(t *testing.T) {
	tests := []struct {
		name      string
		sort      model.LeaderboardSort
		wantFirst string
	}{
		{"score primary", model.SortByScore, examScoreExpr},
		{"correct rate primary", model.SortByCorrectRate, "CASE WHEN a.total_questions"},
		{"unknown falls back to score", model.ParseLeaderboardSort("elo"), examScoreExpr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause := standingsOrder(tt.sort, examScoreExpr, examRateExpr, "a.elapsed_seconds")
			body := strings.TrimPrefix(clause, " ORDER BY ")
			if !strings.HasPrefix(body, tt.wantFirst) {
				t.Errorf("primary key = %q, want prefix %q", body, tt.wantFirst)
			}
			if !strings.HasSuffix(clause, "a.elapsed_seconds ASC") {
				t.Errorf("missing elapsed tie-break: %q", clause)
			}
		})
	}
}

func TestStandingsOrderKeepsBothKeys(t *testing.T) {
	clause := standingsOrder(model.SortByCorrectRate, globalScoreExpr, globalRateExpr, "SUM(a.elapsed_seconds)")
	if !strings.Contains(clause, globalScoreExpr+" DESC") {
		t.Errorf("score missing as secondary key: %q", clause)
	}
	if strings.Index(clause, "SUM(a.correct_count)") > strings.Index(clause, globalScoreExpr+" DESC") {
		t.Errorf("correct rate should rank before score: %q", clause)
	}
}
