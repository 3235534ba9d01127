package model

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardSort selects the primary ranking key. The other key is applied
// second, with elapsed time ascending as the final tie-break either way.
type LeaderboardSort string

const (
	SortByScore       LeaderboardSort = "score"
	SortByCorrectRate LeaderboardSort = "correct_rate"
)

// ParseLeaderboardSort maps a query value onto a sort. Unknown values fall
// back to score-first.
func ParseLeaderboardSort(s string) LeaderboardSort {
	if LeaderboardSort(s) == SortByCorrectRate {
		return SortByCorrectRate
	}
	return SortByScore
}

// ExamStanding is one row of a per-exam leaderboard.
type ExamStanding struct {
	UserID         uuid.UUID  `json:"user_id"`
	Name           string     `json:"name"`
	Nickname       string     `json:"nickname"`
	TotalScore     int        `json:"total_score"`
	CorrectCount   int        `json:"correct_count"`
	TotalQuestions int        `json:"total_questions"`
	CorrectRate    float64    `json:"correct_rate"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	SubmittedAt    *time.Time `json:"submitted_at"`
}

// GlobalStanding is one row of the all-time leaderboard, aggregated over
// every submitted attempt of a user.
type GlobalStanding struct {
	UserID         uuid.UUID `json:"user_id"`
	Name           string  `json:"name"`
	Nickname       string  `json:"nickname"`
	TotalScore     int     `json:"total_score"`
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
	CorrectRate    float64 `json:"correct_rate"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ExamsTaken     int     `json:"exams_taken"`
}
