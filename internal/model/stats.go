package model

import "github.com/google/uuid"

// AnswerDistribution summarizes how all takers answered one exam question.
// Choices maps the JSON encoding of a submitted answer to how many takers
// gave it.
type AnswerDistribution struct {
	QuestionID uuid.UUID      `json:"question_id"`
	Type       QuestionType   `json:"type"`
	Prompt     string         `json:"prompt"`
	Choices    map[string]int `json:"choices"`
	Correct    int            `json:"correct"`
	Unanswered int            `json:"unanswered"`
	Total      int            `json:"total"`
}
