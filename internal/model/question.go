package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType is the closed set of question variants.
type QuestionType string

const (
	QuestionTypeSingle    QuestionType = "single"
	QuestionTypeMultiple  QuestionType = "multiple"
	QuestionTypeTrueFalse QuestionType = "truefalse"
	QuestionTypeOrdering  QuestionType = "ordering"
	QuestionTypeMatching  QuestionType = "matching"
)

// GroupType classifies questions and exams for filtering. It does not affect
// correctness; highschool content is ungraded practice.
type GroupType string

const (
	GroupTypeHighschool GroupType = "highschool"
	GroupTypePrep       GroupType = "prep"
	GroupTypeReview     GroupType = "review"
)

// MatchingUnset is the sentinel for an unmatched pairing slot.
const MatchingUnset = -1

// Question represents a question in the bank. The answer key shape is bound
// to the question type:
//
//	single    → option index (number)
//	multiple  → set of option indices
//	truefalse → boolean
//	ordering  → permutation of option indices
//	matching  → right-index per left item
//
// Published questions are immutable in spirit; deletion is a soft flag so
// historical attempts keep resolving.
type Question struct {
	ID           uuid.UUID       `json:"id"`
	Type         QuestionType    `json:"type"`
	GroupType    GroupType       `json:"group_type"`
	Prompt       string          `json:"prompt"`
	Explanation  string          `json:"explanation,omitempty"`
	Options      []string        `json:"options,omitempty"`       // single, multiple
	Left         []string        `json:"left,omitempty"`          // matching
	Right        []string        `json:"right,omitempty"`         // matching
	OrderOptions []string        `json:"order_options,omitempty"` // ordering
	Answer       json.RawMessage `json:"answer,omitempty"`
	Deleted      bool            `json:"deleted"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// QuestionForTaker is a question with the answer key stripped, safe to send
// to a user taking an exam.
//
// Presentation carries the initial arrangement for ordering questions, as a
// permutation of option indices guaranteed not to equal the answer key.
// InitialAnswer carries the all-unmatched starting state for matching
// questions.
type QuestionForTaker struct {
	ID            uuid.UUID       `json:"id"`
	Type          QuestionType    `json:"type"`
	Prompt        string          `json:"prompt"`
	Options       []string        `json:"options,omitempty"`
	Left          []string        `json:"left,omitempty"`
	Right         []string        `json:"right,omitempty"`
	OrderOptions  []string        `json:"order_options,omitempty"`
	Presentation  []int           `json:"presentation,omitempty"`
	InitialAnswer json.RawMessage `json:"initial_answer,omitempty"`
	Score         int             `json:"score"`
}

// CreateQuestionRequest is the payload for adding a question to the bank.
type CreateQuestionRequest struct {
	Type         string          `json:"type" binding:"required,oneof=single multiple truefalse ordering matching"`
	GroupType    string          `json:"group_type" binding:"required,oneof=highschool prep review"`
	Prompt       string          `json:"prompt" binding:"required,min=1,max=4000"`
	Explanation  string          `json:"explanation" binding:"omitempty,max=8000"`
	Options      []string        `json:"options" binding:"omitempty,max=8,dive,max=1000"`
	Left         []string        `json:"left" binding:"omitempty,max=8,dive,max=1000"`
	Right        []string        `json:"right" binding:"omitempty,max=8,dive,max=1000"`
	OrderOptions []string        `json:"order_options" binding:"omitempty,max=8,dive,max=1000"`
	Answer       json.RawMessage `json:"answer" binding:"required"`
}

// UpdateQuestionRequest is the payload for editing a question. All fields are
// optional; omitted ones are left untouched.
type UpdateQuestionRequest struct {
	GroupType    string          `json:"group_type" binding:"omitempty,oneof=highschool prep review"`
	Prompt       string          `json:"prompt" binding:"omitempty,min=1,max=4000"`
	Explanation  *string         `json:"explanation" binding:"omitempty,max=8000"`
	Options      []string        `json:"options" binding:"omitempty,max=8,dive,max=1000"`
	Left         []string        `json:"left" binding:"omitempty,max=8,dive,max=1000"`
	Right        []string        `json:"right" binding:"omitempty,max=8,dive,max=1000"`
	OrderOptions []string        `json:"order_options" binding:"omitempty,max=8,dive,max=1000"`
	Answer       json.RawMessage `json:"answer" binding:"omitempty"`
}
