package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states.
//
// in_progress → pending_confirm → submitted, with pending_confirm optional
// (only entered when a user submits with unanswered questions and has not
// confirmed). Transitions are conditional writes so concurrent submit paths
// (user click vs deadline sweep) resolve to a single winner.
type AttemptStatus string

const (
	AttemptStatusInProgress     AttemptStatus = "in_progress"
	AttemptStatusPendingConfirm AttemptStatus = "pending_confirm"
	AttemptStatusSubmitted      AttemptStatus = "submitted"
)

// Attempt is one user's single pass through an exam. There is at most one per
// (exam, user); its existence with status submitted is the resubmission gate.
type Attempt struct {
	ID         uuid.UUID                  `json:"id"`
	ExamID     uuid.UUID                  `json:"exam_id"`
	UserID     uuid.UUID                  `json:"user_id"`
	Status     AttemptStatus              `json:"status"`
	Answers    map[string]json.RawMessage `json:"answers"`
	Interacted []string                   `json:"interacted"` // ordering question ids the user actually dragged
	StartedAt  time.Time                  `json:"started_at"`
	// Deadline is min(close_at, started_at + time_limit); nil when the exam
	// has neither bound.
	Deadline *time.Time `json:"deadline,omitempty"`
	// ConfirmBy is the end of the unanswered-confirmation grace window while
	// status is pending_confirm.
	ConfirmBy      *time.Time `json:"confirm_by,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds"`

	// Cached aggregates, recomputed lazily while NeedsRescore is set.
	TotalScore     int  `json:"total_score"`
	CorrectCount   int  `json:"correct_count"`
	TotalQuestions int  `json:"total_questions"`
	NeedsRescore   bool `json:"needs_rescore"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuestionResult is the graded outcome for one question of an attempt.
// CorrectAnswer and Explanation are only populated once the exam's answer
// release time has passed.
type QuestionResult struct {
	QuestionID    uuid.UUID       `json:"question_id"`
	Prompt        string          `json:"prompt"`
	Correct       bool            `json:"correct"`
	Unanswered    bool            `json:"unanswered"`
	Score         int             `json:"score"`
	Answer        json.RawMessage `json:"answer,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
}

// AttemptResult is the full graded view of a submitted attempt.
type AttemptResult struct {
	ExamID         uuid.UUID        `json:"exam_id"`
	UserID         uuid.UUID        `json:"user_id"`
	Graded         bool             `json:"graded"`
	TotalScore     int              `json:"total_score"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	SubmittedAt    *time.Time       `json:"submitted_at,omitempty"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	Results        []QuestionResult `json:"results"`
}

// SaveAnswerRequest is the payload for capturing a single answer.
type SaveAnswerRequest struct {
	QuestionID string          `json:"question_id" binding:"required,uuid"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
	// Interacted marks that the user actually reordered an ordering
	// question; the pre-shuffled default must not count as an answer.
	Interacted bool `json:"interacted"`
}

// SubmitRequest is the payload for finishing an attempt.
type SubmitRequest struct {
	// Confirmed skips the unanswered-question grace window.
	Confirmed bool `json:"confirmed"`
}

// SubmitOutcome reports what a submit call did.
type SubmitOutcome struct {
	Status AttemptStatus `json:"status"`
	// Unanswered is the number of unanswered questions at submit time; only
	// meaningful when status is pending_confirm.
	Unanswered int        `json:"unanswered"`
	ConfirmBy  *time.Time `json:"confirm_by,omitempty"`
}
