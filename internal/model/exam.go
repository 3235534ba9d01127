package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamQuestion is one entry in an exam's ordered question list, carrying the
// score a correct answer contributes. Scores are ignored for highschool
// (practice) exams.
type ExamQuestion struct {
	QuestionID uuid.UUID `json:"question_id"`
	Score      int       `json:"score"`
}

// Exam represents an assembled exam.
//
// OpenAt/CloseAt bound the answering window; AnswerAvailableAt gates when
// results and explanations become visible. TimeLimitMinutes is a per-user
// countdown from first access, independent of CloseAt; nil means no limit.
type Exam struct {
	ID                uuid.UUID      `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	GroupType         GroupType      `json:"group_type"`
	Questions         []ExamQuestion `json:"questions"`
	OpenAt            *time.Time     `json:"open_at,omitempty"`
	CloseAt           *time.Time     `json:"close_at,omitempty"`
	AnswerAvailableAt *time.Time     `json:"answer_available_at,omitempty"`
	TimeLimitMinutes  *int           `json:"time_limit_minutes,omitempty"`
	Deleted           bool           `json:"deleted"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Graded reports whether scores are weighted for this exam. Highschool exams
// are practice: correctness is tracked but score is not.
func (e *Exam) Graded() bool {
	return e.GroupType != GroupTypeHighschool
}

// ExamPaper is the cached payload sent to a user taking the exam: questions
// in exam order with answer keys stripped.
type ExamPaper struct {
	ExamID           uuid.UUID          `json:"exam_id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	GroupType        GroupType          `json:"group_type"`
	TimeLimitMinutes *int               `json:"time_limit_minutes,omitempty"`
	Questions        []QuestionForTaker `json:"questions"`
}

// ExamQuestionRequest is one weighted question reference in an exam payload.
type ExamQuestionRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Score      int    `json:"score" binding:"min=0,max=1000"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title             string                `json:"title" binding:"required,min=1,max=255"`
	Description       string                `json:"description" binding:"omitempty,max=4000"`
	GroupType         string                `json:"group_type" binding:"required,oneof=highschool prep review"`
	Questions         []ExamQuestionRequest `json:"questions" binding:"required,min=1,dive"`
	OpenAt            *time.Time            `json:"open_at" binding:"omitempty"`
	CloseAt           *time.Time            `json:"close_at" binding:"omitempty"`
	AnswerAvailableAt *time.Time            `json:"answer_available_at" binding:"omitempty"`
	TimeLimitMinutes  *int                  `json:"time_limit_minutes" binding:"omitempty,min=0,max=480"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title             string                `json:"title" binding:"omitempty,min=1,max=255"`
	Description       *string               `json:"description" binding:"omitempty,max=4000"`
	GroupType         string                `json:"group_type" binding:"omitempty,oneof=highschool prep review"`
	Questions         []ExamQuestionRequest `json:"questions" binding:"omitempty,min=1,dive"`
	OpenAt            *time.Time            `json:"open_at" binding:"omitempty"`
	CloseAt           *time.Time            `json:"close_at" binding:"omitempty"`
	AnswerAvailableAt *time.Time            `json:"answer_available_at" binding:"omitempty"`
	TimeLimitMinutes  *int                  `json:"time_limit_minutes" binding:"omitempty,min=0,max=480"`
}
