package grading

import (
	"encoding/json"

	"github.com/nebc/quizhub-backend/internal/model"
)

// IsCorrect decides whether a raw user answer matches the question's key.
//
//	single/truefalse → value equality
//	multiple         → same set of indices, order-independent
//	ordering/matching → exact positional equality, no partial credit
//
// Malformed or missing answers are simply incorrect.
func IsCorrect(q *model.Question, ans json.RawMessage) bool {
	if isNull(ans) || isNull(q.Answer) {
		return false
	}

	switch q.Type {
	case model.QuestionTypeSingle:
		got, ok1 := decodeIndex(ans)
		want, ok2 := decodeIndex(q.Answer)
		return ok1 && ok2 && got == want

	case model.QuestionTypeTrueFalse:
		got, ok1 := decodeBool(ans)
		want, ok2 := decodeBool(q.Answer)
		return ok1 && ok2 && got == want

	case model.QuestionTypeMultiple:
		got, ok1 := decodeIndexSlice(ans)
		want, ok2 := decodeIndexSlice(q.Answer)
		return ok1 && ok2 && len(want) > 0 && equalSets(got, want)

	case model.QuestionTypeOrdering, model.QuestionTypeMatching:
		got, ok1 := decodeIndexSlice(ans)
		want, ok2 := decodeIndexSlice(q.Answer)
		return ok1 && ok2 && len(want) > 0 && equalSequences(got, want)
	}

	return false
}

// IsUnanswered decides whether a question counts as not answered.
//
// Ordering questions are pre-populated with a shuffled default permutation, so
// their answered state comes from the interacted set (question ids the user
// actually dragged), never from the value itself. Matching questions are
// unanswered while any pairing is still the MatchingUnset sentinel or the
// pairing count is off.
func IsUnanswered(q *model.Question, ans json.RawMessage, interacted map[string]bool) bool {
	if q.Type == model.QuestionTypeOrdering {
		return !interacted[q.ID.String()]
	}

	if isNull(ans) {
		return true
	}

	switch q.Type {
	case model.QuestionTypeSingle:
		_, ok := decodeIndex(ans)
		return !ok

	case model.QuestionTypeTrueFalse:
		_, ok := decodeBool(ans)
		return !ok

	case model.QuestionTypeMultiple:
		s, ok := decodeIndexSlice(ans)
		return !ok || len(s) == 0

	case model.QuestionTypeMatching:
		s, ok := decodeIndexSlice(ans)
		if !ok || len(s) != matchingPairCount(q) {
			return true
		}
		for _, v := range s {
			if v == model.MatchingUnset {
				return true
			}
		}
		return false
	}

	return false
}

// matchingPairCount is the expected pairing count: the answer key's length,
// falling back to the left column for questions with a malformed key.
func matchingPairCount(q *model.Question) int {
	if key, ok := decodeIndexSlice(q.Answer); ok && len(key) > 0 {
		return len(key)
	}
	return len(q.Left)
}

// Entry pairs a question with the score a correct answer contributes.
type Entry struct {
	Question *model.Question
	Score    int
}

// Verdict is the graded outcome for one question.
type Verdict struct {
	QuestionID string
	Correct    bool
	Unanswered bool
	Score      int
}

// Totals aggregates an attempt's verdicts.
type Totals struct {
	TotalScore     int
	CorrectCount   int
	TotalQuestions int
}

// ScoreAttempt grades a full answer map against the exam's question list,
// preserving exam order. When graded is false (practice exams) correctness is
// still tracked but every awarded score is zero.
//
// The computation is deterministic and side-effect free: re-running it over
// the same inputs yields identical verdicts and totals.
func ScoreAttempt(entries []Entry, answers map[string]json.RawMessage, interacted map[string]bool, graded bool) ([]Verdict, Totals) {
	verdicts := make([]Verdict, 0, len(entries))
	var totals Totals

	for _, e := range entries {
		qid := e.Question.ID.String()
		ans := answers[qid]

		v := Verdict{
			QuestionID: qid,
			Correct:    IsCorrect(e.Question, ans),
			Unanswered: IsUnanswered(e.Question, ans, interacted),
		}
		if v.Correct && graded {
			v.Score = e.Score
		}

		if v.Correct {
			totals.CorrectCount++
		}
		totals.TotalScore += v.Score
		totals.TotalQuestions++

		verdicts = append(verdicts, v)
	}

	return verdicts, totals
}
