package grading

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/nebc/quizhub-backend/internal/model"
)

func mkQuestion(t *testing.T, qt model.QuestionType, answer string) *model.Question {
	t.Helper()
	q := &model.Question{
		ID:     uuid.New(),
		Type:   qt,
		Prompt: "q",
		Answer: json.RawMessage(answer),
	}
	switch qt {
	case model.QuestionTypeSingle, model.QuestionTypeMultiple:
		q.Options = []string{"a", "b", "c", "d"}
	case model.QuestionTypeOrdering:
		q.OrderOptions = []string{"first", "second", "third"}
	case model.QuestionTypeMatching:
		q.Left = []string{"l0", "l1", "l2"}
		q.Right = []string{"r0", "r1", "r2"}
	}
	return q
}

func TestIsCorrect(t *testing.T) {
	tests := []struct {
		name   string
		qType  model.QuestionType
		key    string
		answer string
		want   bool
	}{
		{name: "single correct", qType: model.QuestionTypeSingle, key: `2`, answer: `2`, want: true},
		{name: "single wrong", qType: model.QuestionTypeSingle, key: `2`, answer: `1`, want: false},
		{name: "single malformed", qType: model.QuestionTypeSingle, key: `2`, answer: `"two"`, want: false},
		{name: "truefalse correct", qType: model.QuestionTypeTrueFalse, key: `true`, answer: `true`, want: true},
		{name: "truefalse wrong", qType: model.QuestionTypeTrueFalse, key: `true`, answer: `false`, want: false},
		{name: "truefalse legacy index key", qType: model.QuestionTypeTrueFalse, key: `0`, answer: `true`, want: true},
		{name: "multiple correct same order", qType: model.QuestionTypeMultiple, key: `[1,2]`, answer: `[1,2]`, want: true},
		{name: "multiple correct reordered", qType: model.QuestionTypeMultiple, key: `[1,2]`, answer: `[2,1]`, want: true},
		{name: "multiple missing one", qType: model.QuestionTypeMultiple, key: `[1,2]`, answer: `[1]`, want: false},
		{name: "multiple extra one", qType: model.QuestionTypeMultiple, key: `[1,2]`, answer: `[1,2,3]`, want: false},
		{name: "multiple duplicate padding", qType: model.QuestionTypeMultiple, key: `[1,2]`, answer: `[1,1]`, want: false},
		{name: "ordering exact", qType: model.QuestionTypeOrdering, key: `[2,0,1]`, answer: `[2,0,1]`, want: true},
		{name: "ordering set-equal but reordered", qType: model.QuestionTypeOrdering, key: `[2,0,1]`, answer: `[0,1,2]`, want: false},
		{name: "matching exact", qType: model.QuestionTypeMatching, key: `[1,0,2]`, answer: `[1,0,2]`, want: true},
		{name: "matching set-equal but reordered", qType: model.QuestionTypeMatching, key: `[1,0,2]`, answer: `[0,1,2]`, want: false},
		{name: "matching unset slot", qType: model.QuestionTypeMatching, key: `[1,0,2]`, answer: `[1,0,-1]`, want: false},
		{name: "nil answer", qType: model.QuestionTypeSingle, key: `2`, answer: ``, want: false},
		{name: "null answer", qType: model.QuestionTypeMultiple, key: `[1]`, answer: `null`, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := mkQuestion(t, tc.qType, tc.key)
			var ans json.RawMessage
			if tc.answer != "" {
				ans = json.RawMessage(tc.answer)
			}
			if got := IsCorrect(q, ans); got != tc.want {
				t.Errorf("IsCorrect() = %v, want %v", got, tc.want)
			}
		})
	}
}

// The canonical answer must always grade as correct, for every variant.
func TestIsCorrect_KeyIsSelfCorrect(t *testing.T) {
	keys := map[model.QuestionType]string{
		model.QuestionTypeSingle:    `1`,
		model.QuestionTypeTrueFalse: `false`,
		model.QuestionTypeMultiple:  `[0,3]`,
		model.QuestionTypeOrdering:  `[2,0,1]`,
		model.QuestionTypeMatching:  `[1,2,0]`,
	}
	for qt, key := range keys {
		q := mkQuestion(t, qt, key)
		if !IsCorrect(q, q.Answer) {
			t.Errorf("%s: canonical answer graded incorrect", qt)
		}
	}
}

func TestIsUnanswered(t *testing.T) {
	ordering := mkQuestion(t, model.QuestionTypeOrdering, `[2,0,1]`)

	tests := []struct {
		name       string
		q          *model.Question
		answer     string
		interacted map[string]bool
		want       bool
	}{
		{name: "single nil", q: mkQuestion(t, model.QuestionTypeSingle, `1`), answer: ``, want: true},
		{name: "single null", q: mkQuestion(t, model.QuestionTypeSingle, `1`), answer: `null`, want: true},
		{name: "single zero index answered", q: mkQuestion(t, model.QuestionTypeSingle, `1`), answer: `0`, want: false},
		{name: "truefalse false answered", q: mkQuestion(t, model.QuestionTypeTrueFalse, `true`), answer: `false`, want: false},
		{name: "multiple empty", q: mkQuestion(t, model.QuestionTypeMultiple, `[1]`), answer: `[]`, want: true},
		{name: "multiple non-array", q: mkQuestion(t, model.QuestionTypeMultiple, `[1]`), answer: `3`, want: true},
		{name: "multiple picked", q: mkQuestion(t, model.QuestionTypeMultiple, `[1]`), answer: `[2]`, want: false},
		{name: "ordering default no interaction", q: ordering, answer: `[0,1,2]`, want: true},
		{name: "ordering interacted", q: ordering, answer: `[0,1,2]`, interacted: map[string]bool{ordering.ID.String(): true}, want: false},
		{name: "matching all unset", q: mkQuestion(t, model.QuestionTypeMatching, `[1,0,2]`), answer: `[-1,-1,-1]`, want: true},
		{name: "matching one unset", q: mkQuestion(t, model.QuestionTypeMatching, `[1,0,2]`), answer: `[1,0,-1]`, want: true},
		{name: "matching length mismatch", q: mkQuestion(t, model.QuestionTypeMatching, `[1,0,2]`), answer: `[1,0]`, want: true},
		{name: "matching complete", q: mkQuestion(t, model.QuestionTypeMatching, `[1,0,2]`), answer: `[0,1,2]`, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ans json.RawMessage
			if tc.answer != "" {
				ans = json.RawMessage(tc.answer)
			}
			if got := IsUnanswered(tc.q, ans, tc.interacted); got != tc.want {
				t.Errorf("IsUnanswered() = %v, want %v", got, tc.want)
			}
		})
	}
}

// A freshly initialized matching state must read as unanswered until every
// pairing is set.
func TestIsUnanswered_InitialMatchingState(t *testing.T) {
	q := mkQuestion(t, model.QuestionTypeMatching, `[1,0,2]`)

	initial, _ := json.Marshal(InitialMatching(3))
	if !IsUnanswered(q, initial, nil) {
		t.Fatal("initial matching state should be unanswered")
	}

	complete, _ := json.Marshal([]int{2, 1, 0})
	if IsUnanswered(q, complete, nil) {
		t.Fatal("fully paired matching state should count as answered")
	}
}

func TestScoreAttempt(t *testing.T) {
	q1 := mkQuestion(t, model.QuestionTypeSingle, `1`)
	q2 := mkQuestion(t, model.QuestionTypeMultiple, `[0,2]`)
	entries := []Entry{
		{Question: q1, Score: 10},
		{Question: q2, Score: 5},
	}
	answers := map[string]json.RawMessage{
		q1.ID.String(): json.RawMessage(`1`),   // correct
		q2.ID.String(): json.RawMessage(`[0]`), // wrong
	}

	verdicts, totals := ScoreAttempt(entries, answers, nil, true)

	if totals.TotalScore != 10 || totals.CorrectCount != 1 || totals.TotalQuestions != 2 {
		t.Fatalf("totals = %+v, want {10 1 2}", totals)
	}
	if !verdicts[0].Correct || verdicts[0].Score != 10 {
		t.Errorf("verdict[0] = %+v, want correct with score 10", verdicts[0])
	}
	if verdicts[1].Correct || verdicts[1].Score != 0 {
		t.Errorf("verdict[1] = %+v, want incorrect with score 0", verdicts[1])
	}
}

// Practice exams track correctness but never award points.
func TestScoreAttempt_UngradedExam(t *testing.T) {
	q := mkQuestion(t, model.QuestionTypeSingle, `3`)
	entries := []Entry{{Question: q, Score: 25}}
	answers := map[string]json.RawMessage{q.ID.String(): json.RawMessage(`3`)}

	verdicts, totals := ScoreAttempt(entries, answers, nil, false)

	if !verdicts[0].Correct {
		t.Fatal("expected a correct verdict")
	}
	if totals.TotalScore != 0 || totals.CorrectCount != 1 {
		t.Fatalf("totals = %+v, want score 0 with one correct", totals)
	}
}

// Re-running the computation must be a pure no-op: same inputs, same outputs.
func TestScoreAttempt_Deterministic(t *testing.T) {
	q := mkQuestion(t, model.QuestionTypeOrdering, `[1,0,2]`)
	entries := []Entry{{Question: q, Score: 7}}
	answers := map[string]json.RawMessage{q.ID.String(): json.RawMessage(`[1,0,2]`)}
	interacted := map[string]bool{q.ID.String(): true}

	_, first := ScoreAttempt(entries, answers, interacted, true)
	_, second := ScoreAttempt(entries, answers, interacted, true)

	if first != second {
		t.Fatalf("totals diverged across runs: %+v vs %+v", first, second)
	}
}
