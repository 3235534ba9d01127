package grading

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nebc/quizhub-backend/internal/model"
)

func TestValidateAnswerKey(t *testing.T) {
	tests := []struct {
		name    string
		qType   model.QuestionType
		key     string
		wantErr error
	}{
		{name: "single ok", qType: model.QuestionTypeSingle, key: `2`},
		{name: "single out of range", qType: model.QuestionTypeSingle, key: `9`, wantErr: ErrOptionBounds},
		{name: "single wrong shape", qType: model.QuestionTypeSingle, key: `[1]`, wantErr: ErrAnswerShape},
		{name: "truefalse ok", qType: model.QuestionTypeTrueFalse, key: `true`},
		{name: "truefalse wrong shape", qType: model.QuestionTypeTrueFalse, key: `"yes"`, wantErr: ErrAnswerShape},
		{name: "multiple ok", qType: model.QuestionTypeMultiple, key: `[0,2]`},
		{name: "multiple empty", qType: model.QuestionTypeMultiple, key: `[]`, wantErr: ErrAnswerShape},
		{name: "multiple duplicate", qType: model.QuestionTypeMultiple, key: `[1,1]`, wantErr: ErrAnswerShape},
		{name: "multiple out of range", qType: model.QuestionTypeMultiple, key: `[0,7]`, wantErr: ErrOptionBounds},
		{name: "ordering ok", qType: model.QuestionTypeOrdering, key: `[2,0,1]`},
		{name: "ordering not permutation", qType: model.QuestionTypeOrdering, key: `[0,0,1]`, wantErr: ErrAnswerShape},
		{name: "ordering length mismatch", qType: model.QuestionTypeOrdering, key: `[0,1]`, wantErr: ErrAnswerShape},
		{name: "matching ok", qType: model.QuestionTypeMatching, key: `[1,0,2]`},
		{name: "matching length mismatch", qType: model.QuestionTypeMatching, key: `[1,0]`, wantErr: ErrAnswerShape},
		{name: "matching out of range", qType: model.QuestionTypeMatching, key: `[1,0,5]`, wantErr: ErrOptionBounds},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := mkQuestion(t, tc.qType, tc.key)
			err := ValidateAnswerKey(q)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateAnswerKey_UnknownType(t *testing.T) {
	q := mkQuestion(t, model.QuestionType("essay"), `"anything"`)
	q.Answer = json.RawMessage(`"anything"`)
	if err := ValidateAnswerKey(q); err == nil {
		t.Fatal("expected an error for an unknown question type")
	}
}
