// ABOUTME: Tests for questions and their closed answer-key variants
// ABOUTME: Covers type parsing, per-type validation, and the flat JSON form
package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionType(t *testing.T) {
	tests := []struct {
		in   string
		want QuestionType
	}{
		{"multiple_choice", MultipleChoiceType},
		{"Multiple Choice", MultipleChoiceType},
		{"true/false", TrueFalseType},
		{"TF", TrueFalseType},
		{"short-answer", ShortAnswerType},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuestionType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseQuestionType("essay")
	assert.Error(t, err)
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" Hard ")
	require.NoError(t, err)
	assert.Equal(t, Hard, d)

	_, err = ParseDifficulty("impossible")
	assert.Error(t, err)
}

func validQuestion(key AnswerKey) Question {
	return Question{
		ID:             "q1",
		Prompt:         "What does the mitochondria produce?",
		Difficulty:     Medium,
		SourceChunkIDs: []string{"chunk_1"},
		Key:            key,
	}
}

func TestQuestion_Validate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{"valid multiple choice", validQuestion(MultipleChoice{Options: []string{"ATP", "DNA", "RNA"}, Answer: "ATP"}), false},
		{"too few options", validQuestion(MultipleChoice{Options: []string{"ATP", "DNA"}, Answer: "ATP"}), true},
		{"too many options", validQuestion(MultipleChoice{Options: []string{"a", "b", "c", "d", "e", "f"}, Answer: "a"}), true},
		{"duplicate options", validQuestion(MultipleChoice{Options: []string{"ATP", "atp ", "RNA"}, Answer: "ATP"}), true},
		{"answer not in options", validQuestion(MultipleChoice{Options: []string{"ATP", "DNA", "RNA"}, Answer: "Glucose"}), true},
		{"empty option", validQuestion(MultipleChoice{Options: []string{"ATP", " ", "RNA"}, Answer: "ATP"}), true},
		{"true false", validQuestion(TrueFalse{Answer: true}), false},
		{"short answer", validQuestion(ShortAnswer{Answer: "ATP"}), false},
		{"blank short answer", validQuestion(ShortAnswer{Answer: "  "}), true},
		{"no key", validQuestion(nil), true},
		{"no sources", func() Question { q := validQuestion(TrueFalse{}); q.SourceChunkIDs = nil; return q }(), true},
		{"blank prompt", func() Question { q := validQuestion(TrueFalse{}); q.Prompt = " "; return q }(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuestion_AccessorsFollowKey(t *testing.T) {
	mc := validQuestion(MultipleChoice{Options: []string{"ATP", "DNA", "RNA"}, Answer: "ATP"})
	assert.Equal(t, MultipleChoiceType, mc.Type())
	assert.Equal(t, "ATP", mc.CorrectAnswer())
	assert.Len(t, mc.Options(), 3)

	tf := validQuestion(TrueFalse{Answer: false})
	assert.Equal(t, TrueFalseType, tf.Type())
	assert.Equal(t, "false", tf.CorrectAnswer())
	assert.Nil(t, tf.Options())
}

func TestQuestion_JSONKeepsVariant(t *testing.T) {
	q := validQuestion(MultipleChoice{Options: []string{"ATP", "DNA", "RNA"}, Answer: "ATP"})
	q.Explanation = "Mitochondria make ATP."

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"multiple_choice"`)
	assert.Contains(t, string(data), `"correct_answer":"ATP"`)

	var back Question
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, q, back)
}

func TestQuestion_UnmarshalRejectsBadTrueFalse(t *testing.T) {
	var q Question
	err := json.Unmarshal([]byte(`{"id":"q1","type":"true_false","prompt":"p","correct_answer":"maybe"}`), &q)
	assert.Error(t, err)
}

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "the krebs cycle", NormalizeAnswer("  The   Krebs\tCycle \n"))
	assert.Equal(t, "", NormalizeAnswer("   "))
}

func TestParseTrueFalse(t *testing.T) {
	for _, in := range []string{"true", "True", " yes ", "T"} {
		got, err := ParseTrueFalse(in)
		require.NoError(t, err, in)
		assert.True(t, got, in)
	}
	for _, in := range []string{"false", "NO", "f"} {
		got, err := ParseTrueFalse(in)
		require.NoError(t, err, in)
		assert.False(t, got, in)
	}
	_, err := ParseTrueFalse("perhaps")
	assert.Error(t, err)
}
