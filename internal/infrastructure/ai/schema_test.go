package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

func TestParseJudgment_Valid(t *testing.T) {
	j, err := parseJudgment([]byte(`{"quality": 4.5, "correct": true, "feedback": "clear and complete"}`))
	require.NoError(t, err)

	assert.InDelta(t, 4.5, j.Quality, 1e-9)
	assert.True(t, j.Correct)
	assert.Equal(t, "clear and complete", j.Feedback)
}

func TestParseJudgment_BoundaryScores(t *testing.T) {
	for _, q := range []string{"0", "5"} {
		_, err := parseJudgment([]byte(`{"quality": ` + q + `, "correct": false, "feedback": "x"}`))
		assert.NoError(t, err, "quality %s is in range", q)
	}
}

func TestParseJudgment_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{"quality": 4,`},
		{"plain text", `the answer looks fine to me`},
		{"missing feedback", `{"quality": 4, "correct": true}`},
		{"quality above range", `{"quality": 5.1, "correct": true, "feedback": "x"}`},
		{"quality below range", `{"quality": -1, "correct": true, "feedback": "x"}`},
		{"wrong quality type", `{"quality": "good", "correct": true, "feedback": "x"}`},
		{"extra field", `{"quality": 4, "correct": true, "feedback": "x", "confidence": 0.9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseJudgment([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrMalformedResponse)
		})
	}
}

func TestParseJudgment_MalformedIsRetryable(t *testing.T) {
	_, err := parseJudgment([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))
}
