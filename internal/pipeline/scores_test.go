package pipeline

import "testing"

func TestParseScores(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Scores
	}{
		{
			name: "mandated format",
			text: "Requirements score: 85% - mostly consistent\nCode score: 40% - sum multiplies",
			want: Scores{
				Requirements: Score{Value: 85, Comment: "mostly consistent", Found: true},
				Code:         Score{Value: 40, Comment: "sum multiplies", Found: true},
			},
		},
		{
			name: "markdown decoration and case",
			text: "Summary\n**Requirements score:** 70 % — vague ranges\n- code SCORE: 100%",
			want: Scores{
				Requirements: Score{Value: 70, Comment: "vague ranges", Found: true},
				Code:         Score{Value: 100, Found: true},
			},
		},
		{
			name: "first line wins and values clamp",
			text: "Code score: 250% - too generous\nCode score: 10% - second",
			want: Scores{
				Code: Score{Value: 100, Comment: "too generous", Found: true},
			},
		},
		{
			name: "missing",
			text: "The evaluator did not follow the format.",
			want: Scores{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseScores(tt.text); got != tt.want {
				t.Errorf("ParseScores() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
