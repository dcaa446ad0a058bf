package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Score is one 0-100 rating with its comment.
type Score struct {
	Value   int    `json:"value"`
	Comment string `json:"comment,omitempty"`
	Found   bool   `json:"found"`
}

// Scores are the quality evaluator's two ratings.
type Scores struct {
	Requirements Score `json:"requirements"`
	Code         Score `json:"code"`
}

var scoreLine = regexp.MustCompile(`(?i)^[\s*_"'>-]*(requirements|code)\s+score\s*[*_]*\s*:\s*[*_]*\s*(\d{1,3})\s*%?(.*)$`)

// ParseScores extracts "Requirements score: N% - comment" and
// "Code score: N% - comment" lines. The first line of each kind wins and
// values above 100 are clamped.
func ParseScores(text string) Scores {
	var s Scores
	for _, line := range strings.Split(text, "\n") {
		m := scoreLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if value > 100 {
			value = 100
		}
		score := Score{Value: value, Comment: cleanComment(m[3]), Found: true}

		switch strings.ToLower(m[1]) {
		case "requirements":
			if !s.Requirements.Found {
				s.Requirements = score
			}
		case "code":
			if !s.Code.Found {
				s.Code = score
			}
		}
	}
	return s
}

func cleanComment(rest string) string {
	rest = strings.TrimSpace(rest)
	rest = strings.TrimLeft(rest, "-–—:*_ ")
	rest = strings.TrimRight(rest, `"*_ `)
	return strings.TrimSpace(rest)
}
