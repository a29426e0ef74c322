package answer

import (
	"math"
	"strconv"
)

// KeyedQuestion is the minimal question view the scoring engine needs.
type KeyedQuestion struct {
	ID            int64
	CorrectChoice string
}

// Score computes the percentage of correctly answered questions as an
// integer in [0,100]. A question missing from the answer map counts as
// wrong; matching is exact and case sensitive. An exam without
// questions scores 0. Fractions round half-up.
func Score(questions []KeyedQuestion, answers AnswerMap) int {
	total := len(questions)
	if total == 0 {
		return 0
	}

	correct := 0
	for _, q := range questions {
		selected, ok := answers[strconv.FormatInt(q.ID, 10)]
		if ok && selected == q.CorrectChoice {
			correct++
		}
	}

	return int(math.Floor(float64(correct)/float64(total)*100 + 0.5))
}
