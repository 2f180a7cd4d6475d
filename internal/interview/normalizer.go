// Package interview implements progressive interview scoring: normalizing
// stage scores, storing stage records in applicant page fields and
// recomputing the total as stages complete.
package interview

import (
	"math"

	"recruiting-pipeline/internal/models"
)

const (
	// ScaleMax is the common basis every question score is rescaled to.
	ScaleMax = 5.0
	// DefaultMaxScore applies when a question has no usable maxScore.
	DefaultMaxScore = 5.0
)

// Normalize returns the mean per-question score rescaled to 0..5, rounded to
// two decimals. It never fails: bad scores count as 0, bad maxScores as 5.
func Normalize(questions []models.Question) float64 {
	if len(questions) == 0 {
		return 0
	}

	var sum float64
	for _, q := range questions {
		sum += normalizedScore(q)
	}
	return Round2(sum / float64(len(questions)))
}

func normalizedScore(q models.Question) float64 {
	score := float64(q.Score)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}
	maxScore := float64(q.MaxScore)
	if maxScore == 0 || math.IsNaN(maxScore) || math.IsInf(maxScore, 0) {
		maxScore = DefaultMaxScore
	}

	n := score / maxScore * ScaleMax
	switch {
	case math.IsNaN(n) || n < 0:
		return 0
	case n > ScaleMax:
		return ScaleMax
	}
	return n
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Mean averages the present values and rounds to two decimals. ok is false
// when there is nothing to average.
func Mean(values []float64) (mean float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Round2(sum / float64(len(values))), true
}
