package attempt

import (
	"math"

	"exam-session-service/internal/domain"
)

// Marking scheme: +4 per correct, -1 per incorrect, 0 per unattempted.
const (
	pointsPerCorrect    = 4
	penaltyPerIncorrect = 1
)

// Score classifies every question against the committed answers and returns
// the aggregate result. Pure and deterministic: identical inputs produce an
// identical Result, including the per-subject ordering (first appearance in
// the question sequence).
func Score(questions []domain.Question, answers map[string]string) domain.Result {
	res := domain.Result{Total: len(questions)}

	subjectOrder := make([]string, 0)
	subjects := make(map[string]*domain.SubjectScore)

	for _, q := range questions {
		sub, ok := subjects[q.Subject]
		if !ok {
			sub = &domain.SubjectScore{Subject: q.Subject}
			subjects[q.Subject] = sub
			subjectOrder = append(subjectOrder, q.Subject)
		}
		sub.Total++

		selected, answered := answers[q.ID]
		switch {
		case !answered:
			res.Unattempted++
			sub.Unattempted++
		case selected == q.Correct:
			res.Attempted++
			res.Correct++
			sub.Attempted++
			sub.Correct++
		default:
			res.Attempted++
			res.Incorrect++
			sub.Attempted++
			sub.Incorrect++
		}
	}

	res.Score = res.Correct*pointsPerCorrect - res.Incorrect*penaltyPerIncorrect
	res.Percentage = percentage(res.Correct, res.Total)
	res.Accuracy = percentage(res.Correct, res.Attempted)

	res.Subjects = make([]domain.SubjectScore, 0, len(subjectOrder))
	for _, name := range subjectOrder {
		sub := subjects[name]
		sub.Percentage = percentage(sub.Correct, sub.Total)
		res.Subjects = append(res.Subjects, *sub)
	}
	return res
}

// percentage returns part/whole*100 rounded to one decimal, and 0 when the
// denominator is zero so an all-unattempted session never divides by zero.
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
