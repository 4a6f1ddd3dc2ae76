package app

import (
	"math"

	"quizlit-live/internal/domain"
)

// BuildResults derives the per-question and session-level statistics from a
// fixed set of ledger rows. It is a pure function: recomputing from the same
// responses always yields the same report.
func BuildResults(sessionID string, quiz domain.Quiz, responses []domain.Response) domain.SessionResults {
	byQuestion := make(map[string][]domain.Response)
	correctByName := make(map[string]int)
	totalCorrect := 0
	for _, r := range responses {
		byQuestion[r.QuestionID] = append(byQuestion[r.QuestionID], r)
		if _, seen := correctByName[r.ParticipantName]; !seen {
			correctByName[r.ParticipantName] = 0
		}
		if r.IsCorrect {
			correctByName[r.ParticipantName]++
			totalCorrect++
		}
	}

	perQuestion := make([]domain.QuestionStats, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		stats := domain.QuestionStats{
			QuestionID:   q.ID,
			Prompt:       q.Prompt,
			Correct:      q.Correct,
			Distribution: map[domain.AnswerLabel]int{domain.LabelA: 0, domain.LabelB: 0, domain.LabelC: 0, domain.LabelD: 0},
		}
		for _, r := range byQuestion[q.ID] {
			stats.TotalResponses++
			stats.Distribution[r.Selected]++
			if r.IsCorrect {
				stats.CorrectCount++
			} else {
				stats.IncorrectCount++
			}
		}
		stats.CorrectPercent = roundPercent(stats.CorrectCount, stats.TotalResponses)
		perQuestion = append(perQuestion, stats)
	}

	// Each participant's score is their correct count over the full quiz
	// length, regardless of how many questions they actually answered.
	averageScore := 0
	if len(correctByName) > 0 && len(quiz.Questions) > 0 {
		sum := 0.0
		for _, correct := range correctByName {
			sum += float64(correct) / float64(len(quiz.Questions)) * 100
		}
		averageScore = int(math.Round(sum / float64(len(correctByName))))
	}

	return domain.SessionResults{
		SessionID:        sessionID,
		ParticipantCount: len(correctByName),
		AverageScore:     averageScore,
		OverallAccuracy:  roundPercent(totalCorrect, len(responses)),
		PerQuestion:      perQuestion,
	}
}

func roundPercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
