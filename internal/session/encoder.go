package session

import (
	"github.com/stemsi/exstem-client/internal/model"
)

// EncodeAnswers converts the ledger into the submission wire format: one
// entry per question, in question order, with model.UnansweredIndex as the
// sentinel for blank positions and for essay answers (whose text travels
// in AnswerText).
//
// The mapping is pure and deterministic — identical (questions, ledger)
// state always yields identical output, which makes a failed submission
// safe to retry byte-for-byte.
func EncodeAnswers(questions []model.Question, ledger *Ledger) []model.AnswerPair {
	pairs := make([]model.AnswerPair, len(questions))
	for i, q := range questions {
		pair := model.AnswerPair{
			QuestionID:  q.ID,
			AnswerIndex: model.UnansweredIndex,
		}

		answer := ledger.Get(i)
		switch answer.Kind {
		case model.AnswerOption:
			pair.AnswerIndex = answer.Option
		case model.AnswerText:
			pair.AnswerText = answer.Text
		}

		pairs[i] = pair
	}
	return pairs
}
