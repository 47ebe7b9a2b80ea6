package app

import "trivia-board-service/internal/domain"

// Turn is the caller-held play state: the active team and the question on
// display. It is never persisted.
type Turn struct {
	teamID   *int64
	question *domain.Question
	revealed bool
}

// NewTurn returns a turn in the neutral state.
func NewTurn() *Turn {
	return &Turn{}
}

// ChooseTeam makes id the team attempting the next question.
func (t *Turn) ChooseTeam(id int64) {
	t.teamID = &id
}

// ClearTeam drops the active team selection.
func (t *Turn) ClearTeam() {
	t.teamID = nil
}

// ActiveTeam returns the selected team id, if any.
func (t *Turn) ActiveTeam() (int64, bool) {
	if t.teamID == nil {
		return 0, false
	}
	return *t.teamID, true
}

// Displayed returns the question on display, if any.
func (t *Turn) Displayed() (domain.QuestionPrompt, bool) {
	if t.question == nil {
		return domain.QuestionPrompt{}, false
	}
	return t.question.Prompt(), true
}

// Revealed reports whether the answer of the displayed question was shown.
func (t *Turn) Revealed() bool {
	return t.revealed
}

// RevealAnswer shows the answer of the displayed question. It only flips the
// caller-held flag.
func (t *Turn) RevealAnswer() (string, error) {
	if t.question == nil {
		return "", domain.ErrNoQuestionDisplayed
	}
	t.revealed = true
	return t.question.Answer, nil
}

func (t *Turn) display(q domain.Question) {
	t.question = &q
	t.revealed = false
}

func (t *Turn) reset() {
	t.teamID = nil
	t.question = nil
	t.revealed = false
}
