package app

import (
	"errors"
	"testing"

	"trivia-board-service/internal/domain"
)

func TestTurnRevealIsCallerHeld(t *testing.T) {
	turn := NewTurn()
	if _, err := turn.RevealAnswer(); !errors.Is(err, domain.ErrNoQuestionDisplayed) {
		t.Fatalf("expected no question displayed, got %v", err)
	}

	turn.ChooseTeam(3)
	turn.display(domain.Question{ID: 9, Points: 400, Question: "Q", Answer: "A"})
	if turn.Revealed() {
		t.Fatalf("fresh question must start hidden")
	}
	answer, err := turn.RevealAnswer()
	if err != nil || answer != "A" || !turn.Revealed() {
		t.Fatalf("reveal: answer=%q err=%v revealed=%v", answer, err, turn.Revealed())
	}

	prompt, ok := turn.Displayed()
	if !ok || prompt.ID != 9 {
		t.Fatalf("expected displayed prompt 9, got %+v", prompt)
	}

	turn.reset()
	if _, ok := turn.ActiveTeam(); ok {
		t.Fatalf("expected reset to clear the team")
	}
	if turn.Revealed() {
		t.Fatalf("expected reset to hide the answer")
	}
}
