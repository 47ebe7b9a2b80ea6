package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKindAndMessage(t *testing.T) {
	wrapped := fmt.Errorf("delete topic 7: %w", ErrTopicNotFound)
	if !errors.Is(wrapped, ErrTopicNotFound) {
		t.Fatalf("expected wrapped sentinel to match")
	}
	if errors.Is(wrapped, ErrTeamNotFound) {
		t.Fatalf("different not-found messages must not match")
	}
	if !errors.Is(wrapped, &Error{Kind: KindNotFound}) {
		t.Fatalf("kind-only target should match any not-found error")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{Validation("name is required"), KindValidation},
		{ErrTierFull, KindConflict},
		{fmt.Errorf("ctx: %w", ErrQuestionNotFound), KindNotFound},
		{errors.New("disk on fire"), KindInternal},
		{Internal("list topics", errors.New("conn reset")), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestInternalKeepsDomainErrors(t *testing.T) {
	if got := Internal("get team", ErrTeamNotFound); got != ErrTeamNotFound {
		t.Fatalf("expected domain error to pass through, got %v", got)
	}
	if Internal("noop", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestValidateQuestion(t *testing.T) {
	ok := NewQuestion{TopicID: 1, Points: 200, Question: "Q1", Answer: "A1"}
	if err := ValidateQuestion(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := ok
	bad.Answer = "   "
	if KindOf(ValidateQuestion(bad)) != KindValidation {
		t.Fatalf("expected validation error for blank answer")
	}
	bad = ok
	bad.Points = 0
	if KindOf(ValidateQuestion(bad)) != KindValidation {
		t.Fatalf("expected validation error for zero points")
	}
}
